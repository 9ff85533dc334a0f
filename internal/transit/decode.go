package transit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/shaunagostinho/busdash/internal/geo"
)

// Feed body encodings.
const (
	FormatJSON     = "json"
	FormatProtobuf = "protobuf"
)

// ErrUnsupportedFormat is returned for an unknown feed encoding.
var ErrUnsupportedFormat = errors.New("unsupported feed format")

// Decode parses a vehicle positions body in the given format.
func Decode(format string, body []byte) ([]Vehicle, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return DecodeJSON(body)
	case FormatProtobuf, "pb":
		return DecodeProtobuf(body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// jsonFeed mirrors the JSON export of a GTFS-realtime VehiclePositions feed.
type jsonFeed struct {
	Entity []struct {
		ID      string `json:"id"`
		Vehicle *struct {
			Trip *struct {
				RouteID string `json:"route_id"`
			} `json:"trip"`
			Vehicle *struct {
				ID string `json:"id"`
			} `json:"vehicle"`
			Position *struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
				Bearing   float64 `json:"bearing"`
			} `json:"position"`
			Timestamp unixTime `json:"timestamp"`
		} `json:"vehicle"`
	} `json:"entity"`
}

// unixTime accepts epoch seconds encoded either as a number or a string.
type unixTime int64

func (u *unixTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", data, err)
	}
	*u = unixTime(n)
	return nil
}

func (u unixTime) time() time.Time {
	if u <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(u), 0)
}

// DecodeJSON parses the JSON rendition of a VehiclePositions feed.
// Entities without a trip or position are skipped.
func DecodeJSON(body []byte) ([]Vehicle, error) {
	var feed jsonFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode json feed: %w", err)
	}
	if feed.Entity == nil {
		return nil, errors.New("decode json feed: missing entity list")
	}

	vehicles := make([]Vehicle, 0, len(feed.Entity))
	for _, e := range feed.Entity {
		v := e.Vehicle
		if v == nil || v.Trip == nil || v.Position == nil {
			continue
		}
		out := Vehicle{
			RouteID: v.Trip.RouteID,
			Position: geo.Coordinate{
				Lat: v.Position.Latitude,
				Lon: v.Position.Longitude,
			},
			Bearing:   v.Position.Bearing,
			Timestamp: v.Timestamp.time(),
		}
		if v.Vehicle != nil {
			out.VehicleID = v.Vehicle.ID
		}
		vehicles = append(vehicles, out)
	}
	return vehicles, nil
}

// DecodeProtobuf parses a binary GTFS-realtime FeedMessage.
func DecodeProtobuf(body []byte) ([]Vehicle, error) {
	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode protobuf feed: %w", err)
	}

	vehicles := make([]Vehicle, 0, len(feed.GetEntity()))
	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil || vp.GetTrip() == nil || vp.GetPosition() == nil {
			continue
		}
		pos := vp.GetPosition()
		out := Vehicle{
			RouteID:   vp.GetTrip().GetRouteId(),
			VehicleID: vp.GetVehicle().GetId(),
			Position: geo.Coordinate{
				Lat: float64(pos.GetLatitude()),
				Lon: float64(pos.GetLongitude()),
			},
			Bearing: float64(pos.GetBearing()),
		}
		if ts := vp.GetTimestamp(); ts > 0 {
			out.Timestamp = time.Unix(int64(ts), 0)
		}
		vehicles = append(vehicles, out)
	}
	return vehicles, nil
}
