package render

import (
	"fmt"
	"sort"
	"time"

	"github.com/shaunagostinho/busdash/internal/geo"
	"github.com/shaunagostinho/busdash/internal/routes"
	"github.com/shaunagostinho/busdash/internal/snapshot"
	"github.com/shaunagostinho/busdash/internal/transit"
)

// Status says whether a View has buses or what it is still waiting for.
type Status string

const (
	StatusOK              Status = "ok"
	StatusNoRoutes        Status = "no_routes"
	StatusWaitingFeed     Status = "waiting_feed"
	StatusWaitingLocation Status = "waiting_location"
)

// BusView is one vehicle as seen from the device. It is rebuilt on every
// render.
type BusView struct {
	Route      string         `json:"route,omitempty"` // Empty when one route is selected
	VehicleID  string         `json:"vehicleId,omitempty"`
	Position   geo.Coordinate `json:"position"`
	Facing     string         `json:"facing"`     // Where the bus is pointing
	DistanceKm float64        `json:"distanceKm"` // From the device
	Azimuth    float64        `json:"azimuth"`    // Degrees from the device to the bus
	Direction  string         `json:"direction"`  // Azimuth bucketed
}

// View is everything one render pass shows.
type View struct {
	Time     time.Time       `json:"time"`
	Routes   []string        `json:"routes"`
	Status   Status          `json:"status"`
	Location *geo.Coordinate `json:"location,omitempty"`
	Buses    []BusView       `json:"buses"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Nearest returns the closest bus, if any. Buses are sorted farthest first.
func (v View) Nearest() (BusView, bool) {
	if len(v.Buses) == 0 {
		return BusView{}, false
	}
	return v.Buses[len(v.Buses)-1], true
}

// Builder turns a snapshot and route selection into a View.
type Builder struct {
	Compass geo.Compass
	// StaleAfter adds a warning when a field is older than this. Zero
	// disables the check.
	StaleAfter time.Duration
}

// Build derives a View. It never mutates snap.
func (b Builder) Build(snap snapshot.Snapshot, sel routes.Selection, now time.Time) View {
	compass := b.Compass
	if len(compass) == 0 {
		compass = geo.Compass8
	}

	v := View{Time: now, Routes: sel.Routes, Buses: []BusView{}}
	if len(sel.Routes) == 0 {
		v.Status = StatusNoRoutes
		return v
	}
	if !snap.HasVehicles() {
		v.Status = StatusWaitingFeed
		return v
	}

	onRoutes := transit.OnRoutes(snap.Vehicles, sel.Set)

	if snap.Location == nil {
		v.Status = StatusWaitingLocation
		return v
	}
	loc := *snap.Location
	v.Location = &loc
	v.Status = StatusOK
	v.Warnings = b.staleness(snap, now)

	showRoute := len(sel.Routes) > 1
	for _, veh := range onRoutes {
		bus := BusView{
			VehicleID:  veh.VehicleID,
			Position:   veh.Position,
			Facing:     compass.Bucket(veh.Bearing),
			DistanceKm: geo.Distance(loc, veh.Position),
			Azimuth:    geo.Bearing(loc, veh.Position),
		}
		bus.Direction = compass.Bucket(bus.Azimuth)
		if showRoute {
			bus.Route = veh.RouteID
		}
		v.Buses = append(v.Buses, bus)
	}

	// Nearest last, so it sits right above the prompt.
	sort.SliceStable(v.Buses, func(i, j int) bool {
		return v.Buses[i].DistanceKm > v.Buses[j].DistanceKm
	})
	return v
}

func (b Builder) staleness(snap snapshot.Snapshot, now time.Time) []string {
	if b.StaleAfter <= 0 {
		return nil
	}
	var warnings []string
	if age := now.Sub(snap.LocationAt); !snap.LocationAt.IsZero() && age > b.StaleAfter {
		warnings = append(warnings, fmt.Sprintf("Location is %s old.", age.Round(time.Second)))
	}
	if age := now.Sub(snap.VehiclesAt); !snap.VehiclesAt.IsZero() && age > b.StaleAfter {
		warnings = append(warnings, fmt.Sprintf("Bus positions are %s old.", age.Round(time.Second)))
	}
	return warnings
}
