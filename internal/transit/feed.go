package transit

import (
	"context"
	"time"

	"github.com/shaunagostinho/busdash/internal/geo"
)

// Feed is the interface for vehicle position sources.
type Feed interface {
	// Name is shown to the user while the first fetch is outstanding.
	Name() string
	// Fetch returns every vehicle currently reported by the source.
	Fetch(ctx context.Context) ([]Vehicle, error)
}

// Vehicle is a single decoded position report.
type Vehicle struct {
	RouteID   string         `json:"routeId"`   // As published, e.g. "02"
	VehicleID string         `json:"vehicleId"` // Empty if the feed omits it
	Position  geo.Coordinate `json:"position"`
	Bearing   float64        `json:"bearing"`   // Degrees clockwise from North
	Timestamp time.Time      `json:"timestamp"` // Zero if the feed omits it
}

// OnRoutes returns the vehicles whose RouteID is in routes, keeping order.
func OnRoutes(vehicles []Vehicle, routes map[string]struct{}) []Vehicle {
	out := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if _, ok := routes[v.RouteID]; ok {
			out = append(out, v)
		}
	}
	return out
}
