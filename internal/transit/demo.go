package transit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shaunagostinho/busdash/internal/geo"
)

// DemoFeed generates simulated buses circling a center point.
type DemoFeed struct {
	mu     sync.Mutex
	t      float64 // virtual time accumulator
	center geo.Coordinate
	routes func() []string
}

var demoRoutes = []string{"01", "02", "04", "06"}

// NewDemoFeed creates a feed with three buses on each route that routes
// returns at fetch time. A nil func, or an empty result, simulates a fixed
// default set.
func NewDemoFeed(center geo.Coordinate, routes func() []string) *DemoFeed {
	return &DemoFeed{center: center, routes: routes}
}

func (d *DemoFeed) Name() string { return "demo feed" }

func (d *DemoFeed) Fetch(ctx context.Context) ([]Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 0.05

	var routes []string
	if d.routes != nil {
		routes = d.routes()
	}
	if len(routes) == 0 {
		routes = demoRoutes
	}

	now := time.Now()
	var out []Vehicle
	for ri, route := range routes {
		radius := 0.01 * float64(ri+1) // ~1km per ring
		for b := 0; b < 3; b++ {
			// Phase in radians around the ring; buses move clockwise.
			phase := d.t + float64(b)*2*math.Pi/3 + float64(ri)
			out = append(out, Vehicle{
				RouteID:   route,
				VehicleID: fmt.Sprintf("demo-%s-%d", route, b),
				Position: geo.Coordinate{
					Lat: d.center.Lat + radius*math.Cos(phase),
					Lon: d.center.Lon + radius*math.Sin(phase),
				},
				// Tangent of a clockwise circle.
				Bearing:   math.Mod(phase*180/math.Pi+90, 360),
				Timestamp: now,
			})
		}
	}
	return out, nil
}
