package gps

import (
	"context"
	"math"
	"sync"

	"github.com/shaunagostinho/busdash/internal/geo"
)

// FixedProvider always reports the same position. Useful on machines
// without a location source.
type FixedProvider struct {
	at geo.Coordinate
}

func NewFixed(at geo.Coordinate) *FixedProvider { return &FixedProvider{at: at} }

func (f *FixedProvider) Name() string   { return "Fixed location" }
func (f *FixedProvider) Connect() error { return nil }
func (f *FixedProvider) Close() error   { return nil }

func (f *FixedProvider) Read(ctx context.Context) (*Data, error) {
	return &Data{Valid: true, Latitude: f.at.Lat, Longitude: f.at.Lon, Source: "fixed"}, nil
}

// DemoGPS generates simulated GPS data for testing.
type DemoGPS struct {
	mu     sync.Mutex
	t      float64
	center geo.Coordinate
}

func NewDemoGPS(center geo.Coordinate) *DemoGPS { return &DemoGPS{center: center} }

func (d *DemoGPS) Name() string   { return "Demo GPS (Simulated)" }
func (d *DemoGPS) Connect() error { return nil }
func (d *DemoGPS) Close() error   { return nil }

func (d *DemoGPS) Read(ctx context.Context) (*Data, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 0.1

	// Walk slowly around the center point
	radius := 0.002 // ~200m
	return &Data{
		Valid:     true,
		Latitude:  d.center.Lat + radius*math.Sin(d.t*0.1),
		Longitude: d.center.Lon + radius*math.Cos(d.t*0.1),
		Speed:     5,
		Heading:   math.Mod(d.t*10, 360),
		Source:    "demo",
	}, nil
}
