package gps

import (
	"context"

	"github.com/shaunagostinho/busdash/internal/geo"
)

// Provider is the interface for device location sources.
type Provider interface {
	Name() string
	Connect() error
	Close() error
	// Read returns the latest fix. It may block up to the context deadline.
	Read(ctx context.Context) (*Data, error)
}

// Data holds a single GPS fix.
type Data struct {
	Valid     bool    `json:"valid"`     // Fix is valid
	Latitude  float64 `json:"latitude"`  // Decimal degrees
	Longitude float64 `json:"longitude"` // Decimal degrees
	Speed     float64 `json:"speed"`     // km/h
	Heading   float64 `json:"heading"`   // Degrees true
	Altitude  float64 `json:"altitude"`  // Meters
	Accuracy  float64 `json:"accuracy"`  // Meters, 0 if unknown
	Source    string  `json:"source"`    // e.g. "gps", "network", "nmea"
}

// Coordinate returns the fix position.
func (d *Data) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: d.Latitude, Lon: d.Longitude}
}
