package render

import (
	"fmt"
	"strings"
	"time"
)

// Labels names the two sources in status lines.
type Labels struct {
	Feed     string // e.g. "LTC"
	Location string // e.g. "Termux-location"
	// FeedRefresh is shown in the usage header.
	FeedRefresh time.Duration
}

// Header returns the lines shown above every frame.
func Header(v View, l Labels) []string {
	word := "routes"
	if len(v.Routes) == 1 {
		word = "route"
	}
	lines := []string{v.Time.Format(time.ANSIC)}
	if len(v.Routes) == 0 {
		lines = append(lines, "No routes selected.")
	} else {
		lines = append(lines, fmt.Sprintf("Showing buses on %s %s.", word, strings.Join(v.Routes, ", ")))
	}
	if l.FeedRefresh > 0 {
		lines = append(lines, fmt.Sprintf("Refreshes data from %s every %s.", l.Feed, l.FeedRefresh))
	}
	return append(lines,
		"You may enter different bus routes,",
		"or type 'quit' <ENTER> to exit.",
	)
}

// Body returns the status line or the bus listing for v.
func Body(v View, l Labels) []string {
	switch v.Status {
	case StatusNoRoutes:
		return []string{"Enter one or more routes, e.g. 2, 13"}
	case StatusWaitingFeed:
		return []string{fmt.Sprintf("Still waiting on %s...", l.Feed)}
	case StatusWaitingLocation:
		return []string{fmt.Sprintf("%s still acquiring...", l.Location)}
	}

	lines := append([]string(nil), v.Warnings...)
	if len(v.Buses) == 0 {
		return append(lines, "No buses on the road for these routes.")
	}
	for _, b := range v.Buses {
		lines = append(lines, FormatBus(b))
	}
	return lines
}

// FormatBus renders one bus block:
//
//	Bus 02, (42.99, -81.2):
//	    Distance: 2.683 km North East
//	    Direction: East
func FormatBus(b BusView) string {
	title := "Bus "
	if b.Route != "" {
		title = "Bus " + b.Route + ", "
	}
	return fmt.Sprintf("%s(%v, %v):\n    Distance: %.3f km %s\n    Direction: %s",
		title, b.Position.Lat, b.Position.Lon, b.DistanceKm, b.Direction, b.Facing)
}
