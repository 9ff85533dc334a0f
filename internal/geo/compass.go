package geo

import (
	"fmt"
	"math"
)

// Compass maps bearings onto equally sized named sectors, the first of which
// is centered on North.
type Compass []string

// Compass8 is the default eight-point compass.
var Compass8 = Compass{
	"North",
	"North East",
	"East",
	"South East",
	"South",
	"South West",
	"West",
	"North West",
}

// Compass4 only names the cardinal points.
var Compass4 = Compass{"North", "East", "South", "West"}

// NewCompass validates that labels can split the circle evenly around North.
func NewCompass(labels []string) (Compass, error) {
	if len(labels) == 0 || len(labels)%2 != 0 {
		return nil, fmt.Errorf("compass needs an even, non-zero number of labels, got %d", len(labels))
	}
	return Compass(labels), nil
}

// Index returns the sector index for deg. Each sector is centered on its
// label, so with 8 labels North covers [337.5, 360) and [0, 22.5).
func (c Compass) Index(deg float64) int {
	n := float64(len(c))
	width := 360 / n
	shifted := normalize(deg + width/2)
	i := int(math.Floor(shifted * n / 360))
	return i % len(c)
}

// Bucket returns the label for deg.
func (c Compass) Bucket(deg float64) string {
	return c[c.Index(deg)]
}

// Compass16 adds the secondary intercardinal points.
var Compass16 = Compass{
	"North", "North North East", "North East", "East North East",
	"East", "East South East", "South East", "South South East",
	"South", "South South West", "South West", "West South West",
	"West", "West North West", "North West", "North North West",
}

// CompassFor returns the built-in compass with n points (4, 8 or 16).
func CompassFor(n int) (Compass, error) {
	switch n {
	case 4:
		return Compass4, nil
	case 8, 0:
		return Compass8, nil
	case 16:
		return Compass16, nil
	}
	return nil, fmt.Errorf("no %d-point compass", n)
}
