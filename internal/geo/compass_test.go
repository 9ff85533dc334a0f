package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompass8Bucket(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "North"},
		{22.4999, "North"},
		{22.5, "North East"},
		{45, "North East"},
		{67.4999, "North East"},
		{67.5, "East"},
		{90, "East"},
		{135, "South East"},
		{180, "South"},
		{225, "South West"},
		{270, "West"},
		{315, "North West"},
		{337.4999, "North West"},
		{337.5, "North"},
		{359.9999, "North"},
		{360, "North"},
		{-45, "North West"},
		{450, "East"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compass8.Bucket(tt.deg), "bucket(%v)", tt.deg)
	}
}

func TestCompassTotal(t *testing.T) {
	seen := make(map[string]int)
	for tenth := 0; tenth < 3600; tenth++ {
		i := Compass8.Index(float64(tenth) / 10)
		require.GreaterOrEqual(t, i, 0)
		require.Less(t, i, len(Compass8))
		seen[Compass8[i]]++
	}
	assert.Len(t, seen, 8)
	for label, n := range seen {
		assert.Equal(t, 450, n, "sector %s", label)
	}
}

func TestCompass4(t *testing.T) {
	assert.Equal(t, "North", Compass4.Bucket(44.9))
	assert.Equal(t, "East", Compass4.Bucket(45))
	assert.Equal(t, "West", Compass4.Bucket(314.9))
	assert.Equal(t, "North", Compass4.Bucket(315))
}

func TestNewCompass(t *testing.T) {
	_, err := NewCompass(nil)
	assert.Error(t, err)
	_, err = NewCompass([]string{"a", "b", "c"})
	assert.Error(t, err)

	c, err := NewCompass([]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"})
	require.NoError(t, err)
	assert.Equal(t, "NNE", c.Bucket(22.5))
	assert.Equal(t, "N", c.Bucket(11.24))
}

func TestCompassFor(t *testing.T) {
	for _, n := range []int{4, 8, 16} {
		c, err := CompassFor(n)
		require.NoError(t, err)
		assert.Len(t, c, n)
		assert.Equal(t, "North", c.Bucket(0))
		assert.Equal(t, "East", c.Bucket(90))
	}
	c, err := CompassFor(0)
	require.NoError(t, err)
	assert.Equal(t, Compass8, c)

	_, err = CompassFor(6)
	assert.Error(t, err)
}
