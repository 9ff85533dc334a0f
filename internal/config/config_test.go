package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Feed.Type)
	assert.Equal(t, LTCVehicleURL, cfg.Feed.URL)
	assert.Equal(t, 10*time.Second, cfg.FeedInterval())
	assert.Equal(t, 10*time.Second, cfg.GPSInterval())
	assert.Equal(t, 30*time.Second, cfg.StaleAfter())
	assert.Equal(t, "plain", cfg.Display.Mode)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  name: MiWay
  url: https://example.org/vehiclepositions.pb
  format: protobuf
  refresh_seconds: 15
gps:
  type: fixed
  latitude: 43.59
  longitude: -79.64
routes: ["2", "13"]
display:
  mode: screen
  directions: 16
  stale_after_seconds: 90
server:
  listen_addr: ":8080"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MiWay", cfg.Feed.Name)
	assert.Equal(t, "protobuf", cfg.Feed.Format)
	assert.Equal(t, 15*time.Second, cfg.FeedInterval())
	assert.Equal(t, 30, cfg.Feed.TimeoutSeconds, "unset fields keep their defaults")
	assert.Equal(t, "fixed", cfg.GPS.Type)
	assert.Equal(t, []string{"2", "13"}, cfg.Routes)
	assert.Equal(t, 16, cfg.Display.Directions)
	assert.Equal(t, 90*time.Second, cfg.StaleAfter())
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REFRESH_LTC_SECONDS", "15")
	t.Setenv("REFRESH_GPS_SECONDS", "20")
	t.Setenv("GPS_TYPE", "demo")
	t.Setenv("DISPLAY_MODE", "screen")
	t.Setenv("DEBUG", "yes")
	t.Setenv("BUSDASH_ROUTES", "2, 4 6")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Feed.RefreshSeconds)
	assert.Equal(t, 20, cfg.GPS.RefreshSeconds)
	assert.Equal(t, "demo", cfg.GPS.Type)
	assert.Equal(t, "screen", cfg.Display.Mode)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, []string{"2", "4", "6"}, cfg.Routes)
	assert.Equal(t, 60*time.Second, cfg.StaleAfter())
}

func TestEnvOverrideBadNumber(t *testing.T) {
	t.Setenv("REFRESH_LTC_SECONDS", "ten")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDotEnvNextToConfig(t *testing.T) {
	const key = "BUSDASH_FEED_FORMAT"
	_, preset := os.LookupEnv(key)
	if preset {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=protobuf\n"), 0644))

	cfg, err := Load(filepath.Join(dir, "busdash.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "protobuf", cfg.Feed.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown feed type", func(c *Config) { c.Feed.Type = "ftp" }},
		{"http feed without url", func(c *Config) { c.Feed.URL = "" }},
		{"bad url", func(c *Config) { c.Feed.URL = "not a url" }},
		{"unknown format", func(c *Config) { c.Feed.Format = "xml" }},
		{"zero refresh", func(c *Config) { c.GPS.RefreshSeconds = 0 }},
		{"nmea without port", func(c *Config) { c.GPS.Type = "nmea"; c.GPS.PortPath = "" }},
		{"command without command", func(c *Config) { c.GPS.Type = "command" }},
		{"latitude out of range", func(c *Config) { c.GPS.Latitude = 91 }},
		{"odd compass", func(c *Config) { c.Display.Directions = 6 }},
		{"unknown display", func(c *Config) { c.Display.Mode = "curses" }},
		{"bad listen addr", func(c *Config) { c.Server.ListenAddr = "8080" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	demo := DefaultConfig()
	demo.Feed.Type = "demo"
	demo.Feed.URL = ""
	assert.NoError(t, demo.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "busdash.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.SetRoutes([]string{"02", "13"})
	require.NoError(t, cfg.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"02", "13"}, again.Routes)

	assert.Error(t, DefaultConfig().Save())
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"0", "false", "nope", ""} {
		assert.False(t, ParseBool(v), v)
	}
}
