package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LTCVehicleURL is London Transit's open data vehicle positions feed.
const LTCVehicleURL = "http://gtfs.ltconline.ca/Vehicle/VehiclePositions.json"

// Config holds all dashboard configuration.
type Config struct {
	mu sync.RWMutex

	// Data sources
	Feed FeedConfig `yaml:"feed" json:"feed"`
	GPS  GPSConfig  `yaml:"gps" json:"gps"`

	// Initial route selection; prompted for when empty
	Routes []string `yaml:"routes" json:"routes"`

	Display DisplayConfig `yaml:"display" json:"display"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Server  ServerConfig  `yaml:"server" json:"server"`

	path string // file path for save/load
}

type FeedConfig struct {
	Type           string `yaml:"type" json:"type" validate:"oneof=http demo"`
	Name           string `yaml:"name" json:"name" validate:"required"`
	URL            string `yaml:"url" json:"url" validate:"required_if=Type http,omitempty,url"`
	Format         string `yaml:"format" json:"format" validate:"oneof=json protobuf"`
	RefreshSeconds int    `yaml:"refresh_seconds" json:"refreshSeconds" validate:"min=1,max=3600"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeoutSeconds" validate:"min=1,max=300"`
}

type GPSConfig struct {
	Type           string   `yaml:"type" json:"type" validate:"oneof=termux command nmea fixed demo"`
	Command        string   `yaml:"command" json:"command" validate:"required_if=Type command"`
	Args           []string `yaml:"args" json:"args"`
	PortPath       string   `yaml:"port_path" json:"portPath" validate:"required_if=Type nmea"` // e.g. /dev/ttyGPS
	BaudRate       int      `yaml:"baud_rate" json:"baudRate"`
	Latitude       float64  `yaml:"latitude" json:"latitude" validate:"min=-90,max=90"` // fixed position, or demo center
	Longitude      float64  `yaml:"longitude" json:"longitude" validate:"min=-180,max=180"`
	RefreshSeconds int      `yaml:"refresh_seconds" json:"refreshSeconds" validate:"min=1,max=3600"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeoutSeconds" validate:"min=1,max=300"`
}

type DisplayConfig struct {
	Mode              string `yaml:"mode" json:"mode" validate:"oneof=plain screen"`
	Clear             bool   `yaml:"clear" json:"clear"` // plain mode only
	Directions        int    `yaml:"directions" json:"directions" validate:"oneof=4 8 16"`
	StaleAfterSeconds int    `yaml:"stale_after_seconds" json:"staleAfterSeconds" validate:"min=0"` // 0 = 3x the slowest poll
}

type LoggingConfig struct {
	Path  string `yaml:"path" json:"path"` // empty: stderr in plain mode, discarded in screen mode
	Debug bool   `yaml:"debug" json:"debug"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr" validate:"omitempty,hostname_port"` // empty disables the web view
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Type:           "http",
			Name:           "LTC",
			URL:            LTCVehicleURL,
			Format:         "json",
			RefreshSeconds: 10,
			TimeoutSeconds: 30,
		},
		GPS: GPSConfig{
			Type:           "termux",
			BaudRate:       9600,
			Latitude:       42.9849, // London, Ontario
			Longitude:      -81.2453,
			RefreshSeconds: 10,
			TimeoutSeconds: 30,
		},
		Display: DisplayConfig{
			Mode:       "plain",
			Clear:      true,
			Directions: 8,
		},
	}
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then validates. A missing file means defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("[config] no config at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			log.Printf("[config] loaded from %s", path)
		}
	}

	// Load .env from the config's directory and from CWD. Variables already
	// in the real environment win.
	envPaths := []string{".env"}
	if path != "" {
		envPaths = append([]string{filepath.Join(filepath.Dir(path), ".env")}, envPaths...)
	}
	for _, ep := range envPaths {
		if err := godotenv.Load(ep); err == nil {
			log.Printf("[config] loaded .env from %s", ep)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: BUSDASH_FEED_TYPE, BUSDASH_FEED_URL, BUSDASH_FEED_FORMAT,
// REFRESH_LTC_SECONDS, REFRESH_GPS_SECONDS, GPS_TYPE, GPS_COMMAND, GPS_PORT,
// GPS_BAUD, DISPLAY_MODE, LISTEN_ADDR, LOG_PATH, DEBUG, BUSDASH_ROUTES
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("BUSDASH_FEED_TYPE"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("BUSDASH_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("BUSDASH_FEED_FORMAT"); v != "" {
		c.Feed.Format = v
	}
	if err := envInt("REFRESH_LTC_SECONDS", &c.Feed.RefreshSeconds); err != nil {
		return err
	}
	if err := envInt("REFRESH_GPS_SECONDS", &c.GPS.RefreshSeconds); err != nil {
		return err
	}
	if v := os.Getenv("GPS_TYPE"); v != "" {
		c.GPS.Type = v
	}
	if v := os.Getenv("GPS_COMMAND"); v != "" {
		c.GPS.Command = v
	}
	if v := os.Getenv("GPS_PORT"); v != "" {
		c.GPS.PortPath = v
	}
	if err := envInt("GPS_BAUD", &c.GPS.BaudRate); err != nil {
		return err
	}
	if v := os.Getenv("DISPLAY_MODE"); v != "" {
		c.Display.Mode = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Logging.Debug = ParseBool(v)
	}
	if v := os.Getenv("BUSDASH_ROUTES"); v != "" {
		c.Routes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = n
	return nil
}

// ParseBool accepts the usual spellings of true; anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FeedInterval is how often the vehicle feed is polled.
func (c *Config) FeedInterval() time.Duration {
	return time.Duration(c.Feed.RefreshSeconds) * time.Second
}

// GPSInterval is how often the location is polled.
func (c *Config) GPSInterval() time.Duration {
	return time.Duration(c.GPS.RefreshSeconds) * time.Second
}

// StaleAfter is the age past which a field gets a warning line.
func (c *Config) StaleAfter() time.Duration {
	if c.Display.StaleAfterSeconds > 0 {
		return time.Duration(c.Display.StaleAfterSeconds) * time.Second
	}
	slowest := c.FeedInterval()
	if g := c.GPSInterval(); g > slowest {
		slowest = g
	}
	return 3 * slowest
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return errors.New("config has no file path")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// SetRoutes records the active routes so Save remembers them.
func (c *Config) SetRoutes(routes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Routes = append([]string(nil), routes...)
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}
