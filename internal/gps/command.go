package gps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// CommandProvider runs an external program that prints a JSON fix with
// "latitude" and "longitude" fields, such as termux-location on Android.
type CommandProvider struct {
	name    string
	command string
	args    []string
	debug   bool
}

// CommandConfig holds configuration for the command provider.
type CommandConfig struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
	Debug   bool     `yaml:"-" json:"-"`
}

// termuxFix is the subset of termux-location output we use.
type termuxFix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  float64  `json:"altitude"`
	Accuracy  float64  `json:"accuracy"`
	Bearing   float64  `json:"bearing"`
	Speed     float64  `json:"speed"` // m/s
	Provider  string   `json:"provider"`
}

// NewTermux creates a provider that shells out to termux-location.
func NewTermux(debug bool) *CommandProvider {
	p := NewCommand(CommandConfig{Command: "termux-location", Debug: debug})
	p.name = "Termux-location"
	return p
}

// NewCommand creates a provider backed by an arbitrary command.
func NewCommand(cfg CommandConfig) *CommandProvider {
	return &CommandProvider{
		name:    cfg.Command,
		command: cfg.Command,
		args:    cfg.Args,
		debug:   cfg.Debug,
	}
}

func (c *CommandProvider) Name() string { return c.name }

// Connect verifies the command is on PATH.
func (c *CommandProvider) Connect() error {
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("gps: %s not found: %w", c.command, err)
	}
	return nil
}

func (c *CommandProvider) Close() error { return nil }

// Read runs the command once. The context bounds how long it may run.
func (c *CommandProvider) Read(ctx context.Context) (*Data, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, c.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("gps: %s: %w: %s", c.command, err, msg)
		}
		return nil, fmt.Errorf("gps: %s: %w", c.command, err)
	}
	if c.debug {
		log.Printf("[gps] %s output: %s", c.command, strings.TrimSpace(stdout.String()))
	}
	return parseFix(stdout.Bytes())
}

func parseFix(raw []byte) (*Data, error) {
	var fix termuxFix
	if err := json.Unmarshal(raw, &fix); err != nil {
		return nil, fmt.Errorf("gps: decode fix: %w", err)
	}
	if fix.Latitude == nil || fix.Longitude == nil {
		return nil, fmt.Errorf("gps: fix missing latitude/longitude")
	}
	return &Data{
		Valid:     true,
		Latitude:  *fix.Latitude,
		Longitude: *fix.Longitude,
		Altitude:  fix.Altitude,
		Accuracy:  fix.Accuracy,
		Heading:   fix.Bearing,
		Speed:     fix.Speed * 3.6, // m/s to km/h
		Source:    fix.Provider,
	}, nil
}
