package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shaunagostinho/busdash/internal/config"
	"github.com/shaunagostinho/busdash/internal/geo"
	"github.com/shaunagostinho/busdash/internal/gps"
	"github.com/shaunagostinho/busdash/internal/routes"
	"github.com/shaunagostinho/busdash/internal/transit"
)

// errQuit means the user typed an exit keyword at the first prompt.
var errQuit = errors.New("quit")

const routePrompt = "Which routes? "

type prompter interface {
	routes.LineReader
	routes.Reporter
}

// initialRoutes takes routes from the command line, then the config, and
// prompts until it gets a valid list otherwise. Cancelling ctx or closing
// the input while the prompt waits returns errQuit.
func initialRoutes(ctx context.Context, cfg *config.Config, args []string, in prompter) ([]string, error) {
	text := strings.TrimSpace(strings.Join(args, " ") + " " + strings.Join(cfg.Routes, " "))
	if text != "" {
		parsed, err := routes.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("routes %q: %w", text, err)
		}
		return parsed, nil
	}

	for {
		in.Report(routePrompt)
		line, err := readLine(ctx, in)
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil, errQuit
		}
		if err != nil {
			return nil, fmt.Errorf("read routes: %w", err)
		}
		if routes.IsExit(line) {
			return nil, errQuit
		}
		parsed, err := routes.Parse(line)
		if err != nil {
			in.Report(fmt.Sprintf("Invalid input: %q", line))
			continue
		}
		return parsed, nil
	}
}

type readResult struct {
	text string
	err  error
}

// readLine waits for one line or for ctx. A read cut short by ctx is left
// running; its line is discarded.
func readLine(ctx context.Context, in routes.LineReader) (string, error) {
	res := make(chan readResult, 1)
	go func() {
		text, err := in.ReadLine()
		res <- readResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", errQuit
	case r := <-res:
		return r.text, r.err
	}
}

func newGPS(cfg *config.Config) gps.Provider {
	center := geo.Coordinate{Lat: cfg.GPS.Latitude, Lon: cfg.GPS.Longitude}
	switch cfg.GPS.Type {
	case "command":
		return gps.NewCommand(gps.CommandConfig{
			Command: cfg.GPS.Command,
			Args:    cfg.GPS.Args,
			Debug:   cfg.Logging.Debug,
		})
	case "nmea":
		return gps.NewNMEA(gps.NMEAConfig{
			PortPath: cfg.GPS.PortPath,
			BaudRate: cfg.GPS.BaudRate,
		})
	case "fixed":
		return gps.NewFixed(center)
	case "demo":
		return gps.NewDemoGPS(center)
	default:
		return gps.NewTermux(cfg.Logging.Debug)
	}
}

// newFeed builds the vehicle feed. The demo feed simulates whatever routes
// the filter currently holds.
func newFeed(cfg *config.Config, filter *routes.Filter) transit.Feed {
	if cfg.Feed.Type == "demo" {
		center := geo.Coordinate{Lat: cfg.GPS.Latitude, Lon: cfg.GPS.Longitude}
		return transit.NewDemoFeed(center, func() []string { return filter.Snapshot().Routes })
	}
	return transit.NewHTTPFeed(transit.HTTPConfig{
		Name:    cfg.Feed.Name,
		URL:     cfg.Feed.URL,
		Format:  cfg.Feed.Format,
		Timeout: time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
		Debug:   cfg.Logging.Debug,
	})
}

type connectable interface {
	Connect() error
}

// connectWithRetry attempts to connect with exponential backoff.
// Starts at 1s, doubles each attempt up to 60s, retries up to maxAttempts
// then continues at max interval indefinitely. It returns false only when
// ctx is done first.
func connectWithRetry(ctx context.Context, name string, c connectable, maxAttempts int) bool {
	return connectWithBackoff(ctx, name, c, maxAttempts, time.Second, 60*time.Second)
}

func connectWithBackoff(ctx context.Context, name string, c connectable, maxAttempts int, delay, maxDelay time.Duration) bool {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return false
		}

		err := c.Connect()
		if err == nil {
			log.Printf("[%s] connected successfully (attempt %d)", name, attempt+1)
			return true
		}

		attempt++
		if attempt <= maxAttempts {
			log.Printf("[%s] connect attempt %d/%d failed: %v (retry in %v)",
				name, attempt, maxAttempts, err, delay)
		} else {
			log.Printf("[%s] connect attempt %d failed: %v (retry in %v)",
				name, attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
