package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v2"

	"github.com/shaunagostinho/busdash/internal/config"
	"github.com/shaunagostinho/busdash/internal/display"
	"github.com/shaunagostinho/busdash/internal/geo"
	"github.com/shaunagostinho/busdash/internal/metrics"
	"github.com/shaunagostinho/busdash/internal/poller"
	"github.com/shaunagostinho/busdash/internal/render"
	"github.com/shaunagostinho/busdash/internal/routes"
	"github.com/shaunagostinho/busdash/internal/server"
	"github.com/shaunagostinho/busdash/internal/snapshot"
	"github.com/shaunagostinho/busdash/web"
)

func main() {
	app := &cli.App{
		Name:      "busdash",
		Usage:     "Show how far away the buses on your routes are, and which way to look",
		ArgsUsage: "[route...]",
		Flags:     flags(),
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "busdash: %v\n", err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Value: defaultConfigPath(),
			Usage: "Path to config file",
		},
		&cli.BoolFlag{
			Name:  "demo",
			Usage: "Run with simulated GPS and bus positions",
		},
		&cli.StringFlag{
			Name:  "routes",
			Usage: "Initial routes, e.g. \"2, 6 13\"",
		},
		&cli.StringFlag{
			Name:  "display",
			Usage: "Display mode (plain or screen)",
		},
		&cli.StringFlag{
			Name:  "listen",
			Usage: "Serve the web view on this address (e.g. :8080)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log feed and GPS traffic",
		},
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "busdash.yaml"
	}
	return filepath.Join(dir, "busdash", "config.yaml")
}

func run(c *cli.Context) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(cfg, c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log.Println("[main] busdash starting")

	surface, err := newSurface(cfg)
	if err != nil {
		return err
	}
	defer surface.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rate := render.RefreshRate(cfg.GPSInterval(), cfg.FeedInterval())
	compass, err := geo.CompassFor(cfg.Display.Directions)
	if err != nil {
		return err
	}

	filter := routes.NewFilter(nil)
	store := snapshot.New()
	collector := metrics.NewCollector(rate)
	gpsProv := newGPS(cfg)
	feed := newFeed(cfg, filter)

	location := &poller.Poller{
		Name:     "location",
		Interval: cfg.GPSInterval(),
		Timeout:  time.Duration(cfg.GPS.TimeoutSeconds) * time.Second,
		Fetch:    poller.Location(gpsProv, store),
		Observer: collector,
	}
	vehicles := &poller.Poller{
		Name:     "vehicles",
		Interval: cfg.FeedInterval(),
		Timeout:  time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
		Fetch:    poller.Vehicles(feed, store),
		Observer: collector,
	}

	// Both sources warm up while the user is still choosing routes.
	p := pool.New().WithContext(ctx).WithFirstError()
	p.Go(func(ctx context.Context) error {
		// Pollers start once the provider answers. The dashboard draws
		// "acquiring" until then.
		if !connectWithRetry(ctx, "gps", gpsProv, 10) {
			return nil
		}
		defer gpsProv.Close()
		return location.Run(ctx)
	})
	p.Go(vehicles.Run)

	initial, err := initialRoutes(ctx, cfg, c.Args().Slice(), surface)
	if err != nil {
		stop()
		_ = p.Wait()
		if errors.Is(err, errQuit) {
			return nil
		}
		return err
	}
	filter.Replace(initial)

	publishers := []render.Publisher{collector}
	var srv *server.Server
	if cfg.Server.ListenAddr != "" {
		srv = server.New(server.Options{
			Addr:    cfg.Server.ListenAddr,
			Config:  cfg,
			Filter:  filter,
			WebFS:   web.FS,
			Metrics: collector.Handler(),
		})
		publishers = append(publishers, srv)
	}

	loop := &render.Loop{
		Store:   store,
		Filter:  filter,
		Surface: surface,
		Rate:    rate,
		Builder: render.Builder{Compass: compass, StaleAfter: cfg.StaleAfter()},
		Labels: render.Labels{
			Feed:        cfg.Feed.Name,
			Location:    gpsProv.Name(),
			FeedRefresh: cfg.FeedInterval(),
		},
		Publishers: publishers,
	}
	selector := routes.NewSelector(surface, filter, surface)

	log.Printf("[main] routes %v, redraw every %v, feed %s, location %s",
		initial, rate, feed.Name(), gpsProv.Name())

	p.Go(func(ctx context.Context) error { return loop.Run(ctx, stop) })
	p.Go(func(ctx context.Context) error { return selector.Run(ctx, stop) })
	if srv != nil {
		p.Go(func(ctx context.Context) error {
			err := srv.Run(ctx)
			if err != nil {
				stop()
			}
			return err
		})
	}

	if err := p.Wait(); err != nil {
		log.Printf("[main] exiting: %v", err)
		return err
	}
	log.Println("[main] bye")
	return nil
}

// applyFlags lets command line flags override the loaded config.
func applyFlags(cfg *config.Config, c *cli.Context) {
	if c.Bool("demo") {
		cfg.Feed.Type = "demo"
		cfg.Feed.Name = "Demo feed"
		cfg.GPS.Type = "demo"
	}
	if v := c.String("display"); v != "" {
		cfg.Display.Mode = v
	}
	if v := c.String("listen"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if c.Bool("debug") {
		cfg.Logging.Debug = true
	}
	if v := c.String("routes"); v != "" {
		cfg.Routes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
}

// setupLogging points the standard logger somewhere that will not fight the
// screen surface for the terminal. The returned file, if any, is the caller's
// to close.
func setupLogging(cfg *config.Config) (*os.File, error) {
	if cfg.Logging.Path != "" {
		f, err := os.OpenFile(cfg.Logging.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		log.SetOutput(f)
		return f, nil
	}
	if cfg.Display.Mode == display.ModeScreen {
		log.SetOutput(io.Discard)
	}
	return nil, nil
}

func newSurface(cfg *config.Config) (display.Surface, error) {
	if cfg.Display.Mode == display.ModeScreen {
		return display.NewScreen()
	}
	return display.NewPlain(os.Stdout, os.Stdin, cfg.Display.Clear), nil
}
