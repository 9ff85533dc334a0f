package render

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shaunagostinho/busdash/internal/display"
	"github.com/shaunagostinho/busdash/internal/routes"
	"github.com/shaunagostinho/busdash/internal/snapshot"
)

// Publisher receives every successfully rendered View.
type Publisher interface {
	Publish(v View)
}

// RefreshRate is the render cadence for the two poll intervals: their
// greatest common divisor in whole seconds, never below one second.
func RefreshRate(gps, feed time.Duration) time.Duration {
	a, b := int64(gps/time.Second), int64(feed/time.Second)
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		a = -a
	}
	if a == 0 {
		return time.Second
	}
	return time.Duration(a) * time.Second
}

// Loop redraws the surface on a fixed cadence, and immediately whenever the
// route filter changes.
type Loop struct {
	Store      *snapshot.Store
	Filter     *routes.Filter
	Surface    display.Surface
	Rate       time.Duration
	Builder    Builder
	Labels     Labels
	Publishers []Publisher

	tick time.Duration
	now  func() time.Time
}

// Run blocks until ctx is done or a render pass fails. A failed pass calls
// stop so the rest of the program shuts down too.
func (l *Loop) Run(ctx context.Context, stop context.CancelFunc) error {
	tick := l.tick
	if tick <= 0 {
		tick = time.Second
	}
	if l.now == nil {
		l.now = time.Now
	}
	rate := l.Rate
	if rate <= 0 {
		rate = time.Second
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastRender time.Time
	var lastVersion uint64
	for {
		sel := l.Filter.Snapshot()
		now := l.now()
		if lastRender.IsZero() || now.Sub(lastRender) >= rate || sel.Version != lastVersion {
			lastRender = now
			lastVersion = sel.Version
			if err := l.RenderOnce(sel, now); err != nil {
				log.Printf("[render] fatal: %v", err)
				stop()
				return err
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("[render] stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RenderOnce draws one frame for sel. Any failure, including a panic while
// building the frame, is returned as an error.
func (l *Loop) RenderOnce(sel routes.Selection, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	view := l.Builder.Build(l.Store.Read(), sel, now)

	if err := l.Surface.Clear(); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	for _, line := range Header(view, l.Labels) {
		l.Surface.Println(line)
	}
	for _, line := range Body(view, l.Labels) {
		l.Surface.Println(line)
	}
	if err := l.Surface.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	for _, p := range l.Publishers {
		p.Publish(view)
	}
	return nil
}
