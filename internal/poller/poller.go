// Package poller runs a fetch function on a fixed interval until its context
// is cancelled.
package poller

import (
	"context"
	"log"
	"time"
)

// Tick is how often a poller wakes to check its interval. It bounds shutdown
// latency; it is not a refresh granularity.
const Tick = time.Second

// FetchFunc performs one fetch and stores its result. A returned error is
// logged and the previous stored value is left alone.
type FetchFunc func(ctx context.Context) error

// Observer is notified of every fetch attempt.
type Observer interface {
	ObserveFetch(poller string, d time.Duration, err error)
}

// Poller repeatedly calls Fetch every Interval.
type Poller struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single fetch. Zero means no extra bound.
	Timeout  time.Duration
	Fetch    FetchFunc
	Observer Observer

	tick time.Duration
	now  func() time.Time
}

// Run blocks until ctx is done. The first fetch happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	tick := p.tick
	if tick <= 0 {
		tick = Tick
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer log.Printf("[%s] stopped", p.Name)

	var lastRefresh time.Time
	for {
		if lastRefresh.IsZero() || now().Sub(lastRefresh) >= p.Interval {
			started := now()
			if err := p.fetchOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Left unset so the next tick tries again.
				log.Printf("[%s] fetch failed: %v", p.Name, err)
			} else {
				lastRefresh = started
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context) error {
	fctx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.Fetch(fctx)
	if p.Observer != nil {
		p.Observer.ObserveFetch(p.Name, time.Since(start), err)
	}
	return err
}
