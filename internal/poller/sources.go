package poller

import (
	"context"
	"fmt"

	"github.com/shaunagostinho/busdash/internal/gps"
	"github.com/shaunagostinho/busdash/internal/snapshot"
	"github.com/shaunagostinho/busdash/internal/transit"
)

// Location reads one fix from p and stores its position. Invalid fixes are
// reported as errors so the previous location is kept.
func Location(p gps.Provider, store *snapshot.Store) FetchFunc {
	return func(ctx context.Context) error {
		fix, err := p.Read(ctx)
		if err != nil {
			return err
		}
		if fix == nil || !fix.Valid {
			return gps.ErrNoFix
		}
		store.SetLocation(fix.Coordinate())
		return nil
	}
}

// Vehicles fetches the full feed and stores the decoded list.
func Vehicles(f transit.Feed, store *snapshot.Store) FetchFunc {
	return func(ctx context.Context) error {
		list, err := f.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name(), err)
		}
		store.SetVehicles(list)
		return nil
	}
}
