// Package snapshot holds the most recent device location and vehicle list.
//
// Each field is replaced atomically on its own and there is no consistency
// between fields: a reader may see a vehicle list from one poll alongside a
// location from an earlier one.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/shaunagostinho/busdash/internal/geo"
	"github.com/shaunagostinho/busdash/internal/transit"
)

type locationEntry struct {
	at   geo.Coordinate
	when time.Time
}

type vehiclesEntry struct {
	list []transit.Vehicle
	when time.Time
}

// Store is safe for concurrent use. Each field has a single writer.
type Store struct {
	location atomic.Pointer[locationEntry]
	vehicles atomic.Pointer[vehiclesEntry]

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// Snapshot is a read of the store. Location and Vehicles are nil until the
// first successful fetch of each.
type Snapshot struct {
	Location   *geo.Coordinate
	LocationAt time.Time

	Vehicles   []transit.Vehicle
	VehiclesAt time.Time
}

// HasVehicles reports whether a vehicle list has ever been stored. An empty
// list from the feed counts.
func (s Snapshot) HasVehicles() bool { return s.Vehicles != nil }

// SetLocation replaces the stored location.
func (s *Store) SetLocation(c geo.Coordinate) {
	s.location.Store(&locationEntry{at: c, when: s.now()})
}

// SetVehicles replaces the stored vehicle list. The slice is copied so the
// caller may reuse it.
func (s *Store) SetVehicles(list []transit.Vehicle) {
	cp := make([]transit.Vehicle, len(list))
	copy(cp, list)
	s.vehicles.Store(&vehiclesEntry{list: cp, when: s.now()})
}

// Read returns the current value of each field. The returned vehicle slice
// must not be modified.
func (s *Store) Read() Snapshot {
	var snap Snapshot
	if loc := s.location.Load(); loc != nil {
		at := loc.at
		snap.Location = &at
		snap.LocationAt = loc.when
	}
	if v := s.vehicles.Load(); v != nil {
		snap.Vehicles = v.list
		snap.VehiclesAt = v.when
	}
	return snap
}
