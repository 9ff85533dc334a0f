// Package routes parses and holds the set of bus routes being watched.
package routes

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrEmptyRoutes is returned when input contains no route tokens.
var ErrEmptyRoutes = errors.New("no routes given")

// Width is the zero-padded width the feed uses for route identifiers.
const Width = 2

var exitWords = map[string]struct{}{"quit": {}, "exit": {}}

// IsExit reports whether text is a request to leave the program.
func IsExit(text string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Parse splits text on commas and whitespace and pads each token to Width,
// so "2, 4 6" becomes ["02" "04" "06"]. Duplicates are dropped.
func Parse(text string) ([]string, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil, ErrEmptyRoutes
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		r := pad(f)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func pad(route string) string {
	if n := utf8.RuneCountInString(route); n < Width {
		return strings.Repeat("0", Width-n) + route
	}
	return route
}

// Filter is the active route set. Replace is atomic with respect to
// Snapshot; each Replace that changes the list bumps the version.
type Filter struct {
	mu      sync.RWMutex
	routes  []string
	set     map[string]struct{}
	version uint64
}

// NewFilter returns a filter holding initial, which may be empty.
func NewFilter(initial []string) *Filter {
	f := &Filter{}
	if len(initial) > 0 {
		f.Replace(initial)
	}
	return f
}

// Replace swaps in a new route list and reports whether it changed.
// Empty lists and the current list are ignored.
func (f *Filter) Replace(routes []string) bool {
	if len(routes) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		set[r] = struct{}{}
	}
	list := append([]string(nil), routes...)

	f.mu.Lock()
	defer f.mu.Unlock()
	if slices.Equal(f.routes, list) {
		return false
	}
	f.routes = list
	f.set = set
	f.version++
	return true
}

// Selection is an immutable view of the filter.
type Selection struct {
	Routes  []string            // In the order the user typed them
	Set     map[string]struct{} // For membership tests
	Version uint64
}

// Snapshot returns the current selection.
func (f *Filter) Snapshot() Selection {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Selection{Routes: f.routes, Set: f.set, Version: f.version}
}

// Version returns the number of successful replacements so far.
func (f *Filter) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// Sorted returns the routes in lexical order.
func (s Selection) Sorted() []string {
	out := append([]string(nil), s.Routes...)
	sort.Strings(out)
	return out
}
