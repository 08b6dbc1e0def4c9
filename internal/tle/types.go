package tle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Definition is a tracked satellite configured at startup.
type Definition struct {
	Key   string // stable identifier, the NORAD catalog number for CelesTrak sources
	Label string // display label
}

// Record is one fetched two-line element set. Records are never mutated; a refresh
// replaces the stored pointer with a new Record.
type Record struct {
	Key       string    `msgpack:"key"`
	Name      string    `msgpack:"name"` // catalog's line-0 name, may be empty
	Line1     string    `msgpack:"line1"`
	Line2     string    `msgpack:"line2"`
	Epoch     time.Time `msgpack:"epoch"`
	FetchedAt time.Time `msgpack:"fetched_at"`
	Source    string    `msgpack:"source"`
}

// Age returns how long before now the record was fetched.
func (r *Record) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}

var (
	// ErrUnknownSatellite is returned for keys that were not configured.
	ErrUnknownSatellite = errors.New("unknown satellite")
	// ErrNoRecord is returned when a key has never had a record.
	ErrNoRecord = errors.New("no element set available")
)

// FetchError reports a failed catalog fetch for one key. The store returns it
// alongside the last-good record when one exists.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching elements for %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DefaultDefinitions is the satellite list used when none is configured.
const DefaultDefinitions = "25544=ISS (ZARYA)"

// ParseDefinitions parses a comma-separated list of key=label pairs. A bare key is
// its own label. Order is preserved and keys must be unique.
func ParseDefinitions(s string) ([]Definition, error) {
	var defs []Definition
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, label, _ := strings.Cut(part, "=")
		key, label = strings.TrimSpace(key), strings.TrimSpace(label)
		if key == "" {
			return nil, fmt.Errorf("satellite entry %q has no key", part)
		}
		if label == "" {
			label = key
		}
		if seen[key] {
			return nil, fmt.Errorf("satellite %q listed twice", key)
		}
		seen[key] = true
		defs = append(defs, Definition{Key: key, Label: label})
	}
	if len(defs) == 0 {
		return nil, errors.New("no satellites configured")
	}
	return defs, nil
}
