package tle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/passwatch/internal/metrics"
)

// StoreConfig controls the staleness policy of a Store.
type StoreConfig struct {
	MaxAge        time.Duration    // records older than this are refreshed on read
	RetryInterval time.Duration    // minimum spacing between attempts after a failed fetch
	Cache         *Cache           // optional disk persistence of last-good records
	Now           func() time.Time // clock, defaults to time.Now
}

// entry is the per-key slot. rec is swapped atomically so readers never lock;
// mu is held only by the goroutine performing a fetch.
type entry struct {
	def      Definition
	rec      atomic.Pointer[Record]
	mu       sync.Mutex
	failedAt atomic.Int64 // unix nanoseconds of the last failed attempt, 0 after success
	lastErr  atomic.Pointer[FetchError]
}

func (e *entry) warning() error {
	if fe := e.lastErr.Load(); fe != nil {
		return fe
	}
	return nil
}

// Store owns the latest element set per configured satellite. It refreshes lazily on
// read: a stale record triggers at most one in-flight fetch per key while every other
// reader keeps getting the last-good record.
type Store struct {
	source Source
	config StoreConfig
	logger *slog.Logger

	defs    []Definition
	entries map[string]*entry // fixed after construction
}

// NewStore creates a Store for defs, fetching through src.
func NewStore(defs []Definition, src Source, config StoreConfig, logger *slog.Logger) *Store {
	if config.MaxAge <= 0 {
		config.MaxAge = 3 * time.Hour
	}
	if config.RetryInterval < 0 {
		config.RetryInterval = 0
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &Store{
		source:  src,
		config:  config,
		logger:  logger,
		defs:    append([]Definition(nil), defs...),
		entries: make(map[string]*entry, len(defs)),
	}
	for _, d := range defs {
		s.entries[d.Key] = &entry{def: d}
	}
	return s
}

// Definitions returns the configured satellites in configuration order.
func (s *Store) Definitions() []Definition {
	return append([]Definition(nil), s.defs...)
}

// Definition returns the configured satellite for key.
func (s *Store) Definition(key string) (Definition, bool) {
	e, ok := s.entries[key]
	if !ok {
		return Definition{}, false
	}
	return e.def, true
}

// Get returns the freshest record for key, fetching when the cached record is missing
// or older than MaxAge.
//
// When a refresh fails and a previous record exists, Get returns that record together
// with a *FetchError; callers should serve the record and surface the error as a
// warning. A nil record means nothing usable is available.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSatellite, key)
	}

	now := s.config.Now()
	if rec := e.rec.Load(); rec != nil {
		if s.fresh(rec, now) {
			return rec, nil
		}
		if s.backingOff(e, now) {
			return rec, e.warning()
		}
		if !e.mu.TryLock() {
			// Another reader is refreshing; serve last-good without waiting.
			return rec, nil
		}
	} else {
		// Nothing to serve yet, so wait for any in-flight fetch.
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	// Re-check under the lock: the fetch we waited on may have landed.
	now = s.config.Now()
	prev := e.rec.Load()
	if prev != nil && s.fresh(prev, now) {
		return prev, nil
	}
	if s.backingOff(e, now) {
		return prev, e.warning()
	}

	return s.refresh(ctx, e, prev, now)
}

// refresh fetches a new record for e. Caller holds e.mu.
func (s *Store) refresh(ctx context.Context, e *entry, prev *Record, now time.Time) (*Record, error) {
	key := e.def.Key
	start := time.Now()

	rec, err := s.source.Fetch(ctx, key)
	if err != nil {
		fe := &FetchError{Key: key, Err: err}
		e.failedAt.Store(now.UnixNano())
		e.lastErr.Store(fe)
		metrics.RecordTLEFetch(false)

		s.logger.Warn("TLE fetch failed",
			"satellite", key,
			"has_last_good", prev != nil,
			"error", err,
		)
		return prev, fe
	}

	rec.Key = key
	rec.FetchedAt = now
	stored := &rec
	e.rec.Store(stored)
	e.failedAt.Store(0)
	e.lastErr.Store(nil)
	metrics.RecordTLEFetch(true)

	s.logger.Info("TLE refreshed",
		"satellite", key,
		"name", rec.Name,
		"epoch", rec.Epoch.UTC().Format(time.RFC3339),
		"source", rec.Source,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if s.config.Cache != nil {
		if err := s.config.Cache.Write(stored); err != nil {
			s.logger.Warn("failed to write TLE cache", "satellite", key, "error", err)
		}
	}

	return stored, nil
}

func (s *Store) fresh(rec *Record, now time.Time) bool {
	return rec.Age(now) < s.config.MaxAge
}

func (s *Store) backingOff(e *entry, now time.Time) bool {
	failed := e.failedAt.Load()
	if failed == 0 || s.config.RetryInterval == 0 {
		return false
	}
	return now.Sub(time.Unix(0, failed)) < s.config.RetryInterval
}

// Peek returns the stored record for key without triggering a refresh.
func (s *Store) Peek(key string) (*Record, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	rec := e.rec.Load()
	return rec, rec != nil
}

// Set installs rec for its key, replacing any stored record. Unknown keys are ignored
// and reported as false.
func (s *Store) Set(rec *Record) bool {
	e, ok := s.entries[rec.Key]
	if !ok {
		return false
	}
	e.rec.Store(rec)
	return true
}

// Age returns the time elapsed since the stored record for key was fetched.
// ok is false when no record exists.
func (s *Store) Age(key string) (age time.Duration, ok bool) {
	rec, ok := s.Peek(key)
	if !ok {
		return 0, false
	}
	return rec.Age(s.config.Now()), true
}

// Ready reports whether every configured satellite has a record.
func (s *Store) Ready() bool {
	for _, e := range s.entries {
		if e.rec.Load() == nil {
			return false
		}
	}
	return true
}

// LoadCached seeds empty slots from the disk cache and returns how many were loaded.
// Cached records keep their original fetch time, so stale ones are refreshed on the
// first read while still serving as last-good.
func (s *Store) LoadCached() int {
	if s.config.Cache == nil {
		return 0
	}
	var n int
	for _, d := range s.defs {
		e := s.entries[d.Key]
		if e.rec.Load() != nil {
			continue
		}
		rec, err := s.config.Cache.LoadLatest(d.Key)
		if err != nil {
			s.logger.Debug("no cached TLE", "satellite", d.Key, "error", err)
			continue
		}
		if _, err := Validate(rec.Line1, rec.Line2); err != nil {
			s.logger.Warn("discarding invalid cached TLE", "satellite", d.Key, "error", err)
			continue
		}
		e.rec.Store(rec)
		n++
		s.logger.Info("loaded TLE from cache",
			"satellite", d.Key,
			"fetched_at", rec.FetchedAt.UTC().Format(time.RFC3339),
		)
	}
	return n
}

// UpdateAgeMetrics publishes the per-key record age gauge.
func (s *Store) UpdateAgeMetrics() {
	now := s.config.Now()
	for _, d := range s.defs {
		if rec, ok := s.Peek(d.Key); ok {
			metrics.SetTLEAge(d.Key, rec.Age(now).Seconds())
		}
	}
}
