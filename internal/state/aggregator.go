// Package state computes the current position of every tracked satellite.
package state

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/passwatch/internal/metrics"
	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/tle"
)

// Issue kinds.
const (
	KindTLEFetch    = "tle_fetch"
	KindPropagation = "propagation"
	KindTLEMissing  = "tle_missing"
)

// KindOf maps an error from the store or propagator to an Issue kind.
func KindOf(err error) string {
	var fe *tle.FetchError
	switch {
	case errors.As(err, &fe):
		return KindTLEFetch
	case errors.Is(err, tle.ErrNoRecord), errors.Is(err, tle.ErrUnknownSatellite):
		return KindTLEMissing
	default:
		return KindPropagation
	}
}

// Issue is a non-fatal per-satellite problem reported alongside a snapshot.
type Issue struct {
	Key     string
	Kind    string
	Message string
}

// SatelliteState is one satellite's position at the snapshot instant plus the
// provenance of the element set it came from.
type SatelliteState struct {
	Key   string
	Label string
	Name  string // catalog name of the element set
	propagation.State

	TLEAge       time.Duration
	TLEFetchedAt time.Time
	TLEEpoch     time.Time
	TLESource    string
	Stale        bool // older than the staleness threshold, or kept after a failed refresh
}

// Snapshot is the state of all satellites at one instant. Satellites keeps
// configuration order and omits keys that could not be computed; each omission has
// an Issue.
type Snapshot struct {
	Time       time.Time
	Satellites []SatelliteState
	Errors     []Issue
}

// Store is the part of *tle.Store the aggregator reads.
type Store interface {
	Definitions() []tle.Definition
	Get(ctx context.Context, key string) (*tle.Record, error)
}

// Config tunes an Aggregator.
type Config struct {
	Workers    int           // concurrent satellites, default runtime.NumCPU()
	StaleAfter time.Duration // age at which a record is flagged stale, 0 disables
	Now        func() time.Time
}

// Aggregator fans propagation out across satellites, isolating failures per key.
type Aggregator struct {
	store  Store
	prop   propagation.Propagator
	config Config
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(store Store, prop propagation.Propagator, config Config, logger *slog.Logger) *Aggregator {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Aggregator{store: store, prop: prop, config: config, logger: logger}
}

type outcome struct {
	state  *SatelliteState
	issues []Issue
}

// Current computes every satellite at now. It never fails as a whole; problems are
// collected in Snapshot.Errors.
func (a *Aggregator) Current(ctx context.Context) Snapshot {
	now := a.config.Now().UTC()
	defs := a.store.Definitions()
	results := make([]outcome, len(defs))

	var g errgroup.Group
	g.SetLimit(a.config.Workers)
	for i, d := range defs {
		g.Go(func() error {
			results[i] = a.one(ctx, d, now)
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{
		Time:       now,
		Satellites: make([]SatelliteState, 0, len(defs)),
		Errors:     []Issue{},
	}
	var propErrors int
	for _, r := range results {
		if r.state != nil {
			snap.Satellites = append(snap.Satellites, *r.state)
		}
		for _, is := range r.issues {
			if is.Kind == KindPropagation {
				propErrors++
			}
			snap.Errors = append(snap.Errors, is)
		}
	}
	metrics.RecordPropagationErrors(propErrors)
	return snap
}

func (a *Aggregator) one(ctx context.Context, d tle.Definition, now time.Time) outcome {
	var out outcome

	rec, err := a.store.Get(ctx, d.Key)
	if err != nil {
		var fe *tle.FetchError
		kind := KindTLEMissing
		if errors.As(err, &fe) {
			kind = KindTLEFetch
		}
		out.issues = append(out.issues, Issue{Key: d.Key, Kind: kind, Message: err.Error()})
	}
	if rec == nil {
		if err == nil {
			out.issues = append(out.issues, Issue{Key: d.Key, Kind: KindTLEMissing, Message: tle.ErrNoRecord.Error()})
		}
		return out
	}

	st, perr := propagation.Propagate(a.prop, rec, now)
	if perr != nil {
		a.logger.Warn("propagation failed", "satellite", d.Key, "error", perr)
		out.issues = append(out.issues, Issue{Key: d.Key, Kind: KindPropagation, Message: perr.Error()})
		return out
	}

	age := rec.Age(now)
	out.state = &SatelliteState{
		Key:          d.Key,
		Label:        d.Label,
		Name:         rec.Name,
		State:        st,
		TLEAge:       age,
		TLEFetchedAt: rec.FetchedAt,
		TLEEpoch:     rec.Epoch,
		TLESource:    rec.Source,
		Stale:        err != nil || (a.config.StaleAfter > 0 && age >= a.config.StaleAfter),
	}
	return out
}
