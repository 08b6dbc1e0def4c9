// Package passes finds the windows in which a satellite is above an observer's
// horizon and rates each for naked-eye visibility.
package passes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/passwatch/internal/ephem"
	"github.com/star/passwatch/internal/metrics"
	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/tle"
)

// Search statuses.
const (
	StatusFound    = "found"
	StatusNoPasses = "no_passes"
)

// Config tunes the search. Zero values take the defaults.
type Config struct {
	CoarseStep  time.Duration // scan step, default 60s
	Tolerance   time.Duration // root and maximum resolution, default and minimum 1s
	MaxRefine   int           // iteration cap per refinement, default 64
	TwilightDeg float64       // Sun altitude at or below which the sky counts as dark, default -6
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.CoarseStep <= 0 {
		c.CoarseStep = time.Minute
	}
	// Propagation resolves whole seconds.
	if c.Tolerance < time.Second {
		c.Tolerance = time.Second
	}
	if c.MaxRefine <= 0 {
		c.MaxRefine = 64
	}
	if c.TwilightDeg == 0 {
		c.TwilightDeg = DefaultTwilightDeg
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Event is one accepted pass. Rise < Max < Set and MaxElevationDeg is at least the
// requested minimum.
type Event struct {
	Rise, Max, Set  time.Time
	MaxElevationDeg float64
	MaxAzimuthDeg   float64
	Duration        time.Duration

	// Lighting at the maximum.
	SunAltitudeDeg float64
	Sunlit         bool
	Visible        bool
	Label          string
}

// Result is the outcome of one search. An empty Passes with StatusNoPasses is a
// valid answer, not a failure.
type Result struct {
	Key         string
	Start, End  time.Time
	Passes      []Event
	Status      string
	Warning     error // *tle.FetchError when a last-good record was searched
	Evaluations int
}

// RecordSource returns the current element set for a key. *tle.Store implements it.
type RecordSource interface {
	Get(ctx context.Context, key string) (*tle.Record, error)
}

// Finder searches passes against the store's current element sets.
type Finder struct {
	records RecordSource
	prop    propagation.Propagator
	sun     ephem.SunSource
	config  Config
	logger  *slog.Logger
}

// NewFinder creates a Finder.
func NewFinder(records RecordSource, prop propagation.Propagator, sun ephem.SunSource, config Config, logger *slog.Logger) *Finder {
	return &Finder{
		records: records,
		prop:    prop,
		sun:     sun,
		config:  config.withDefaults(),
		logger:  logger,
	}
}

// Find returns up to limit passes of key over obs that rise and set within
// [now, now+horizon], in chronological order. Invalid input fails with
// *ObserverInputError before any propagation.
func (f *Finder) Find(ctx context.Context, key string, obs Observer, horizon time.Duration, limit int) (Result, error) {
	if err := ValidateRequest(obs, horizon, limit); err != nil {
		return Result{}, err
	}

	rec, err := f.records.Get(ctx, key)
	if rec == nil {
		if err == nil {
			err = fmt.Errorf("%w: %s", tle.ErrNoRecord, key)
		}
		return Result{}, err
	}
	var warning error
	var fe *tle.FetchError
	if err != nil {
		if !errors.As(err, &fe) {
			return Result{}, err
		}
		warning = err
	}

	model, err := f.prop.Compile(rec)
	if err != nil {
		return Result{}, err
	}

	start := f.config.Now().UTC().Truncate(time.Second)
	res, err := f.search(ctx, model, obs, start, start.Add(horizon), limit)
	if err != nil {
		return Result{}, err
	}
	res.Key = key
	res.Warning = warning
	return res, nil
}

// search runs the scan and evaluates lighting for every accepted pass.
func (f *Finder) search(ctx context.Context, model propagation.Model, obs Observer, start, end time.Time, limit int) (Result, error) {
	t0 := time.Now()
	site := obs.Site()
	s := &scan{ctx: ctx, model: model, site: site, cfg: f.config}

	candidates, err := s.run(start, end, obs.MinElevationDeg, limit)
	metrics.ObservePassSearch(time.Since(t0))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Start:       start,
		End:         end,
		Passes:      make([]Event, 0, len(candidates)),
		Status:      StatusFound,
		Evaluations: s.evals,
	}
	for _, c := range candidates {
		sun := ephem.SunFixed(f.sun, c.max.state.Time)
		sunAlt := site.Look(sun).ElevationDeg
		sunlit := ephem.Sunlit(c.max.state.Position, sun)
		visible, label := Classify(sunAlt, sunlit, f.config.TwilightDeg)

		res.Passes = append(res.Passes, Event{
			Rise:            c.rise.t,
			Max:             c.max.t,
			Set:             c.set.t,
			MaxElevationDeg: c.max.el(),
			MaxAzimuthDeg:   c.max.look.AzimuthDeg,
			Duration:        c.set.t.Sub(c.rise.t),
			SunAltitudeDeg:  sunAlt,
			Sunlit:          sunlit,
			Visible:         visible,
			Label:           label,
		})
	}
	if len(res.Passes) == 0 {
		res.Status = StatusNoPasses
	}

	f.logger.Debug("pass search complete",
		"passes", len(res.Passes),
		"evaluations", s.evals,
		"duration_ms", time.Since(t0).Milliseconds(),
	)
	return res, nil
}
