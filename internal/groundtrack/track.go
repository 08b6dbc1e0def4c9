// Package groundtrack samples future subpoints of a satellite and splits them into
// segments that never cross the antimeridian.
package groundtrack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/tle"
)

// MaxPoints bounds one track request.
const MaxPoints = 10000

// Point is one subpoint.
type Point struct {
	Time   time.Time
	LatDeg float64
	LonDeg float64
}

// Segment is a run of consecutive points with no antimeridian crossing.
type Segment []Point

// RecordSource returns the current element set for a key. *tle.Store implements it.
type RecordSource interface {
	Get(ctx context.Context, key string) (*tle.Record, error)
}

// Generator produces ground tracks from the store's current element sets.
type Generator struct {
	records RecordSource
	prop    propagation.Propagator
	now     func() time.Time
}

// NewGenerator creates a Generator. now defaults to time.Now.
func NewGenerator(records RecordSource, prop propagation.Propagator, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{records: records, prop: prop, now: now}
}

// Track samples the satellite every step from now to now+duration inclusive and
// returns the samples split at antimeridian crossings. A last-good record is used
// when the store reports a failed refresh.
func (g *Generator) Track(ctx context.Context, key string, duration, step time.Duration) ([]Segment, error) {
	points, err := g.Points(ctx, key, duration, step)
	if err != nil {
		return nil, err
	}
	return Split(points), nil
}

// Points returns the flat sample sequence used by Track.
func (g *Generator) Points(ctx context.Context, key string, duration, step time.Duration) ([]Point, error) {
	if duration <= 0 || step <= 0 {
		return nil, fmt.Errorf("duration %s and step %s must be positive", duration, step)
	}
	n := int(duration/step) + 1
	if n > MaxPoints {
		return nil, fmt.Errorf("track of %d points exceeds limit of %d", n, MaxPoints)
	}

	rec, err := g.records.Get(ctx, key)
	if rec == nil {
		if err == nil {
			err = fmt.Errorf("%w: %s", tle.ErrNoRecord, key)
		}
		return nil, err
	}
	var fe *tle.FetchError
	if err != nil && !errors.As(err, &fe) {
		return nil, err
	}

	model, err := g.prop.Compile(rec)
	if err != nil {
		return nil, err
	}

	start := g.now()
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := model.At(start.Add(time.Duration(i) * step))
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Time: s.Time, LatDeg: s.LatDeg, LonDeg: s.LonDeg})
	}
	return points, nil
}

// Split partitions points into segments, starting a new one whenever consecutive
// longitudes differ by more than 180°.
func Split(points []Point) []Segment {
	if len(points) == 0 {
		return nil
	}

	var segments []Segment
	cur := Segment{points[0]}
	for i := 1; i < len(points); i++ {
		if math.Abs(points[i].LonDeg-points[i-1].LonDeg) > 180 {
			segments = append(segments, cur)
			cur = Segment{}
		}
		cur = append(cur, points[i])
	}
	return append(segments, cur)
}

// Flatten concatenates segments back into one ordered sequence.
func Flatten(segments []Segment) []Point {
	var n int
	for _, s := range segments {
		n += len(s)
	}
	out := make([]Point, 0, n)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
