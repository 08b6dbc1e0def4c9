package groundtrack

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/tle"
)

var issRecord = &tle.Record{
	Key:   "25544",
	Line1: "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996",
	Line2: "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057",
}

var testStart = time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

type fakeRecords struct {
	rec *tle.Record
	err error
}

func (f fakeRecords) Get(ctx context.Context, key string) (*tle.Record, error) {
	return f.rec, f.err
}

func fixedNow() time.Time { return testStart }

func pts(lons ...float64) []Point {
	out := make([]Point, len(lons))
	for i, lon := range lons {
		out[i] = Point{Time: testStart.Add(time.Duration(i) * time.Minute), LonDeg: lon}
	}
	return out
}

func lons(s Segment) []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.LonDeg
	}
	return out
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   []Point
		want [][]float64
	}{
		{"empty", nil, nil},
		{"single", pts(10), [][]float64{{10}}},
		{"no crossing", pts(-10, 0, 10, 20), [][]float64{{-10, 0, 10, 20}}},
		{"eastward crossing", pts(170, 178, -176, -170), [][]float64{{170, 178}, {-176, -170}}},
		{"westward crossing", pts(-170, -178, 176), [][]float64{{-170, -178}, {176}}},
		{"two crossings", pts(179, -179, 179), [][]float64{{179}, {-179}, {179}}},
		{"exactly 180 is not a crossing", pts(-90, 90), [][]float64{{-90, 90}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.Equal(t, tt.want[i], lons(got[i]))
			}
			assert.Equal(t, len(tt.in), len(Flatten(got)))
		})
	}
}

// TestSplitNoInternalJump checks the segment invariant on random walks.
func TestSplitNoInternalJump(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		in := make([]Point, 1+rng.Intn(200))
		for i := range in {
			in[i].LonDeg = rng.Float64()*360 - 180
		}

		segments := Split(in)
		for _, s := range segments {
			require.NotEmpty(t, s)
			for i := 1; i < len(s); i++ {
				require.LessOrEqual(t, math.Abs(s[i].LonDeg-s[i-1].LonDeg), 180.0)
			}
		}
		require.Equal(t, in, Flatten(segments), "splitting must preserve order and count")
	}
}

func TestTrack(t *testing.T) {
	g := NewGenerator(fakeRecords{rec: issRecord}, propagation.SGP4{}, fixedNow)

	segments, err := g.Track(context.Background(), "25544", 180*time.Minute, time.Minute)
	require.NoError(t, err)

	points := Flatten(segments)
	require.Len(t, points, 181)
	assert.True(t, points[0].Time.Equal(testStart))
	for i := 1; i < len(points); i++ {
		assert.Equal(t, time.Minute, points[i].Time.Sub(points[i-1].Time))
	}

	// Three hours of ISS covers roughly two orbits, so at least one crossing.
	assert.GreaterOrEqual(t, len(segments), 2)
	for _, s := range segments {
		for i := 1; i < len(s); i++ {
			assert.LessOrEqual(t, math.Abs(s[i].LonDeg-s[i-1].LonDeg), 180.0)
		}
	}
	for _, p := range points {
		assert.LessOrEqual(t, math.Abs(p.LatDeg), 52.0)
	}
}

func TestTrackUsesLastGoodRecord(t *testing.T) {
	warn := &tle.FetchError{Key: "25544", Err: errors.New("catalog down")}
	g := NewGenerator(fakeRecords{rec: issRecord, err: warn}, propagation.SGP4{}, fixedNow)

	segments, err := g.Track(context.Background(), "25544", 10*time.Minute, time.Minute)
	require.NoError(t, err)
	assert.Len(t, Flatten(segments), 11)
}

func TestTrackErrors(t *testing.T) {
	bad := &tle.Record{Key: "bad", Line1: "x", Line2: "y"}

	tests := []struct {
		name     string
		records  fakeRecords
		duration time.Duration
		step     time.Duration
		check    func(t *testing.T, err error)
	}{
		{"no record", fakeRecords{err: &tle.FetchError{Key: "25544", Err: errors.New("down")}}, time.Hour, time.Minute,
			func(t *testing.T, err error) {
				var fe *tle.FetchError
				assert.ErrorAs(t, err, &fe)
			}},
		{"unknown", fakeRecords{err: tle.ErrUnknownSatellite}, time.Hour, time.Minute,
			func(t *testing.T, err error) { assert.ErrorIs(t, err, tle.ErrUnknownSatellite) }},
		{"nothing at all", fakeRecords{}, time.Hour, time.Minute,
			func(t *testing.T, err error) { assert.ErrorIs(t, err, tle.ErrNoRecord) }},
		{"garbage elements", fakeRecords{rec: bad}, time.Hour, time.Minute,
			func(t *testing.T, err error) {
				var pe *propagation.Error
				assert.ErrorAs(t, err, &pe)
			}},
		{"zero step", fakeRecords{rec: issRecord}, time.Hour, 0,
			func(t *testing.T, err error) { assert.Error(t, err) }},
		{"too many points", fakeRecords{rec: issRecord}, 24 * time.Hour, time.Second,
			func(t *testing.T, err error) { assert.ErrorContains(t, err, "exceeds limit") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.records, propagation.SGP4{}, fixedNow)
			_, err := g.Track(context.Background(), "25544", tt.duration, tt.step)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTrackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(fakeRecords{rec: issRecord}, propagation.SGP4{}, fixedNow)
	_, err := g.Track(ctx, "25544", time.Hour, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
