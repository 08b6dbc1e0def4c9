package propagation

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/passwatch/internal/tle"
	"github.com/star/passwatch/internal/transform"
)

// Checksum-valid element sets: ISS, a low-inclination LEO and a geostationary orbit.
var (
	issRecord = &tle.Record{
		Key:   "25544",
		Line1: "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996",
		Line2: "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057",
	}
	leoRecord = &tle.Record{
		Key:   "20580",
		Line1: "1 20580U 90037B   25045.50000000  .00001000  00000+0  50000-4 0  9994",
		Line2: "2 20580  28.4700 100.0000 0002500  90.0000 270.0000 15.14000000 50000",
	}
	geoRecord = &tle.Record{
		Key:   "41866",
		Line1: "1 41866U 16071A   25045.50000000 -.00000100  00000+0  00000+0 0  9991",
		Line2: "2 41866   0.0200  90.0000 0001000 180.0000 180.0000  1.00270000 30000",
	}
)

var testStart = time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

// TestPropagateRanges checks the coordinate ranges over two days for every fixture.
func TestPropagateRanges(t *testing.T) {
	tests := []struct {
		rec            *tle.Record
		minAlt, maxAlt float64
		minSpd, maxSpd float64
		maxAbsLat      float64
	}{
		{issRecord, 380, 460, 7.5, 7.8, 52.0},
		{leoRecord, 450, 580, 7.4, 7.8, 28.8},
		{geoRecord, 35700, 35900, 3.0, 3.1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.rec.Key, func(t *testing.T) {
			m, err := SGP4{}.Compile(tt.rec)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			for i := 0; i < 48*60; i += 7 {
				at := testStart.Add(time.Duration(i) * time.Minute)
				s, err := m.At(at)
				if err != nil {
					t.Fatalf("At(%s): %v", at, err)
				}
				if s.LatDeg < -90 || s.LatDeg > 90 {
					t.Fatalf("latitude %.4f out of range at %s", s.LatDeg, at)
				}
				if s.LonDeg <= -180 || s.LonDeg > 180 {
					t.Fatalf("longitude %.4f out of range at %s", s.LonDeg, at)
				}
				if s.AltKm < tt.minAlt || s.AltKm > tt.maxAlt {
					t.Fatalf("altitude %.1f km outside [%.0f, %.0f] at %s", s.AltKm, tt.minAlt, tt.maxAlt, at)
				}
				if s.SpeedKmS < tt.minSpd || s.SpeedKmS > tt.maxSpd {
					t.Fatalf("speed %.3f km/s outside [%.1f, %.1f] at %s", s.SpeedKmS, tt.minSpd, tt.maxSpd, at)
				}
				if math.Abs(s.LatDeg) > tt.maxAbsLat {
					t.Fatalf("|latitude| %.3f exceeds inclination bound %.1f", s.LatDeg, tt.maxAbsLat)
				}
			}
		})
	}
}

// TestPropagateDeterministic verifies repeated and concurrent evaluation agree.
func TestPropagateDeterministic(t *testing.T) {
	m, err := SGP4{}.Compile(issRecord)
	if err != nil {
		t.Fatal(err)
	}
	want, err := m.At(testStart)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mismatches atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.At(testStart)
			if err != nil || got != want {
				mismatches.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := mismatches.Load(); n != 0 {
		t.Errorf("%d concurrent evaluations disagreed", n)
	}

	again, err := Propagate(SGP4{}, issRecord, testStart)
	if err != nil {
		t.Fatal(err)
	}
	if again != want {
		t.Errorf("freshly compiled model disagrees: %+v vs %+v", again, want)
	}
}

// TestPropagateTruncatesToSecond verifies sub-second instants resolve to the whole
// second the library supports.
func TestPropagateTruncatesToSecond(t *testing.T) {
	m, err := SGP4{}.Compile(issRecord)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := m.At(testStart)
	b, _ := m.At(testStart.Add(900 * time.Millisecond))
	if a != b {
		t.Errorf("sub-second offset changed the state")
	}
	if !b.Time.Equal(testStart) {
		t.Errorf("Time = %s, want %s", b.Time, testStart)
	}
}

// TestPropagateMatchesLibraryFrame cross-checks the Earth-fixed position against
// go-satellite's own ECIToECEF.
func TestPropagateMatchesLibraryFrame(t *testing.T) {
	s, err := Propagate(SGP4{}, issRecord, testStart)
	if err != nil {
		t.Fatal(err)
	}

	sat := satellite.TLEToSat(issRecord.Line1, issRecord.Line2, satellite.GravityWGS84)
	pos, _ := satellite.Propagate(sat, 2025, 2, 14, 12, 0, 0)
	gmst := satellite.GSTimeFromDate(2025, 2, 14, 12, 0, 0)
	ecef := satellite.ECIToECEF(pos, gmst)

	got := s.Position
	d := transform.Vector{X: ecef.X, Y: ecef.Y, Z: ecef.Z}.Sub(got).Norm()
	if d > 1e-3 {
		t.Errorf("position differs from library frame by %.6f km", d)
	}
}

func TestCompileRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		rec  *tle.Record
	}{
		{"empty", &tle.Record{Key: "x"}},
		{"text", &tle.Record{Key: "x", Line1: "invalid line 1", Line2: "invalid line 2"}},
		{"bad checksum", &tle.Record{Key: "x", Line1: issRecord.Line1[:68] + "0", Line2: issRecord.Line2}},
		{"swapped", &tle.Record{Key: "x", Line1: issRecord.Line2, Line2: issRecord.Line1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SGP4{}.Compile(tt.rec)
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if pe.Key != "x" {
				t.Errorf("Key = %q, want x", pe.Key)
			}
			if !errors.Is(err, ErrInvalidElements) {
				t.Errorf("expected ErrInvalidElements, got %v", err)
			}
		})
	}
}

type countingPropagator struct {
	calls atomic.Int32
}

func (c *countingPropagator) Compile(rec *tle.Record) (Model, error) {
	c.calls.Add(1)
	return SGP4{}.Compile(rec)
}

func TestCachedReusesModelPerRecord(t *testing.T) {
	inner := &countingPropagator{}
	c := NewCached(inner)

	for i := 0; i < 3; i++ {
		if _, err := c.Compile(issRecord); err != nil {
			t.Fatal(err)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Fatalf("compiled %d times, want 1", n)
	}

	// A refreshed record is a new pointer and must be recompiled.
	refreshed := *issRecord
	if _, err := c.Compile(&refreshed); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Fatalf("compiled %d times after refresh, want 2", n)
	}

	// Failures are not cached.
	bad := &tle.Record{Key: "bad", Line1: "x", Line2: "y"}
	for i := 0; i < 2; i++ {
		if _, err := c.Compile(bad); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := inner.calls.Load(); n != 4 {
		t.Fatalf("compiled %d times, want 4", n)
	}
}
