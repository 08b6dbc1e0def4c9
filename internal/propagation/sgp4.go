package propagation

import (
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/passwatch/internal/tle"
	"github.com/star/passwatch/internal/transform"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go, no CGO, explicit TEME output. Propagate() takes the Satellite by value, so
// one compiled model can be shared across goroutines, but SGP4 error codes are not
// visible to the caller. Failures are detected from the output instead: NaN/Inf or an
// implausible radius.
//
// Propagate() accepts whole seconds only. Instants are truncated to the second and the
// State reports the instant actually used.

// SGP4 compiles element sets with the WGS-84 SGP4/SDP4 model.
type SGP4 struct{}

type sgp4Model struct {
	key string
	sat satellite.Satellite
}

// Compile implements Propagator. Lines are validated before reaching go-satellite,
// which calls log.Fatal on malformed input.
func (SGP4) Compile(rec *tle.Record) (Model, error) {
	if _, err := tle.Validate(rec.Line1, rec.Line2); err != nil {
		return nil, &Error{Key: rec.Key, Err: fmt.Errorf("%w: %v", ErrInvalidElements, err)}
	}

	sat := satellite.TLEToSat(rec.Line1, rec.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, &Error{Key: rec.Key, Err: fmt.Errorf("%w: sgp4 init code=%d %s", ErrInvalidElements, sat.Error, sat.ErrorStr)}
	}
	return &sgp4Model{key: rec.Key, sat: sat}, nil
}

// At implements Model.
func (m *sgp4Model) At(t time.Time) (State, error) {
	u := t.UTC().Truncate(time.Second)
	pos, vel := satellite.Propagate(m.sat, u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())

	teme := transform.Vector{X: pos.X, Y: pos.Y, Z: pos.Z}
	v := transform.Vector{X: vel.X, Y: vel.Y, Z: vel.Z}
	if !teme.Finite() || !v.Finite() {
		return State{}, &Error{Key: m.key, Err: fmt.Errorf("%w: output is NaN/Inf at %s", ErrInvalidState, u.Format(time.RFC3339))}
	}
	if !transform.ValidOrbitRadius(teme) {
		if teme.Norm() < transform.EarthRadiusKm {
			return State{}, &Error{Key: m.key, Err: ErrDecayed}
		}
		return State{}, &Error{Key: m.key, Err: fmt.Errorf("%w: radius %.1f km", ErrInvalidState, teme.Norm())}
	}

	gmst := transform.GMST(u)
	ecef := transform.InertialToFixed(teme, gmst)
	geo := transform.ECEFToGeodetic(ecef)
	if geo.AltKm <= 0 {
		return State{}, &Error{Key: m.key, Err: ErrDecayed}
	}

	return State{
		Time:     u,
		LatDeg:   geo.LatDeg,
		LonDeg:   geo.LonDeg,
		AltKm:    geo.AltKm,
		SpeedKmS: v.Norm(),
		Position: ecef,
		GMST:     gmst,
	}, nil
}
