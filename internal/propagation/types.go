package propagation

import (
	"errors"
	"fmt"
	"time"

	"github.com/star/passwatch/internal/transform"
)

// State is a satellite's position at one instant. It is a value type and is never
// cached beyond the instant it was computed for.
type State struct {
	Time     time.Time        // instant actually propagated to
	LatDeg   float64          // geodetic latitude, [-90, 90]
	LonDeg   float64          // longitude, (-180, 180]
	AltKm    float64          // height above the WGS-84 ellipsoid
	SpeedKmS float64          // inertial speed
	Position transform.Vector // Earth-fixed position, km
	GMST     float64          // Earth rotation angle used for Position, radians
}

var (
	// ErrInvalidElements is wrapped when an element set fails validation or SGP4
	// initialisation.
	ErrInvalidElements = errors.New("invalid element set")
	// ErrDecayed is wrapped when the propagated position lies at or below the surface.
	ErrDecayed = errors.New("satellite position below the surface")
	// ErrInvalidState is wrapped when SGP4 returns non-finite or implausibly distant output.
	ErrInvalidState = errors.New("propagation produced an invalid state")
)

// Error is a propagation failure for one satellite key.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("propagating %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
