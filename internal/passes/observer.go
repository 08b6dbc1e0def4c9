package passes

import (
	"fmt"
	"math"
	"time"

	"github.com/star/passwatch/internal/transform"
)

// Request bounds.
const (
	MinObserverElevationM = -500.0
	MaxObserverElevationM = 9000.0
	MaxHorizon            = 168 * time.Hour
	MaxLimit              = 50
)

// Observer is a ground location plus the minimum elevation a pass must reach. It is
// supplied per request and never persisted.
type Observer struct {
	LatDeg          float64
	LonDeg          float64
	ElevationM      float64
	MinElevationDeg float64
}

// Site returns the observer's precomputed topocentric frame.
func (o Observer) Site() transform.Site {
	return transform.NewSite(o.LatDeg, o.LonDeg, o.ElevationM/1000)
}

// ObserverInputError rejects an observer or search parameter before any search runs.
type ObserverInputError struct {
	Field  string
	Reason string
}

func (e *ObserverInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func inputError(field, format string, args ...any) error {
	return &ObserverInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the observer's coordinates and threshold.
func (o Observer) Validate() error {
	switch {
	case !finite(o.LatDeg) || o.LatDeg < -90 || o.LatDeg > 90:
		return inputError("lat", "%v outside [-90, 90]", o.LatDeg)
	case !finite(o.LonDeg) || o.LonDeg < -180 || o.LonDeg > 180:
		return inputError("lon", "%v outside [-180, 180]", o.LonDeg)
	case !finite(o.ElevationM) || o.ElevationM < MinObserverElevationM || o.ElevationM > MaxObserverElevationM:
		return inputError("elev", "%v m outside [%v, %v]", o.ElevationM, MinObserverElevationM, MaxObserverElevationM)
	case !finite(o.MinElevationDeg) || o.MinElevationDeg < 0 || o.MinElevationDeg >= 90:
		return inputError("min_el", "%v outside [0, 90)", o.MinElevationDeg)
	}
	return nil
}

// ValidateRequest checks a full pass search request.
func ValidateRequest(o Observer, horizon time.Duration, limit int) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if horizon <= 0 || horizon > MaxHorizon {
		return inputError("hours", "%v outside (0, %v]", horizon.Hours(), MaxHorizon.Hours())
	}
	if limit < 1 || limit > MaxLimit {
		return inputError("limit", "%d outside [1, %d]", limit, MaxLimit)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
