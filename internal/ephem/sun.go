// Package ephem supplies the Sun position used by the visibility heuristic.
package ephem

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/star/passwatch/internal/transform"
)

const (
	// AstronomicalUnitKm is the IAU 2012 astronomical unit.
	AstronomicalUnitKm = 149597870.7
	// SolarRadiusKm is the nominal solar radius.
	SolarRadiusKm = 696000.0
)

// SunSource returns the geocentric inertial position of the Sun in km. The frame is
// the true equator of date, which the Earth-fixed rotation treats like TEME.
type SunSource interface {
	SunPosition(t time.Time) transform.Vector
}

// Meeus computes the apparent Sun from the low-precision solar theory in Meeus,
// "Astronomical Algorithms", ch. 25. Accuracy is about 0.01°, far better than the
// visibility heuristic needs.
type Meeus struct{}

// SunPosition implements SunSource.
func (Meeus) SunPosition(t time.Time) transform.Vector {
	// UTC is used in place of TT; the ~70 s difference moves the Sun by 0.001°.
	jde := julian.TimeToJD(t.UTC())
	ra, dec := solar.ApparentEquatorial(jde)
	r := solar.Radius(base.J2000Century(jde)) * AstronomicalUnitKm
	return equatorialToVector(ra, dec, r)
}

func equatorialToVector(ra unit.RA, dec unit.Angle, r float64) transform.Vector {
	a, d := ra.Rad(), dec.Rad()
	cosD := math.Cos(d)
	return transform.Vector{
		X: r * cosD * math.Cos(a),
		Y: r * cosD * math.Sin(a),
		Z: r * math.Sin(d),
	}
}

// SunFixed returns the Sun position rotated into the Earth-fixed frame at t.
func SunFixed(src SunSource, t time.Time) transform.Vector {
	return transform.InertialToFixed(src.SunPosition(t), transform.GMST(t))
}

// SunAltitude returns the geometric altitude of the Sun above the site's horizon in
// degrees. Refraction is ignored.
func SunAltitude(src SunSource, site transform.Site, t time.Time) float64 {
	return site.Look(SunFixed(src, t)).ElevationDeg
}

// Sunlit reports whether a satellite at sat is outside Earth's shadow cone, using the
// apparent semi-diameters of Earth and Sun seen from the satellite. Both vectors must
// be geocentric and in the same frame. Penumbra counts as sunlit.
func Sunlit(sat, sun transform.Vector) bool {
	r := sat.Norm()
	if r <= transform.EarthRadiusKm {
		return false
	}
	toSun := sun.Sub(sat)

	sdEarth := math.Asin(transform.EarthRadiusKm / r)
	sdSun := math.Asin(SolarRadiusKm / toSun.Norm())
	if sdEarth < sdSun {
		return true
	}
	// Angle between the directions to the Sun and to the Earth's centre.
	sep := transform.Angle(toSun, sat.Scale(-1))
	return sdEarth-sdSun-sep < 0
}
