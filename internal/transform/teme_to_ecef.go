// Package transform holds the frame math shared by propagation and pass search.
//
// SGP4 emits TEME (True Equator Mean Equinox) vectors. The Earth-fixed frame used here is
// reached by a single GMST rotation about Z (TEME → PEF ≈ ECEF); polar motion and the
// equation of the equinoxes are ignored, which costs tens of metres at most. All
// distances in this package are kilometres.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import "math"

// Vector is a Cartesian 3-vector in kilometres (or km/s for velocities).
type Vector struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v − w.
func (v Vector) Sub(w Vector) Vector {
	return Vector{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Dot returns the scalar product.
func (v Vector) Dot(w Vector) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Scale returns v multiplied by k.
func (v Vector) Scale(k float64) Vector {
	return Vector{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Finite reports whether every component is a finite number.
func (v Vector) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Angle returns the angle between v and w in radians.
func Angle(v, w Vector) float64 {
	n := v.Norm() * w.Norm()
	if n == 0 {
		return 0
	}
	c := v.Dot(w) / n
	// Clamp rounding noise before Acos.
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c)
}

// InertialToFixed rotates an inertial (TEME or mean equatorial) position into the
// Earth-fixed frame using a precomputed GMST angle in radians: r_ECEF = R3(θ)·r_TEME.
func InertialToFixed(r Vector, gmst float64) Vector {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)
	return Vector{
		X: r.X*cosG + r.Y*sinG,
		Y: -r.X*sinG + r.Y*cosG,
		Z: r.Z,
	}
}

// ValidOrbitRadius reports whether a geocentric position is physically plausible
// for an Earth-orbiting satellite: finite, and between 6200 km and 50000 km from the
// centre (below the surface means decayed, above GEO+ is garbage output).
func ValidOrbitRadius(r Vector) bool {
	if !r.Finite() {
		return false
	}
	mag := r.Norm()
	return mag >= 6200.0 && mag <= 50000.0
}
