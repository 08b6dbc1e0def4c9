package ephem

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"

	"github.com/star/passwatch/internal/transform"
)

func TestMeeusDistance(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		au   float64
	}{
		// Perihelion and aphelion of 2025.
		{"perihelion", time.Date(2025, 1, 4, 13, 0, 0, 0, time.UTC), 0.98333},
		{"aphelion", time.Date(2025, 7, 3, 20, 0, 0, 0, time.UTC), 1.01664},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Meeus{}.SunPosition(tt.t).Norm() / AstronomicalUnitKm
			assert.InDelta(t, tt.au, r, 1e-3)
		})
	}
}

func TestMeeusDeclination(t *testing.T) {
	tests := []struct {
		name   string
		t      time.Time
		decDeg float64
	}{
		{"june solstice", time.Date(2025, 6, 21, 2, 42, 0, 0, time.UTC), 23.44},
		{"december solstice", time.Date(2025, 12, 21, 15, 3, 0, 0, time.UTC), -23.44},
		{"march equinox", time.Date(2025, 3, 20, 9, 1, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Meeus{}.SunPosition(tt.t)
			dec := math.Asin(p.Z/p.Norm()) * 180 / math.Pi
			assert.InDelta(t, tt.decDeg, dec, 0.05)
		})
	}
}

func TestSunAltitude(t *testing.T) {
	greenwich := transform.NewSite(0, 0, 0)
	equinox := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	// Near the equinox the equatorial Sun stands near the zenith at 12:07 UTC
	// (equation of time) and near the nadir twelve hours earlier.
	noon := SunAltitude(Meeus{}, greenwich, equinox.Add(12*time.Hour+7*time.Minute))
	assert.Greater(t, noon, 85.0)

	midnight := SunAltitude(Meeus{}, greenwich, equinox.Add(7*time.Minute))
	assert.Less(t, midnight, -85.0)

	// Birmingham, Alabama at 03:00 UTC in February is 21:00 local: well after dusk.
	bham := transform.NewSite(33.5207, -86.8025, 0.18)
	evening := SunAltitude(Meeus{}, bham, time.Date(2025, 2, 15, 3, 0, 0, 0, time.UTC))
	assert.Less(t, evening, -18.0)
}

func TestSunlit(t *testing.T) {
	sun := transform.Vector{X: AstronomicalUnitKm}

	tests := []struct {
		name string
		sat  transform.Vector
		want bool
	}{
		{"day side", transform.Vector{X: 6778}, true},
		{"night side", transform.Vector{X: -6778}, false},
		{"terminator", transform.Vector{Y: 6778}, true},
		{"behind earth, just outside the cone", transform.Vector{X: -6778, Y: 6500}, true},
		{"behind earth, inside the cone", transform.Vector{X: -6778, Y: 6000}, false},
		{"geostationary, behind earth", transform.Vector{X: -42164}, false},
		{"geostationary, clear of the shadow", transform.Vector{X: -42164, Y: 10000}, true},
		{"below surface", transform.Vector{X: 6000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sunlit(tt.sat, sun))
		})
	}
}

func TestEquatorialToVector(t *testing.T) {
	v := equatorialToVector(unit.RAFromRad(math.Pi/2), unit.AngleFromDeg(0), 2)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 2, v.Y, 1e-12)
	assert.InDelta(t, 0, v.Z, 1e-12)

	v = equatorialToVector(unit.RAFromRad(0), unit.AngleFromDeg(90), 3)
	assert.InDelta(t, 3, v.Z, 1e-12)
	assert.InDelta(t, 3, v.Norm(), 1e-12)
}
