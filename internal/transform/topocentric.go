package transform

import "math"

// WGS-84 ellipsoid, kilometres.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// EarthRadiusKm is the WGS-84 equatorial radius.
const EarthRadiusKm = wgs84A

// Geodetic is a position on or above the WGS-84 ellipsoid.
type Geodetic struct {
	LatDeg, LonDeg float64
	AltKm          float64
}

// Site is a ground observer with its Earth-fixed position and SEZ rotation terms
// precomputed, so repeated look-angle evaluations stay cheap.
type Site struct {
	Geodetic
	ECEF                           Vector
	sinLat, cosLat, sinLon, cosLon float64
}

// LookAngles holds azimuth, elevation, and range from a site to a target.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith, negative below
	RangeKm      float64
}

// NewSite builds a Site from geodetic degrees and altitude in kilometres.
func NewSite(latDeg, lonDeg, altKm float64) Site {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	s := Site{
		Geodetic: Geodetic{LatDeg: latDeg, LonDeg: lonDeg, AltKm: altKm},
		sinLat:   math.Sin(lat),
		cosLat:   math.Cos(lat),
		sinLon:   math.Sin(lon),
		cosLon:   math.Cos(lon),
	}
	s.ECEF = GeodeticToECEF(latDeg, lonDeg, altKm)
	return s
}

// GeodeticToECEF converts geodetic degrees/kilometres to an Earth-fixed vector.
func GeodeticToECEF(latDeg, lonDeg, altKm float64) Vector {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Prime-vertical radius of curvature.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	return Vector{
		X: (n + altKm) * cosLat * math.Cos(lon),
		Y: (n + altKm) * cosLat * math.Sin(lon),
		Z: (n*(1-wgs84E2) + altKm) * sinLat,
	}
}

// ECEFToGeodetic converts an Earth-fixed vector to geodetic coordinates with Bowring
// iteration. Longitude is normalised to (−180, 180].
func ECEFToGeodetic(r Vector) Geodetic {
	lon := math.Atan2(r.Y, r.X)
	p := math.Hypot(r.X, r.Y)

	lat := math.Atan2(r.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(r.Z+wgs84E2*n*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(r.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg: lat * 180 / math.Pi,
		LonDeg: NormalizeLongitude(lon * 180 / math.Pi),
		AltKm:  alt,
	}
}

// NormalizeLongitude maps any longitude in degrees into (−180, 180].
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon <= -180 {
		lon += 360
	} else if lon > 180 {
		lon -= 360
	}
	return lon
}

// Look computes azimuth, elevation and range from the site to an Earth-fixed target,
// rotating the range vector into SEZ (South-East-Zenith), Vallado §4.4.
func (s Site) Look(target Vector) LookAngles {
	rho := target.Sub(s.ECEF)

	south := s.sinLat*s.cosLon*rho.X + s.sinLat*s.sinLon*rho.Y - s.cosLat*rho.Z
	east := -s.sinLon*rho.X + s.cosLon*rho.Y
	zenith := s.cosLat*s.cosLon*rho.X + s.cosLat*s.sinLon*rho.Y + s.sinLat*rho.Z

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return LookAngles{ElevationDeg: 90}
	}

	el := math.Asin(zenith / rng)
	// North is −South in SEZ.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180 / math.Pi,
		ElevationDeg: el * 180 / math.Pi,
		RangeKm:      rng,
	}
}
