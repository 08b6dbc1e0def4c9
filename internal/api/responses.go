package api

// Wire types. Every endpoint emits exactly these shapes; slices are always non-nil
// so clients never see null where they expect a list.

type errorResponse struct {
	Error string `json:"error"`
}

type issueJSON struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type satelliteJSON struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	AltKm         float64 `json:"alt_km"`
	SpeedKmS      float64 `json:"speed_km_s"`
	TLEAge        int64   `json:"tle_age"` // seconds
	TLEName       string  `json:"tle_name"`
	TLEFetchedUTC string  `json:"tle_fetched_utc"`
	TLEEpochUTC   string  `json:"tle_epoch_utc"`
	TLESource     string  `json:"tle_source"`
	Stale         bool    `json:"stale"`
}

type stateResponse struct {
	Satellites []satelliteJSON `json:"satellites"`
	UTC        string          `json:"utc"`
	Errors     []issueJSON     `json:"errors"`
}

type pointJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	UTC string  `json:"utc"`
}

type trackJSON struct {
	Label    string        `json:"label"`
	Points   []pointJSON   `json:"points"`
	Segments [][]pointJSON `json:"segments"`
}

type trackResponse struct {
	Tracks      map[string]trackJSON `json:"tracks"`
	UTC         string               `json:"utc"`
	Minutes     int                  `json:"minutes"`
	StepSeconds int                  `json:"step_seconds"`
	Errors      []issueJSON          `json:"errors"`
}

type passJSON struct {
	RiseLocal         string  `json:"rise_local"`
	MaxLocal          string  `json:"max_local"`
	SetLocal          string  `json:"set_local"`
	RiseUTC           string  `json:"rise_utc"`
	MaxUTC            string  `json:"max_utc"`
	SetUTC            string  `json:"set_utc"`
	MaxElevationDeg   float64 `json:"max_elevation_deg"`
	MaxAzimuthDeg     float64 `json:"max_azimuth_deg"`
	DurationSeconds   int64   `json:"duration_seconds"`
	ObserverSunAltDeg float64 `json:"observer_sun_alt_deg"`
	SatSunlit         bool    `json:"sat_sunlit"`
	LikelyVisible     bool    `json:"likely_visible"`
	VisibilityLabel   string  `json:"visibility_label"`
}

type passesResponse struct {
	Passes    []passJSON  `json:"passes"`
	Satellite string      `json:"satellite"`
	Status    string      `json:"status"`
	UTC       string      `json:"utc"`
	TZOffset  string      `json:"tz_offset"`
	Errors    []issueJSON `json:"errors"`
}

type indexSatellite struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type indexResponse struct {
	Satellites []indexSatellite `json:"satellites"`
	Endpoints  []string         `json:"endpoints"`
}
