package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/star/passwatch/internal/passes"
)

// Pass query defaults.
const (
	defaultElevationM = 0
	defaultHours      = 48
	defaultLimit      = 5
	defaultMinEl      = 10
	defaultTZOffset   = "-06:00"
)

// Track query defaults and clamps, in minutes and seconds.
const (
	defaultTrackMinutes = 90
	minTrackMinutes     = 5
	maxTrackMinutes     = 180
	defaultTrackStep    = 60
	minTrackStep        = 5
	maxTrackStep        = 300
)

// localLayout formats pass times in the requested offset.
const localLayout = "2006-01-02 15:04:05"

func badParam(field, format string, args ...any) error {
	return &passes.ObserverInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func floatParam(q url.Values, name string, def float64, required bool) (float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		if required {
			return 0, badParam(name, "required")
		}
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, badParam(name, "%q is not a number", v)
	}
	return f, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badParam(name, "%q is not an integer", v)
	}
	return n, nil
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// parseTZOffset parses a fixed UTC offset written [+|-]HH:MM.
func parseTZOffset(s string) (*time.Location, error) {
	if len(s) != 6 || s[3] != ':' {
		return nil, badParam("tz_offset", "%q must look like -06:00 or +01:00", s)
	}
	if s[0] != '+' && s[0] != '-' {
		return nil, badParam("tz_offset", "%q must start with + or -", s)
	}
	for _, i := range []int{1, 2, 4, 5} {
		if s[i] < '0' || s[i] > '9' {
			return nil, badParam("tz_offset", "%q is not a valid offset", s)
		}
	}
	hh, _ := strconv.Atoi(s[1:3])
	mm, _ := strconv.Atoi(s[4:6])
	if hh > 23 || mm > 59 {
		return nil, badParam("tz_offset", "%q is not a valid offset", s)
	}
	secs := hh*3600 + mm*60
	if s[0] == '-' {
		secs = -secs
	}
	return time.FixedZone("UTC"+s, secs), nil
}

// passQuery is a parsed /api/passes request.
type passQuery struct {
	key      string
	observer passes.Observer
	hours    float64
	limit    int
	tzOffset string
	loc      *time.Location
}

func (q passQuery) horizon() time.Duration {
	return time.Duration(q.hours * float64(time.Hour))
}

// cacheKey normalises the query so equivalent requests share a cache entry.
func (q passQuery) cacheKey() string {
	return fmt.Sprintf("passes|sat=%s|lat=%.6f|lon=%.6f|elev=%.1f|hours=%g|limit=%d|min_el=%.1f|tz=%s",
		q.key, q.observer.LatDeg, q.observer.LonDeg, q.observer.ElevationM, q.hours, q.limit,
		q.observer.MinElevationDeg, q.tzOffset)
}

func parsePassQuery(q url.Values, defaultKey string) (passQuery, error) {
	var pq passQuery
	var err error

	if pq.observer.LatDeg, err = floatParam(q, "lat", 0, true); err != nil {
		return pq, err
	}
	if pq.observer.LonDeg, err = floatParam(q, "lon", 0, true); err != nil {
		return pq, err
	}
	if pq.observer.ElevationM, err = floatParam(q, "elev", defaultElevationM, false); err != nil {
		return pq, err
	}
	if pq.observer.MinElevationDeg, err = floatParam(q, "min_el", defaultMinEl, false); err != nil {
		return pq, err
	}
	if pq.hours, err = floatParam(q, "hours", defaultHours, false); err != nil {
		return pq, err
	}
	if pq.limit, err = intParam(q, "limit", defaultLimit); err != nil {
		return pq, err
	}

	pq.tzOffset = q.Get("tz_offset")
	if pq.tzOffset == "" {
		pq.tzOffset = defaultTZOffset
	}
	if pq.loc, err = parseTZOffset(pq.tzOffset); err != nil {
		return pq, err
	}

	pq.key = q.Get("sat")
	if pq.key == "" {
		pq.key = defaultKey
	}

	if err := passes.ValidateRequest(pq.observer, pq.horizon(), pq.limit); err != nil {
		return pq, err
	}
	return pq, nil
}

// trackQuery is a parsed /api/track request.
type trackQuery struct {
	minutes     int
	stepSeconds int
}

func (q trackQuery) cacheKey() string {
	return fmt.Sprintf("track|minutes=%d|step=%d", q.minutes, q.stepSeconds)
}

func parseTrackQuery(q url.Values) (trackQuery, error) {
	minutes, err := intParam(q, "minutes", defaultTrackMinutes)
	if err != nil {
		return trackQuery{}, err
	}

	stepName := "step"
	if q.Get(stepName) == "" {
		stepName = "step_seconds"
	}
	step, err := intParam(q, stepName, defaultTrackStep)
	if err != nil {
		return trackQuery{}, err
	}

	return trackQuery{
		minutes:     clamp(minutes, minTrackMinutes, maxTrackMinutes),
		stepSeconds: clamp(step, minTrackStep, maxTrackStep),
	}, nil
}
