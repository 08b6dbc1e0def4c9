package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/passwatch/internal/groundtrack"
	"github.com/star/passwatch/internal/httputil"
	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/state"
	"github.com/star/passwatch/internal/tle"
)

// trackWorkers bounds concurrent track generation in one request.
const trackWorkers = 4

var endpoints = []string{"/api/state", "/api/track", "/api/passes", "/healthz", "/readyz", "/metrics"}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp := indexResponse{
		Satellites: make([]indexSatellite, 0, len(s.svc.Satellites)),
		Endpoints:  endpoints,
	}
	for _, d := range s.svc.Satellites {
		resp.Satellites = append(resp.Satellites, indexSatellite{Key: d.Key, Label: d.Label})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.State.Current(r.Context())

	resp := stateResponse{
		Satellites: make([]satelliteJSON, 0, len(snap.Satellites)),
		UTC:        formatUTC(snap.Time),
		Errors:     make([]issueJSON, 0, len(snap.Errors)),
	}
	for _, st := range snap.Satellites {
		resp.Satellites = append(resp.Satellites, satelliteJSON{
			Key:           st.Key,
			Label:         st.Label,
			Lat:           st.LatDeg,
			Lon:           st.LonDeg,
			AltKm:         st.AltKm,
			SpeedKmS:      st.SpeedKmS,
			TLEAge:        int64(st.TLEAge / time.Second),
			TLEName:       st.Name,
			TLEFetchedUTC: formatUTC(st.TLEFetchedAt),
			TLEEpochUTC:   formatUTC(st.TLEEpoch),
			TLESource:     st.TLESource,
			Stale:         st.Stale,
		})
	}
	for _, is := range snap.Errors {
		resp.Errors = append(resp.Errors, issueJSON{Key: is.Key, Kind: is.Kind, Message: is.Message})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	q, err := parseTrackQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	key := q.cacheKey()
	if body, ok := s.trackCache.get(key); ok {
		writeBody(w, http.StatusOK, body, true)
		return
	}

	now := s.now().UTC()
	duration := time.Duration(q.minutes) * time.Minute
	step := time.Duration(q.stepSeconds) * time.Second

	type result struct {
		segments []groundtrack.Segment
		err      error
	}
	results := make([]result, len(s.svc.Satellites))

	var g errgroup.Group
	g.SetLimit(trackWorkers)
	for i, d := range s.svc.Satellites {
		g.Go(func() error {
			segs, err := s.svc.Tracks.Track(r.Context(), d.Key, duration, step)
			results[i] = result{segments: segs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	resp := trackResponse{
		Tracks:      make(map[string]trackJSON, len(s.svc.Satellites)),
		UTC:         formatUTC(now),
		Minutes:     q.minutes,
		StepSeconds: q.stepSeconds,
		Errors:      []issueJSON{},
	}
	for i, d := range s.svc.Satellites {
		res := results[i]
		if res.err != nil {
			s.logger.Warn("ground track failed", "satellite", d.Key, "error", res.err)
			resp.Errors = append(resp.Errors, issueFor(d.Key, res.err))
			continue
		}
		resp.Tracks[d.Key] = trackPayload(d.Label, res.segments)
	}

	body := s.writeJSON(w, http.StatusOK, resp)
	// Partial answers are not cached so the next poll retries the failed satellites.
	if body != nil && len(resp.Errors) == 0 {
		s.trackCache.add(key, body)
	}
}

func trackPayload(label string, segments []groundtrack.Segment) trackJSON {
	t := trackJSON{
		Label:    label,
		Points:   []pointJSON{},
		Segments: make([][]pointJSON, 0, len(segments)),
	}
	for _, seg := range segments {
		out := make([]pointJSON, 0, len(seg))
		for _, p := range seg {
			pj := pointJSON{Lat: p.LatDeg, Lon: p.LonDeg, UTC: formatUTC(p.Time)}
			out = append(out, pj)
			t.Points = append(t.Points, pj)
		}
		t.Segments = append(t.Segments, out)
	}
	return t
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	var defaultKey string
	if len(s.svc.Satellites) > 0 {
		defaultKey = s.svc.Satellites[0].Key
	}

	q, err := parsePassQuery(r.URL.Query(), defaultKey)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok := s.known[q.key]; !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", tle.ErrUnknownSatellite, q.key))
		return
	}

	key := q.cacheKey()
	if body, ok := s.passCache.get(key); ok {
		writeBody(w, http.StatusOK, body, true)
		return
	}

	ip := httputil.ClientIP(r, s.trustedProxies)
	done, ok := s.searches.admit(ip)
	if !ok {
		s.logger.Warn("pass search rejected, too many in flight", "remote_ip", ip)
		s.writeError(w, http.StatusTooManyRequests, errors.New("too many concurrent pass searches"))
		return
	}
	res, err := s.svc.Passes.Find(r.Context(), q.key, q.observer, q.horizon(), q.limit)
	done()
	if err != nil {
		status := passErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("pass search failed", "satellite", q.key, "error", err)
		}
		s.writeError(w, status, err)
		return
	}

	resp := passesResponse{
		Passes:    make([]passJSON, 0, len(res.Passes)),
		Satellite: q.key,
		Status:    res.Status,
		UTC:       formatUTC(res.Start),
		TZOffset:  q.tzOffset,
		Errors:    []issueJSON{},
	}
	for _, p := range res.Passes {
		resp.Passes = append(resp.Passes, passJSON{
			RiseLocal:         p.Rise.In(q.loc).Format(localLayout),
			MaxLocal:          p.Max.In(q.loc).Format(localLayout),
			SetLocal:          p.Set.In(q.loc).Format(localLayout),
			RiseUTC:           formatUTC(p.Rise),
			MaxUTC:            formatUTC(p.Max),
			SetUTC:            formatUTC(p.Set),
			MaxElevationDeg:   p.MaxElevationDeg,
			MaxAzimuthDeg:     p.MaxAzimuthDeg,
			DurationSeconds:   int64(p.Duration / time.Second),
			ObserverSunAltDeg: p.SunAltitudeDeg,
			SatSunlit:         p.Sunlit,
			LikelyVisible:     p.Visible,
			VisibilityLabel:   p.Label,
		})
	}
	if res.Warning != nil {
		resp.Errors = append(resp.Errors, issueFor(q.key, res.Warning))
	}

	body := s.writeJSON(w, http.StatusOK, resp)
	if body != nil && res.Warning == nil {
		s.passCache.add(key, body)
	}
}

// passErrorStatus maps a failed search to an HTTP status. Anything that reaches here
// has no usable result; a refresh failure with a last-good record is a warning and
// never an error.
func passErrorStatus(err error) int {
	var inputErr *passes.ObserverInputError
	var fe *tle.FetchError
	switch {
	case errors.As(err, &inputErr), errors.Is(err, tle.ErrUnknownSatellite):
		return http.StatusBadRequest
	case errors.Is(err, tle.ErrNoRecord), errors.As(err, &fe):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func issueFor(key string, err error) issueJSON {
	return issueJSON{Key: key, Kind: state.KindOf(err), Message: err.Error()}
}

func formatUTC(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON encodes v and writes it with status. It returns the encoded body, or nil
// when encoding failed and a 500 was written instead.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) []byte {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		writeBody(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`+"\n"), false)
		return nil
	}
	body = append(body, '\n')
	writeBody(w, status, body, false)
	return body
}

func writeBody(w http.ResponseWriter, status int, body []byte, cached bool) {
	w.Header().Set("Content-Type", "application/json")
	if cached {
		w.Header().Set("X-Cache", "HIT")
	}
	w.WriteHeader(status)
	w.Write(body)
}
