package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "passwatch_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwatch_tle_fetch_total",
			Help: "TLE catalog fetch attempts by result.",
		},
		[]string{"result"},
	)

	tleAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "passwatch_tle_age_seconds",
			Help: "Seconds since the stored element set was fetched.",
		},
		[]string{"satellite"},
	)

	propagationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passwatch_propagation_errors_total",
			Help: "Satellites omitted from a state snapshot because propagation failed.",
		},
	)

	passSearchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "passwatch_pass_search_seconds",
			Help:    "Wall time of one pass search.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	responseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwatch_response_cache_total",
			Help: "Response cache lookups by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	searchRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "passwatch_pass_search_rejected_total",
			Help: "Pass searches refused for lack of a slot, by which limit was hit.",
		},
		[]string{"limit"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleFetchTotal,
		tleAgeSeconds,
		propagationErrorsTotal,
		passSearchSeconds,
		responseCacheTotal,
		searchRejectedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTLEFetch counts one fetch attempt.
func RecordTLEFetch(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	tleFetchTotal.WithLabelValues(result).Inc()
}

// SetTLEAge sets the record age gauge for one satellite.
func SetTLEAge(key string, seconds float64) {
	tleAgeSeconds.WithLabelValues(key).Set(seconds)
}

// RecordPropagationErrors adds n failed propagations.
func RecordPropagationErrors(n int) {
	if n > 0 {
		propagationErrorsTotal.Add(float64(n))
	}
}

// ObservePassSearch records the duration of one pass search.
func ObservePassSearch(d time.Duration) {
	passSearchSeconds.Observe(d.Seconds())
}

// RecordCacheLookup counts a response cache hit or miss.
func RecordCacheLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	responseCacheTotal.WithLabelValues(endpoint, result).Inc()
}

// RecordSearchRejected counts a pass search turned away at the client or global limit.
func RecordSearchRejected(limit string) {
	searchRejectedTotal.WithLabelValues(limit).Inc()
}

// knownRoutes are the only path label values; anything else collapses to "other"
// to keep label cardinality bounded against scanners.
var knownRoutes = map[string]bool{
	"/":           true,
	"/healthz":    true,
	"/readyz":     true,
	"/metrics":    true,
	"/api/state":  true,
	"/api/track":  true,
	"/api/passes": true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
