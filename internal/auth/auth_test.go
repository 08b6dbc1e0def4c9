package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	enabled := Middleware(Config{Enabled: true, Token: "s3cret"})(ok)
	disabled := Middleware(Config{})(ok)

	tests := []struct {
		name    string
		handler http.Handler
		path    string
		header  string
		want    int
	}{
		{"disabled passes api", disabled, "/api/state", "", http.StatusNoContent},
		{"healthz public", enabled, "/healthz", "", http.StatusNoContent},
		{"readyz public", enabled, "/readyz", "", http.StatusNoContent},
		{"metrics public", enabled, "/metrics", "", http.StatusNoContent},
		{"index public", enabled, "/", "", http.StatusNoContent},
		{"api missing header", enabled, "/api/passes", "", http.StatusUnauthorized},
		{"api wrong scheme", enabled, "/api/passes", "Basic s3cret", http.StatusUnauthorized},
		{"api bare token", enabled, "/api/passes", "s3cret", http.StatusUnauthorized},
		{"api wrong token", enabled, "/api/track", "Bearer nope", http.StatusUnauthorized},
		{"api valid token", enabled, "/api/track", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
				if rec.Body.String() != "{\"error\":\"unauthorized\"}\n" {
					t.Errorf("body = %q", rec.Body.String())
				}
			}
		})
	}
}
