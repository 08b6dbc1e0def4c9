package api

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/star/passwatch/internal/passes"
)

func TestParseTZOffset(t *testing.T) {
	tests := []struct {
		in      string
		offset  int
		wantErr bool
	}{
		{"-06:00", -6 * 3600, false},
		{"+00:00", 0, false},
		{"+05:30", 5*3600 + 30*60, false},
		{"-09:45", -(9*3600 + 45*60), false},
		{"+23:59", 23*3600 + 59*60, false},
		{"+24:00", 0, true},
		{"-06:60", 0, true},
		{"06:00", 0, true},
		{"-0600", 0, true},
		{"-6:00", 0, true},
		{"Z", 0, true},
		{"", 0, true},
		{"+ab:cd", 0, true},
		{"+-5:00", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := parseTZOffset(tt.in)
			if tt.wantErr {
				var ie *passes.ObserverInputError
				if !errors.As(err, &ie) || ie.Field != "tz_offset" {
					t.Fatalf("parseTZOffset(%q) err = %v, want tz_offset input error", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTZOffset(%q): %v", tt.in, err)
			}
			_, got := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
			if got != tt.offset {
				t.Errorf("offset = %d, want %d", got, tt.offset)
			}
		})
	}
}

func TestPassQueryCacheKeyNormalises(t *testing.T) {
	a, err := parsePassQuery(url.Values{"lat": {"10"}, "lon": {"20"}}, "25544")
	if err != nil {
		t.Fatal(err)
	}
	b, err := parsePassQuery(url.Values{
		"lat": {"10.000"}, "lon": {"20"}, "elev": {"0"}, "hours": {"48"},
		"limit": {"5"}, "min_el": {"10"}, "tz_offset": {"-06:00"}, "sat": {"25544"},
	}, "25544")
	if err != nil {
		t.Fatal(err)
	}
	if a.cacheKey() != b.cacheKey() {
		t.Errorf("equivalent queries produced different keys:\n%s\n%s", a.cacheKey(), b.cacheKey())
	}

	c, _ := parsePassQuery(url.Values{"lat": {"10"}, "lon": {"20"}, "tz_offset": {"+01:00"}}, "25544")
	if a.cacheKey() == c.cacheKey() {
		t.Error("different tz_offset must not share a cache key")
	}
}

func TestParseTrackQueryDefaults(t *testing.T) {
	q, err := parseTrackQuery(url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if q.minutes != 90 || q.stepSeconds != 60 {
		t.Errorf("defaults = %d min, %d s", q.minutes, q.stepSeconds)
	}
}
