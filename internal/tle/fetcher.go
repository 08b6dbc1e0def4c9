package tle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultSourceURL fetches a single satellite by catalog number; %s is the key.
	DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?CATNR=%s&FORMAT=TLE"

	maxBodyBytes = 1 << 20
)

// Source fetches the current element set for one satellite key.
type Source interface {
	Fetch(ctx context.Context, key string) (Record, error)
}

// Fetcher retrieves element sets over HTTP from a text catalog.
type Fetcher struct {
	urlTemplate string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewFetcher creates a Fetcher. urlTemplate may contain one %s, replaced with the
// satellite key; without it the same URL is fetched for every key and the matching
// catalog number is picked from the response.
func NewFetcher(urlTemplate string, logger *slog.Logger) *Fetcher {
	if urlTemplate == "" {
		urlTemplate = DefaultSourceURL
	}
	return &Fetcher{
		urlTemplate: urlTemplate,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger,
	}
}

// URL returns the request URL for key.
func (f *Fetcher) URL(key string) string {
	if strings.Contains(f.urlTemplate, "%s") {
		return fmt.Sprintf(f.urlTemplate, url.QueryEscape(key))
	}
	return f.urlTemplate
}

// Fetch performs an HTTP GET and returns the element set whose catalog number is key.
// FetchedAt is left for the store to stamp.
func (f *Fetcher) Fetch(ctx context.Context, key string) (Record, error) {
	src := f.URL(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return Record{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, src)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Record{}, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return Record{}, fmt.Errorf("response from %s exceeds %d byte limit", src, maxBodyBytes)
	}

	records, err := Parse(bytes.NewReader(body), f.logger)
	if err != nil {
		return Record{}, err
	}

	for _, r := range records {
		if r.Key == key {
			r.Source = sourceName(src)
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("no valid element set for %s in response from %s (%d parsed)", key, src, len(records))
}

func sourceName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
