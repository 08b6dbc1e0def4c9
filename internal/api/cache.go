package api

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/star/passwatch/internal/metrics"
)

// responseCache holds encoded response bodies for one endpoint. Entries expire after
// the configured TTL so repeated dashboard polls do not rerun the search.
type responseCache struct {
	endpoint string
	lru      *expirable.LRU[string, []byte]
}

func newResponseCache(endpoint string, size int, ttl time.Duration) *responseCache {
	if ttl <= 0 {
		return nil
	}
	return &responseCache{
		endpoint: endpoint,
		lru:      expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// get is safe on a nil cache and always misses.
func (c *responseCache) get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	body, ok := c.lru.Get(key)
	metrics.RecordCacheLookup(c.endpoint, ok)
	return body, ok
}

func (c *responseCache) add(key string, body []byte) {
	if c == nil {
		return
	}
	c.lru.Add(key, body)
}
