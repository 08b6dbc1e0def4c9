package api

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/star/passwatch/internal/metrics"
)

const defaultGlobalSearches = 64

// searchGate admits uncached pass searches. Each client may hold perClient
// searches at once and the whole server at most the global weight. A nil gate
// admits everything.
type searchGate struct {
	global    *semaphore.Weighted
	perClient int

	mu       sync.Mutex
	inFlight map[string]int
}

func newSearchGate(perClient, global int) *searchGate {
	if perClient <= 0 {
		return nil
	}
	if global <= 0 {
		global = defaultGlobalSearches
	}
	return &searchGate{
		global:    semaphore.NewWeighted(int64(global)),
		perClient: perClient,
		inFlight:  make(map[string]int),
	}
}

// admit reserves a search slot for client. On success the returned func frees
// the slot; calling it more than once is harmless.
func (g *searchGate) admit(client string) (func(), bool) {
	if g == nil {
		return func() {}, true
	}

	g.mu.Lock()
	if g.inFlight[client] >= g.perClient {
		g.mu.Unlock()
		metrics.RecordSearchRejected("client")
		return nil, false
	}
	if !g.global.TryAcquire(1) {
		g.mu.Unlock()
		metrics.RecordSearchRejected("global")
		return nil, false
	}
	g.inFlight[client]++
	g.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { g.leave(client) }) }, true
}

func (g *searchGate) leave(client string) {
	g.mu.Lock()
	if g.inFlight[client]--; g.inFlight[client] <= 0 {
		delete(g.inFlight, client)
	}
	g.mu.Unlock()
	g.global.Release(1)
}

// holding reports the searches client has in flight.
func (g *searchGate) holding(client string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[client]
}
