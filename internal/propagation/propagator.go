package propagation

import (
	"sync"
	"time"

	"github.com/star/passwatch/internal/tle"
)

// Model propagates one compiled element set. Implementations are pure: the same
// instant always yields the same State, and a Model is safe for concurrent use.
type Model interface {
	At(t time.Time) (State, error)
}

// Propagator compiles element sets into Models. Compile fails with *Error for element
// data that cannot be propagated.
type Propagator interface {
	Compile(rec *tle.Record) (Model, error)
}

// Propagate compiles rec with p and evaluates it at t.
func Propagate(p Propagator, rec *tle.Record, t time.Time) (State, error) {
	m, err := p.Compile(rec)
	if err != nil {
		return State{}, err
	}
	return m.At(t)
}

// Cached memoises compiled Models per key. Records are immutable and replaced by
// pointer on refresh, so a model is reused until the store swaps the record.
type Cached struct {
	inner Propagator

	mu     sync.RWMutex
	models map[string]cachedModel
}

type cachedModel struct {
	rec   *tle.Record
	model Model
}

// NewCached wraps inner with a per-key model cache.
func NewCached(inner Propagator) *Cached {
	return &Cached{
		inner:  inner,
		models: make(map[string]cachedModel),
	}
}

// Compile implements Propagator.
func (c *Cached) Compile(rec *tle.Record) (Model, error) {
	c.mu.RLock()
	cm, ok := c.models[rec.Key]
	c.mu.RUnlock()
	if ok && cm.rec == rec {
		return cm.model, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another caller may have compiled the same record.
	if cm, ok := c.models[rec.Key]; ok && cm.rec == rec {
		return cm.model, nil
	}

	m, err := c.inner.Compile(rec)
	if err != nil {
		return nil, err
	}
	c.models[rec.Key] = cachedModel{rec: rec, model: m}
	return m, nil
}
