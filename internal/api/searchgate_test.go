package api

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchGatePerClient(t *testing.T) {
	g := newSearchGate(2, 0)

	done1, ok := g.admit("10.0.0.1")
	require.True(t, ok)
	_, ok = g.admit("10.0.0.1")
	require.True(t, ok)

	_, ok = g.admit("10.0.0.1")
	assert.False(t, ok, "third search from one client")

	_, ok = g.admit("10.0.0.2")
	assert.True(t, ok, "other clients keep their own allowance")

	done1()
	done1()
	assert.Equal(t, 1, g.holding("10.0.0.1"))

	_, ok = g.admit("10.0.0.1")
	assert.True(t, ok)
}

func TestSearchGateGlobal(t *testing.T) {
	g := newSearchGate(5, 2)

	doneA, ok := g.admit("a")
	require.True(t, ok)
	_, ok = g.admit("b")
	require.True(t, ok)

	_, ok = g.admit("c")
	assert.False(t, ok)
	assert.Zero(t, g.holding("c"), "a global rejection must not leave a client count behind")

	doneA()
	_, ok = g.admit("c")
	assert.True(t, ok)
}

func TestSearchGateDisabled(t *testing.T) {
	g := newSearchGate(0, 0)
	require.Nil(t, g)

	for i := 0; i < 100; i++ {
		done, ok := g.admit("x")
		require.True(t, ok)
		done()
	}
}

func TestSearchGateConcurrent(t *testing.T) {
	g := newSearchGate(8, 16)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if done, ok := g.admit("10.0.0.1"); ok {
				done()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, g.holding("10.0.0.1"))
	// Every global slot came back.
	assert.True(t, g.global.TryAcquire(16))
}
