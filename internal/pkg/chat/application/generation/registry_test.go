package generation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBeginRejectsSecond(t *testing.T) {
	r := NewRegistry()

	h1, err := r.Begin("c1")
	require.NoError(t, err)
	require.NotNil(t, h1)
	assert.True(t, r.Active("c1"))

	_, err = r.Begin("c1")
	require.ErrorIs(t, err, ErrGenerationActive)

	// Another conversation is unaffected.
	h2, err := r.Begin("c2")
	require.NoError(t, err)
	r.Finish(h2)
	r.Finish(h1)
	assert.False(t, r.Active("c1"))
}

func TestRegistryBeginConcurrent(t *testing.T) {
	r := NewRegistry()

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	var won int
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.Begin("c1"); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won, "exactly one concurrent Begin may succeed")
	assert.True(t, r.Active("c1"))
}

func TestRegistryStopCancelsContext(t *testing.T) {
	r := NewRegistry()

	h, err := r.Begin("c1")
	require.NoError(t, err)

	r.Stop("c1")
	assert.False(t, r.Active("c1"))

	select {
	case <-h.Context().Done():
	default:
		t.Fatal("stop must cancel the handle context")
	}

	// Stopping again or stopping an unknown conversation is a no-op.
	r.Stop("c1")
	r.Stop("never-started")

	// A new generation is admitted after stop.
	h2, err := r.Begin("c1")
	require.NoError(t, err)
	r.Finish(h2)
}

func TestRegistryFinishIsIdempotentAndExact(t *testing.T) {
	r := NewRegistry()

	h1, err := r.Begin("c1")
	require.NoError(t, err)

	r.Finish(h1)
	r.Finish(h1) // observers may all report completion
	r.Finish(nil)
	assert.False(t, r.Active("c1"))

	// Finish of a stale handle must not evict a successor generation.
	h2, err := r.Begin("c1")
	require.NoError(t, err)
	r.Finish(h1)
	assert.True(t, r.Active("c1"))
	r.Finish(h2)
	assert.False(t, r.Active("c1"))
}

func TestRegistryStopAll(t *testing.T) {
	r := NewRegistry()

	h1, err := r.Begin("c1")
	require.NoError(t, err)
	h2, err := r.Begin("c2")
	require.NoError(t, err)

	r.StopAll()

	assert.False(t, r.Active("c1"))
	assert.False(t, r.Active("c2"))
	assert.Error(t, h1.Context().Err())
	assert.Error(t, h2.Context().Err())
}
