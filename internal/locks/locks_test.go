package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSingleLock(t *testing.T) {
	m := NewManager()

	guard, err := m.Acquire(context.Background(), "vault1")
	require.NoError(t, err)
	guard.Release()
}

func TestReacquireAfterRelease(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	guard1, err := m.Acquire(ctx, "vault1")
	require.NoError(t, err)
	guard1.Release()

	guard2, err := m.Acquire(ctx, "vault1")
	require.NoError(t, err)
	guard2.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := NewManager()

	guard, err := m.Acquire(context.Background(), "vault1")
	require.NoError(t, err)
	guard.Release()
	guard.Release()

	guard2, err := m.Acquire(context.Background(), "vault1")
	require.NoError(t, err)
	guard2.Release()
}

func TestDistinctNamesDoNotBlock(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	guard1, err := m.Acquire(ctx, "vault_a")
	require.NoError(t, err)
	defer guard1.Release()

	guard2, err := m.Acquire(ctx, "vault_b")
	require.NoError(t, err)
	guard2.Release()
}

func TestContendedAcquireEventuallySucceeds(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	guard, err := m.Acquire(ctx, "shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g, err := m.Acquire(ctx, "shared")
		assert.NoError(t, err)
		if g != nil {
			g.Release()
		}
	}()

	// Release while the second acquirer is in its backoff loop.
	time.Sleep(100 * time.Millisecond)
	guard.Release()
	wg.Wait()
}

func TestAcquireFailsWhenHeld(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	guard, err := m.Acquire(ctx, "busy")
	require.NoError(t, err)
	defer guard.Release()

	start := time.Now()
	_, err = m.Acquire(ctx, "busy")
	require.Error(t, err)
	// Nine backoff sleeps, 50ms and up: well past a quarter second.
	assert.Greater(t, time.Since(start), 250*time.Millisecond)
}

func TestAcquireRespectsCancellation(t *testing.T) {
	m := NewManager()

	guard, err := m.Acquire(context.Background(), "held")
	require.NoError(t, err)
	defer guard.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "held")
	require.Error(t, err)
}
