package locks

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"hoddor.sh/internal/verrors"
)

const (
	maxAttempts  = 10
	initialDelay = 50 * time.Millisecond
	maxDelay     = 1000 * time.Millisecond
	jitterRange  = 50 * time.Millisecond
)

// Manager hands out named exclusive locks. Locks are process-local; every
// engine write path for a vault goes through the same manager, which gives the
// same serialisation the original obtains from the Web Locks API.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[string]*sync.Mutex)}
}

// Guard releases a held lock. Release is idempotent.
type Guard struct {
	mu   *sync.Mutex
	once sync.Once
}

// Release unlocks the guarded lock.
func (g *Guard) Release() {
	g.once.Do(g.mu.Unlock)
}

func (m *Manager) lockFor(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

// Acquire requests the exclusive lock named "vault_<name>_lock". It makes up
// to ten attempts with multiplicative backoff (50ms start, 1.5x growth, 1s
// cap) plus uniform jitter below 50ms, and returns an IO-kind error when all
// attempts fail.
func (m *Manager) Acquire(ctx context.Context, name string) (*Guard, error) {
	lockName := fmt.Sprintf("vault_%s_lock", name)
	l := m.lockFor(lockName)

	delay := initialDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if l.TryLock() {
			return &Guard{mu: l}, nil
		}

		if attempt == maxAttempts-1 {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(jitterRange)))

		select {
		case <-ctx.Done():
			return nil, verrors.IoError("lock acquisition cancelled")
		case <-time.After(delay + jitter):
		}

		delay = time.Duration(float64(delay) * 1.5)
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return nil, verrors.IoError("failed to acquire lock")
}
