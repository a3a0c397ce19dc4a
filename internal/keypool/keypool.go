package keypool

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// usageResetWindow is how long per-key usage counters accumulate before
// being zeroed, mirroring the per-minute quota window of the Gemini API.
const usageResetWindow = time.Minute

// ErrNoKeys is returned when a Manager is constructed without any keys.
var ErrNoKeys = errors.New("keypool: at least one API key is required")

// Manager hands out Gemini API keys from a fixed pool. It tracks per-key
// usage within a one-minute window so callers can prefer the least-used key,
// and rotates round-robin when a key hits its quota or turns out invalid.
type Manager struct {
	mu        sync.Mutex
	keys      []string
	current   int
	usage     []int
	lastReset time.Time
	clock     clockwork.Clock
}

// New creates a Manager over the given keys. The key order is preserved;
// rotation walks it round-robin.
func New(keys []string, clock clockwork.Clock) (*Manager, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	return &Manager{
		keys:      keys,
		usage:     make([]int, len(keys)),
		lastReset: clock.Now(),
		clock:     clock,
	}, nil
}

// Current returns the key currently in use.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[m.current]
}

// Index returns the zero-based position of the current key. Useful for log
// lines that name the key without printing it.
func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Len returns the number of keys in the pool.
func (m *Manager) Len() int {
	return len(m.keys)
}

// Rotate advances to the next key round-robin and returns it.
func (m *Manager) Rotate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = (m.current + 1) % len(m.keys)
	return m.keys[m.current]
}

// MarkUse records one use of the current key. Usage counters are zeroed once
// the reset window has elapsed.
func (m *Manager) MarkUse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[m.current]++
	m.maybeReset()
}

// LeastUsed switches to the key with the fewest uses in the current window
// and returns it. Ties resolve to the lowest index.
func (m *Manager) LeastUsed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeReset()

	least := 0
	for i, n := range m.usage {
		if n < m.usage[least] {
			least = i
		}
	}
	m.current = least
	return m.keys[m.current]
}

// Usage returns a copy of the per-key usage counters in the current window.
func (m *Manager) Usage() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.usage))
	copy(out, m.usage)
	return out
}

// maybeReset zeroes the usage counters when the window has elapsed.
// Callers must hold m.mu.
func (m *Manager) maybeReset() {
	now := m.clock.Now()
	if now.Sub(m.lastReset) >= usageResetWindow {
		for i := range m.usage {
			m.usage[i] = 0
		}
		m.lastReset = now
	}
}
