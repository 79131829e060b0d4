package clock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Manual is a Clock test double with an explicitly advanced wall clock and
// a deterministic, sequential id generator. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time

	monoBase time.Time
	idSeq    atomic.Uint64
	idPrefix string
}

// NewManual returns a Manual clock starting at start (converted to UTC).
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:      start.UTC(),
		monoBase: start.UTC(),
		idPrefix: "test-id",
	}
}

// Now returns the manually-controlled instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Monotonic returns the duration between monoBase and the current Now.
// Since Advance never moves now backwards for well-behaved tests, this
// mirrors a real monotonic reading without touching the system clock.
func (m *Manual) Monotonic() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now.Sub(m.monoBase)
}

// Advance moves the clock forward by d. Passing a negative d panics: a test
// clock that runs backwards would violate Monotonic's contract.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: Manual.Advance called with a negative duration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set pins the clock to an explicit instant. Intended for test setup only;
// unlike Advance it permits moving backwards.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// NewID returns sequential deterministic ids ("test-id-1", "test-id-2", ...).
func (m *Manual) NewID() string {
	n := m.idSeq.Add(1)
	return fmt.Sprintf("%s-%d", m.idPrefix, n)
}

// NextFire shares the exact pattern-resolution logic used by System.
func (m *Manual) NextFire(pattern Pattern, from time.Time) (time.Time, bool) {
	return nextFire(pattern, from)
}

var _ Clock = (*Manual)(nil)
