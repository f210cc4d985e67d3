// Package probe implements the in-memory state machine behind the Kubernetes
// probe endpoints: liveness, readiness, and startup.
package probe

import (
	"fmt"
	"sync/atomic"
	"time"
)

// InitializationWindow is the fixed simulated init time for the startup
// probe. It is independent of the configurable readiness startup delay.
const InitializationWindow = 2 * time.Second

// State holds the three probe flags for this instance. Liveness and
// readiness are freely togglable; the startup flag latches once and never
// reverts. Each flag is updated atomically so concurrent toggles are never
// lost, but no cross-flag atomicity is provided (none is needed).
type State struct {
	start        time.Time
	startupDelay time.Duration
	initWindow   time.Duration
	now          func() time.Time

	healthy atomic.Bool
	ready   atomic.Bool
	started atomic.Bool
}

// NewState creates the probe state for a freshly started process.
// The instance starts healthy, with readiness gated for startupDelay.
func NewState(startupDelay time.Duration) *State {
	return NewStateWithClock(startupDelay, time.Now)
}

// NewStateWithClock creates a probe state with an injectable clock.
// This is useful for testing time-gated behavior.
func NewStateWithClock(startupDelay time.Duration, now func() time.Time) *State {
	s := &State{
		start:        now(),
		startupDelay: startupDelay,
		initWindow:   InitializationWindow,
		now:          now,
	}
	s.healthy.Store(true)
	s.ready.Store(true)
	return s
}

// Uptime returns how long the process has been running.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.start)
}

// Healthy reports the current liveness flag.
func (s *State) Healthy() bool {
	return s.healthy.Load()
}

// ToggleHealthy atomically flips the liveness flag and returns the new value.
func (s *State) ToggleHealthy() bool {
	return toggle(&s.healthy)
}

// ToggleReady atomically flips the readiness flag and returns the new value.
// The flag only takes effect once the startup delay gate has opened.
func (s *State) ToggleReady() bool {
	return toggle(&s.ready)
}

// CheckLiveness answers the liveness probe. ok=false maps to HTTP 503.
func (s *State) CheckLiveness() (ok bool, detail string) {
	if !s.healthy.Load() {
		return false, "UNHEALTHY"
	}
	return true, fmt.Sprintf("HEALTHY (uptime %.1fs)", s.Uptime().Seconds())
}

// CheckReadiness answers the readiness probe. Within the startup delay the
// probe reports not-ready unconditionally, with the remaining time; after
// the gate opens it reports whatever the toggle last set. The gate is a
// one-time unlock: later toggles never re-arm the delay.
func (s *State) CheckReadiness() (ok bool, detail string) {
	elapsed := s.Uptime()
	if elapsed < s.startupDelay {
		remaining := s.startupDelay - elapsed
		return false, fmt.Sprintf("startup delay: %.1fs remaining", remaining.Seconds())
	}
	if !s.ready.Load() {
		return false, "NOT READY"
	}
	return true, "READY"
}

// Ready reports effective readiness: the gate must be open and the toggle
// flag set.
func (s *State) Ready() bool {
	ok, _ := s.CheckReadiness()
	return ok
}

// CheckStartup answers the startup probe. Once the initialization window
// has elapsed the result latches to started and never reverts, matching
// Kubernetes semantics where a passed startup probe is never re-run.
func (s *State) CheckStartup() (ok bool, detail string) {
	if s.started.Load() {
		return true, "STARTED"
	}
	elapsed := s.Uptime()
	if elapsed < s.initWindow {
		remaining := s.initWindow - elapsed
		return false, fmt.Sprintf("starting up: %.1fs remaining", remaining.Seconds())
	}
	s.started.Store(true)
	return true, "STARTED"
}

// Started reports whether the startup latch has fired.
func (s *State) Started() bool {
	ok, _ := s.CheckStartup()
	return ok
}

// toggle flips an atomic.Bool and returns the new value. The CAS loop
// guarantees no flip is lost under concurrent toggles of the same flag.
func toggle(b *atomic.Bool) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
