// Package watchdog converts "stuck in this state too long" into a
// StateTimeout event for the FSM (spec.md §4.3), grounded on
// original_source's timer/timer.rs generalized to a per-state deadline
// table.
package watchdog

import (
	"context"
	"time"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

const pollInterval = 10 * time.Millisecond

// Watchdog watches a stream of state notifications and re-arms its deadline
// on every single one, matching original_source's state_timeout_checker
// (`when_state_updated = Instant::now()` on every received state message,
// elevatorfsm.rs). A Moving elevator re-publishes "Moving" on every
// intermediate floor arrival, so each arrival pushes the deadline back out;
// a genuinely stalled car simply stops producing state notifications and
// still times out after motorTimeout.
type Watchdog struct {
	motorTimeout      time.Duration
	obstructedTimeout time.Duration

	states <-chan types.State
	events chan<- types.Event

	current  types.State
	deadline time.Duration
	armedAt  time.Time
	fired    bool
	started  bool
}

// New creates a watchdog with the configured per-state deadlines (Moving and
// Initializing use motorTimeout; Obstructed uses obstructedTimeout; every
// other state has an effectively infinite deadline).
func New(motorTimeout, obstructedTimeout time.Duration, states <-chan types.State, events chan<- types.Event) *Watchdog {
	return &Watchdog{
		motorTimeout:      motorTimeout,
		obstructedTimeout: obstructedTimeout,
		states:            states,
		events:            events,
	}
}

func deadlineFor(s types.State, motor, obstructed time.Duration) (time.Duration, bool) {
	switch s {
	case types.Moving, types.Initializing:
		return motor, true
	case types.Obstructed:
		return obstructed, true
	default:
		return 0, false
	}
}

// Run blocks, busy-polling state notifications and expiry, until ctx is
// cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-w.states:
			w.onState(s)
		case <-ticker.C:
			w.checkExpiry()
		}
	}
}

func (w *Watchdog) onState(s types.State) {
	w.started = true
	w.current = s
	w.fired = false
	w.armedAt = time.Now()
	w.deadline, _ = deadlineFor(s, w.motorTimeout, w.obstructedTimeout)
}

func (w *Watchdog) checkExpiry() {
	if !w.started || w.fired || w.deadline <= 0 {
		return
	}
	if time.Since(w.armedAt) <= w.deadline {
		return
	}
	w.fired = true
	select {
	case w.events <- types.StateTimeoutEvent():
	default:
	}
}
