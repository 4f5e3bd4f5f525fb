// Package doortimer implements the single-elevator one-shot door timer of
// spec.md §4.2, grounded on original_source's fsm/door_timer.rs and
// timer/timer.rs and on the teacher's cooperative busy-poll style
// (core.Peer.poll).
package doortimer

import (
	"context"
	"time"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

// pollInterval is how often the timer wakes up to check its command queue
// and its own expiry -- short enough that the emitted DoorTimeout is never
// meaningfully late relative to duration.
const pollInterval = 10 * time.Millisecond

// Timer is an independent cooperative worker: it polls its command channel
// non-blockingly and checks expiry on each iteration (spec.md §4.2, §5).
type Timer struct {
	duration time.Duration
	commands <-chan types.TimerCommand
	events   chan<- types.Event

	enabled bool
	start   time.Time
}

// New creates a door timer with a fixed duration, reading commands from
// commands and emitting DoorTimeout events onto events.
func New(duration time.Duration, commands <-chan types.TimerCommand, events chan<- types.Event) *Timer {
	return &Timer{
		duration: duration,
		commands: commands,
		events:   events,
	}
}

// Run blocks, busy-polling commands and expiry, until ctx is cancelled.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-t.commands:
			t.apply(cmd)
		case <-ticker.C:
			t.checkExpiry()
		}
	}
}

func (t *Timer) apply(cmd types.TimerCommand) {
	switch cmd.Kind {
	case types.TimerStart:
		// Re-issuing Start before expiry resets the deadline
		// (spec.md §4.2, §8 "Door timer restart").
		t.start = time.Now()
		t.enabled = true
	case types.TimerCancel:
		t.enabled = false
	}
}

func (t *Timer) checkExpiry() {
	if !t.enabled {
		return
	}
	if time.Since(t.start) <= t.duration {
		return
	}
	t.enabled = false
	select {
	case t.events <- types.DoorTimeoutEvent():
	default:
	}
}
