package watchdog

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

func TestWatchdog_FiresAfterMotorTimeoutWhileMoving(t *testing.T) {
	defer goleak.VerifyNone(t)

	states := make(chan types.State, 1)
	events := make(chan types.Event, 1)
	w := New(30*time.Millisecond, time.Hour, states, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	states <- types.Moving

	select {
	case ev := <-events:
		if ev.Kind != types.EventStateTimeout {
			t.Errorf("expected a StateTimeout, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the motor watchdog to fire")
	}
}

func TestWatchdog_RepeatedStateRearmsDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	states := make(chan types.State, 4)
	events := make(chan types.Event, 1)
	w := New(50*time.Millisecond, time.Hour, states, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	states <- types.Moving
	time.Sleep(30 * time.Millisecond)
	states <- types.Moving // re-announcement, e.g. a floor arrival: must rearm
	time.Sleep(30 * time.Millisecond)

	select {
	case ev := <-events:
		t.Fatalf("expected the second announcement to push the deadline past 60ms, got %v", ev)
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case ev := <-events:
		if ev.Kind != types.EventStateTimeout {
			t.Errorf("expected a StateTimeout, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the rearmed deadline to fire")
	}
}

func TestWatchdog_IdleNeverFires(t *testing.T) {
	defer goleak.VerifyNone(t)

	states := make(chan types.State, 1)
	events := make(chan types.Event, 1)
	w := New(20*time.Millisecond, 20*time.Millisecond, states, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	states <- types.Idle

	select {
	case ev := <-events:
		t.Fatalf("expected Idle to never time out, got %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
