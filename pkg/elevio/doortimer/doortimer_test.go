package doortimer

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

func TestTimer_EmitsDoorTimeoutAfterDuration(t *testing.T) {
	defer goleak.VerifyNone(t)

	commands := make(chan types.TimerCommand, 1)
	events := make(chan types.Event, 1)
	timer := New(30*time.Millisecond, commands, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	commands <- types.StartTimer()

	select {
	case ev := <-events:
		if ev.Kind != types.EventDoorTimeout {
			t.Errorf("expected a DoorTimeout event, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for door timeout")
	}
}

func TestTimer_CancelSuppressesExpiry(t *testing.T) {
	defer goleak.VerifyNone(t)

	commands := make(chan types.TimerCommand, 2)
	events := make(chan types.Event, 1)
	timer := New(30*time.Millisecond, commands, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	commands <- types.StartTimer()
	commands <- types.CancelTimer()

	select {
	case ev := <-events:
		t.Fatalf("expected no event after cancel, got %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimer_RestartResetsDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	commands := make(chan types.TimerCommand, 2)
	events := make(chan types.Event, 1)
	timer := New(60*time.Millisecond, commands, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	commands <- types.StartTimer()
	time.Sleep(40 * time.Millisecond)
	commands <- types.StartTimer()

	select {
	case <-events:
		t.Fatal("timer fired before the restarted deadline")
	case <-time.After(30 * time.Millisecond):
	}

	select {
	case ev := <-events:
		if ev.Kind != types.EventDoorTimeout {
			t.Errorf("expected a DoorTimeout event, got %v", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the restarted door timeout")
	}
}
