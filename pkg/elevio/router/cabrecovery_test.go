package router

import (
	"context"
	"testing"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
	"go.uber.org/goleak"
)

func TestCabRecovery_ReinjectsOwnActiveCabOrders(t *testing.T) {
	defer goleak.VerifyNone(t)

	backups := make(chan types.ElevatorInfo, 4)
	localAssign := make(chan types.Event, 4)
	rec := NewCabRecovery(0, backups, localAssign, definition.NewDefaultLogger(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx, 200*time.Millisecond)

	info := idleInfo(0, 0, 5)
	info.ResponsibleOrders.Inside[2] = types.Active
	info.ResponsibleOrders.Inside[4] = types.Active
	backups <- info

	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-localAssign:
			if ev.Kind != types.EventNewOrder || ev.Button.Call != types.Cab {
				t.Fatalf("expected a cab NewOrder, got %+v", ev)
			}
			seen[ev.Button.Floor] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for cab re-injection")
		}
	}
	if !seen[2] || !seen[4] {
		t.Errorf("expected floors 2 and 4 reinjected, got %v", seen)
	}
}

func TestCabRecovery_IgnoresOtherNodeBackups(t *testing.T) {
	defer goleak.VerifyNone(t)

	backups := make(chan types.ElevatorInfo, 4)
	localAssign := make(chan types.Event, 4)
	rec := NewCabRecovery(0, backups, localAssign, definition.NewDefaultLogger(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx, 100*time.Millisecond)

	foreign := idleInfo(1, 0, 5)
	foreign.ResponsibleOrders.Inside[2] = types.Active
	backups <- foreign

	select {
	case ev := <-localAssign:
		t.Errorf("expected no re-injection from a foreign node's backup, got %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCabRecovery_StopsAfterWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	backups := make(chan types.ElevatorInfo, 4)
	localAssign := make(chan types.Event, 4)
	rec := NewCabRecovery(0, backups, localAssign, definition.NewDefaultLogger(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		rec.Run(ctx, 30*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return once the recovery window elapsed")
	}
}
