package hardwareio

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// scriptedHardware serves one tick's worth of requests for a 1-floor
// Poller: HallUp, HallDown, Cab button reads, then floor sensor, then
// obstruction, in exactly the order pollOnce issues them.
func scriptedHardware(t *testing.T, conn net.Conn, hallUp, hallDown, cab bool, floor int, floorKnown, obstr bool) {
	t.Helper()
	reply := func(v bool) byte {
		if v {
			return 1
		}
		return 0
	}
	fakeHardware(t, conn, [4]byte{opCallButton, reply(hallUp), 0, 0})
	fakeHardware(t, conn, [4]byte{opCallButton, reply(hallDown), 0, 0})
	fakeHardware(t, conn, [4]byte{opCallButton, reply(cab), 0, 0})
	fakeHardware(t, conn, [4]byte{opFloorSensor, reply(floorKnown), byte(floor), 0})
	fakeHardware(t, conn, [4]byte{opObstructionSwitch, reply(obstr), 0, 0})
}

func TestPoller_EdgeTriggersPressesAndEvents(t *testing.T) {
	a, server := newAdapterPipe(1)
	defer a.Close()

	events := make(chan types.Event, 8)
	presses := make(chan types.CallButton, 8)
	poller := NewPoller(a, PollConfig{Floors: 1, Period: time.Hour, Events: events, Presses: presses}, definition.NewDefaultLogger(0))

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		scriptedHardware(t, server, true, false, false, 0, true, false)
		scriptedHardware(t, server, true, false, false, 1, true, true)
	}()

	poller.pollOnce()

	select {
	case p := <-presses:
		if p != (types.CallButton{Floor: 0, Call: types.HallUp}) {
			t.Errorf("expected HallUp@0 press, got %s", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first press")
	}
	select {
	case ev := <-events:
		if ev.Kind != types.EventFloorArrival || ev.Floor != 0 {
			t.Errorf("expected FloorArrival(0), got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first floor arrival")
	}

	poller.pollOnce()

	select {
	case p := <-presses:
		t.Errorf("expected no re-press on a held button, got %s", p)
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case ev := <-events:
		if ev.Kind != types.EventFloorArrival || ev.Floor != 1 {
			t.Errorf("expected FloorArrival(1), got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second floor arrival")
	}
	select {
	case ev := <-events:
		if ev.Kind != types.EventObstruction || !ev.Active {
			t.Errorf("expected Obstruction(true), got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for obstruction event")
	}

	<-serverDone
}

func TestPoller_AppliesHardwareCommands(t *testing.T) {
	a, server := newAdapterPipe(1)
	defer a.Close()

	commands := make(chan types.HardwareCommand, 1)
	poller := NewPoller(a, PollConfig{Floors: 1, Period: time.Hour, Commands: commands, Events: make(chan types.Event, 1), Presses: make(chan types.CallButton, 1)}, definition.NewDefaultLogger(0))

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)
	defer cancel()

	done := make(chan [4]byte, 1)
	go func() { done <- fakeHardware(t, server, [4]byte{}) }()

	commands <- types.MotorDirectionCmd(types.Up)

	select {
	case req := <-done:
		if req != [4]byte{opMotorDirection, dirnUpByte, 0, 0} {
			t.Errorf("unexpected frame %v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for motor command to reach the wire")
	}
}
