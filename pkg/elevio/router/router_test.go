package router

import (
	"context"
	"testing"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/fleetview"
	"github.com/elevio/elevcore/pkg/elevio/types"
	"go.uber.org/goleak"
)

func newTestRouter(t *testing.T, localID types.NodeID, checkDelay time.Duration) (*Router, context.CancelFunc,
	chan types.CallButton, chan fleetview.TakeoverEvent, chan AssignmentMessage, chan types.ConnectedElevators,
	chan types.Event, chan fleetview.SetPendingMsg, chan AssignmentMessage) {

	presses := make(chan types.CallButton, 8)
	takeovers := make(chan fleetview.TakeoverEvent, 8)
	assignmentsIn := make(chan AssignmentMessage, 8)
	snapshots := make(chan types.ConnectedElevators, 8)
	localAssign := make(chan types.Event, 8)
	setPending := make(chan fleetview.SetPendingMsg, 8)
	broadcastOut := make(chan AssignmentMessage, 64)

	r := New(Config{
		LocalID:       localID,
		TravelTime:    testTravel,
		DoorOpenTime:  testDoor,
		CheckDelay:    checkDelay,
		Presses:       presses,
		Takeovers:     takeovers,
		AssignmentsIn: assignmentsIn,
		Snapshots:     snapshots,
		LocalAssign:   localAssign,
		SetPending:    setPending,
		BroadcastOut:  broadcastOut,
		Log:           definition.NewDefaultLogger(int(localID)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	return r, cancel, presses, takeovers, assignmentsIn, snapshots, localAssign, setPending, broadcastOut
}

func expectEvent(t *testing.T, ch <-chan types.Event, want types.CallButton) {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Kind != types.EventNewOrder || ev.Button != want {
			t.Errorf("expected NewOrder(%s), got %+v", want, ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for local assignment of %s", want)
	}
}

func TestRouter_CabAssignsLocallyUnconditionally(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, cancel, presses, _, _, _, localAssign, _, broadcastOut := newTestRouter(t, 0, time.Second)
	defer cancel()

	btn := types.CallButton{Floor: 2, Call: types.Cab}
	presses <- btn
	expectEvent(t, localAssign, btn)

	select {
	case msg := <-broadcastOut:
		t.Errorf("cab call must never leave the node, got broadcast %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouter_SoleCandidateAssignsLocally(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, cancel, presses, _, _, snapshots, localAssign, _, _ := newTestRouter(t, 0, time.Second)
	defer cancel()

	local := idleInfo(0, 2, 5)
	snapshots <- types.ConnectedElevators{Slots: []*types.ElevatorInfo{&local}}

	btn := types.CallButton{Floor: 2, Call: types.HallUp}
	presses <- btn
	expectEvent(t, localAssign, btn)
}

func TestRouter_CheaperPeerWinsAndFallsBackOnNoUpgrade(t *testing.T) {
	defer goleak.VerifyNone(t)
	checkDelay := 80 * time.Millisecond
	_, cancel, presses, _, _, snapshots, localAssign, setPending, broadcastOut := newTestRouter(t, 0, checkDelay)
	defer cancel()

	local := idleInfo(0, 0, 5)
	peer := idleInfo(1, 4, 5)
	snapshots <- types.ConnectedElevators{Slots: []*types.ElevatorInfo{&local, &peer}}

	btn := types.CallButton{Floor: 4, Call: types.HallDown}
	presses <- btn

	select {
	case msg := <-broadcastOut:
		if msg.Owner != 1 || msg.Button != btn {
			t.Errorf("expected hand-off to peer 1 for %s, got %+v", btn, msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hand-off broadcast")
	}

	select {
	case msg := <-setPending:
		if !msg.ShouldSet || msg.ID != 1 || msg.Button != btn {
			t.Errorf("expected Pending mark for owner 1, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Pending mark")
	}

	// Peer 1 never upgrades: the fall-back check should clear Pending and
	// reassign locally (spec.md §4.5 scenario 3).
	select {
	case msg := <-setPending:
		if msg.ShouldSet || msg.ID != 1 || msg.Button != btn {
			t.Errorf("expected Pending clear for owner 1, got %+v", msg)
		}
	case <-time.After(2 * checkDelay + time.Second):
		t.Fatal("timed out waiting for fall-back Pending clear")
	}
	expectEvent(t, localAssign, btn)
}

func TestRouter_PeerUpgradeSuppressesFallback(t *testing.T) {
	defer goleak.VerifyNone(t)
	checkDelay := 80 * time.Millisecond
	_, cancel, presses, _, _, snapshots, localAssign, _, broadcastOut := newTestRouter(t, 0, checkDelay)
	defer cancel()

	local := idleInfo(0, 0, 5)
	peer := idleInfo(1, 4, 5)
	snapshots <- types.ConnectedElevators{Slots: []*types.ElevatorInfo{&local, &peer}}

	btn := types.CallButton{Floor: 4, Call: types.HallDown}
	presses <- btn

	select {
	case <-broadcastOut:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hand-off broadcast")
	}

	// The peer gossips Active for the button before the check fires.
	upgraded := idleInfo(1, 4, 5)
	upgraded.ResponsibleOrders.Set(btn, types.Active)
	snapshots <- types.ConnectedElevators{Slots: []*types.ElevatorInfo{&local, &upgraded}}

	select {
	case ev := <-localAssign:
		t.Errorf("expected no local re-assignment once the peer upgraded, got %+v", ev)
	case <-time.After(2 * checkDelay):
	}
}

func TestRouter_AssignmentReceiverForeignOwnerMarksPending(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, cancel, _, _, assignmentsIn, _, localAssign, setPending, _ := newTestRouter(t, 0, time.Second)
	defer cancel()

	btn := types.CallButton{Floor: 1, Call: types.HallUp}
	assignmentsIn <- AssignmentMessage{Owner: 2, Button: btn}

	select {
	case msg := <-setPending:
		if !msg.ShouldSet || msg.ID != 2 || msg.Button != btn {
			t.Errorf("expected Pending mark for owner 2, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Pending mark")
	}

	select {
	case ev := <-localAssign:
		t.Errorf("assignment addressed to a different owner must not assign locally, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRouter_AssignmentReceiverOwnIDAssignsLocally(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, cancel, _, _, assignmentsIn, _, localAssign, _, _ := newTestRouter(t, 0, time.Second)
	defer cancel()

	btn := types.CallButton{Floor: 1, Call: types.HallDown}
	assignmentsIn <- AssignmentMessage{Owner: 0, Button: btn}
	expectEvent(t, localAssign, btn)
}

func TestRouter_TakeoverRunsSameDecisionAsFreshPress(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, cancel, _, takeovers, _, snapshots, localAssign, _, _ := newTestRouter(t, 0, time.Second)
	defer cancel()

	local := idleInfo(0, 3, 5)
	snapshots <- types.ConnectedElevators{Slots: []*types.ElevatorInfo{&local}}

	btn := types.CallButton{Floor: 3, Call: types.HallUp}
	takeovers <- fleetview.TakeoverEvent{PreviousOwner: 2, Button: btn}
	expectEvent(t, localAssign, btn)
}
