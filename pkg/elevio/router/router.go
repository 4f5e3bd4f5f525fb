// Package router implements the order router of spec.md §4.5: for every
// observed hall press it runs the shared cost function over the latest
// fleet snapshot, decides an owner, and drives the two-phase (pending ->
// active) hand-off with fall-back reassignment.
package router

import (
	"context"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/internal/metrics"
	"github.com/elevio/elevcore/pkg/elevio/fleetview"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// burstCount and burstSpacing implement spec.md §4.5's "small burst (5
// copies at ~15 ms spacing) for loss tolerance".
const (
	burstCount   = 5
	burstSpacing = 15 * time.Millisecond
)

type pendingCheck struct {
	owner  types.NodeID
	button types.CallButton
}

// Config bundles a Router's channels and timing.
type Config struct {
	LocalID types.NodeID

	TravelTime   time.Duration
	DoorOpenTime time.Duration
	CheckDelay   time.Duration

	Presses       <-chan types.CallButton
	Takeovers     <-chan fleetview.TakeoverEvent
	AssignmentsIn <-chan AssignmentMessage
	Snapshots     <-chan types.ConnectedElevators

	LocalAssign  chan<- types.Event
	SetPending   chan<- fleetview.SetPendingMsg
	BroadcastOut chan<- AssignmentMessage

	Log definition.Logger
}

// Router is single-threaded: every mutation of its own state (the latest
// fleet snapshot) happens inside Run's select loop, never from the
// goroutines it spawns for burst-sends and the 1 s fall-back check (spec.md
// §5 "no shared memory").
type Router struct {
	localID types.NodeID

	travelTime   time.Duration
	doorOpenTime time.Duration
	checkDelay   time.Duration

	presses       <-chan types.CallButton
	takeovers     <-chan fleetview.TakeoverEvent
	assignmentsIn <-chan AssignmentMessage
	snapshots     <-chan types.ConnectedElevators

	localAssign  chan<- types.Event
	setPending   chan<- fleetview.SetPendingMsg
	broadcastOut chan<- AssignmentMessage

	pendingChecks chan pendingCheck

	latest types.ConnectedElevators

	log definition.Logger
}

func New(cfg Config) *Router {
	return &Router{
		localID:       cfg.LocalID,
		travelTime:    cfg.TravelTime,
		doorOpenTime:  cfg.DoorOpenTime,
		checkDelay:    cfg.CheckDelay,
		presses:       cfg.Presses,
		takeovers:     cfg.Takeovers,
		assignmentsIn: cfg.AssignmentsIn,
		snapshots:     cfg.Snapshots,
		localAssign:   cfg.LocalAssign,
		setPending:    cfg.SetPending,
		broadcastOut:  cfg.BroadcastOut,
		pendingChecks: make(chan pendingCheck, 64),
		log:           cfg.Log,
	}
}

// Run applies every input stream in select order until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-r.snapshots:
			r.latest = snap
		case btn := <-r.presses:
			r.decide(btn)
		case tk := <-r.takeovers:
			// A local-takeover is the same decision as a fresh hall
			// press: every surviving node runs it over the same
			// snapshot (modulo one gossip delay) and converges on the
			// same owner (spec.md §4.5 scenario 4).
			r.decide(tk.Button)
		case msg := <-r.assignmentsIn:
			r.onAssignment(msg)
		case chk := <-r.pendingChecks:
			r.onPendingCheck(chk)
		}
	}
}

func (r *Router) decide(btn types.CallButton) {
	if btn.Call == types.Cab {
		r.assignLocally(btn, "cab")
		return
	}

	owner, ok := r.pickOwner(btn)
	if !ok {
		// No eligible candidate in the current snapshot (every known
		// slot is Unavailable, or the snapshot is empty this early in
		// boot): fall back to taking it locally rather than dropping
		// the press silently. The FSM itself ignores NewOrder while
		// Initializing/MovTimedOut, so this is a safe no-op in that
		// case.
		r.assignLocally(btn, "no_candidate")
		return
	}

	if owner == r.localID {
		r.assignLocally(btn, "cost_function")
		return
	}
	r.beginHandoff(owner, btn)
}

// pickOwner implements spec.md §4.5 step 2: argmin cost over every Some
// slot, skipping Unavailable states, tie-breaking by lowest ID.
func (r *Router) pickOwner(btn types.CallButton) (types.NodeID, bool) {
	best := infiniteCost
	var bestID types.NodeID
	found := false

	for _, slot := range r.latest.Slots {
		if slot == nil {
			continue
		}
		c := cost(*slot, btn, r.travelTime, r.doorOpenTime, r.log)
		if c >= infiniteCost {
			continue
		}
		if !found || c < best || (c == best && slot.ID < bestID) {
			best = c
			bestID = slot.ID
			found = true
		}
	}
	return bestID, found
}

func (r *Router) assignLocally(btn types.CallButton, reason string) {
	select {
	case r.localAssign <- types.NewOrderEvent(btn):
		metrics.HallOrdersAssignedLocally.WithLabelValues(reason).Inc()
	default:
		if r.log != nil {
			r.log.Warnf("router: dropped local assignment of %s", btn)
		}
	}
}

// beginHandoff implements spec.md §4.5 step 4: burst-broadcast, mark
// Pending, arm the 1 s fall-back check. The burst-send and the delayed
// check both run detached: the burst writes only to broadcastOut and the
// check reports back onto pendingChecks only -- the Router's own fields are
// never touched outside Run's select loop.
func (r *Router) beginHandoff(owner types.NodeID, btn types.CallButton) {
	msg := AssignmentMessage{Owner: owner, Button: btn}
	metrics.HandoffsInitiated.Inc()

	go func() {
		for i := 0; i < burstCount; i++ {
			select {
			case r.broadcastOut <- msg:
			default:
			}
			if i < burstCount-1 {
				time.Sleep(burstSpacing)
			}
		}
	}()

	r.markPending(owner, btn)

	go func() {
		time.Sleep(r.checkDelay)
		select {
		case r.pendingChecks <- pendingCheck{owner: owner, button: btn}:
		default:
		}
	}()
}

func (r *Router) onPendingCheck(chk pendingCheck) {
	slot := r.latest.Get(chk.owner)
	if slot != nil && slot.ResponsibleOrders.At(chk.button) == types.Active {
		// The designated owner upgraded in time; nothing to do.
		return
	}
	metrics.HandoffsFailedOver.Inc()
	r.clearPending(chk.owner, chk.button)
	r.assignLocally(chk.button, "handoff_fallback")
}

// onAssignment is spec.md §4.5's assignment receiver.
func (r *Router) onAssignment(msg AssignmentMessage) {
	if msg.Owner == r.localID {
		r.assignLocally(msg.Button, "assignment_receiver")
		return
	}
	r.markPending(msg.Owner, msg.Button)
}

func (r *Router) markPending(id types.NodeID, btn types.CallButton) {
	r.sendSetPending(fleetview.SetPendingMsg{ShouldSet: true, ID: id, Button: btn})
}

func (r *Router) clearPending(id types.NodeID, btn types.CallButton) {
	r.sendSetPending(fleetview.SetPendingMsg{ShouldSet: false, ID: id, Button: btn})
}

func (r *Router) sendSetPending(msg fleetview.SetPendingMsg) {
	select {
	case r.setPending <- msg:
	default:
		if r.log != nil {
			r.log.Warnf("router: dropped set-pending for %s owner %d", msg.Button, msg.ID)
		}
	}
}
