// Package fleetview maintains the per-node replica of global fleet state
// (spec.md §4.4): ConnectedElevators, reconciled from local FSM updates,
// periodic gossip, and local-only pending marks, emitting a fresh immutable
// snapshot to subscribers whenever it changes and "local-takeover" events
// when a peer is lost or crosses into a fault state.
package fleetview

import (
	"context"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/internal/metrics"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// SetPendingMsg is the fleet view's third input stream (spec.md §4.4):
// "marks (id, btn) local-only Pending (when should_set) or clears it back
// to None (when not). Never overrides Active."
type SetPendingMsg struct {
	ShouldSet bool
	ID        types.NodeID
	Button    types.CallButton
}

// TakeoverEvent tells the order router "this hall order is now unowned,
// consider assigning it locally" -- emitted when a peer is lost or crosses
// into a fault state while still claiming (or being asked to serve) a hall
// order (spec.md §4.4).
type TakeoverEvent struct {
	PreviousOwner types.NodeID
	Button        types.CallButton
}

// View owns ConnectedElevators; it is the sole writer, consistent with
// spec.md §5 "the fleet view is the sole writer to the ConnectedElevators
// datum".
type View struct {
	localID  types.NodeID
	maxNodes int
	floors   int

	state types.ConnectedElevators

	localUpdates  <-chan types.ElevatorInfo
	remoteUpdates <-chan []types.ElevatorInfo
	setPending    <-chan SetPendingMsg

	snapshots chan<- types.ConnectedElevators
	takeovers chan<- TakeoverEvent

	log definition.Logger
}

// Config bundles the channels a View is wired with.
type Config struct {
	LocalID       types.NodeID
	MaxNodes      int
	Floors        int
	LocalUpdates  <-chan types.ElevatorInfo
	RemoteUpdates <-chan []types.ElevatorInfo
	SetPending    <-chan SetPendingMsg
	Snapshots     chan<- types.ConnectedElevators
	Takeovers     chan<- TakeoverEvent
	Log           definition.Logger
}

func New(cfg Config) *View {
	return &View{
		localID:       cfg.LocalID,
		maxNodes:      cfg.MaxNodes,
		floors:        cfg.Floors,
		state:         types.NewConnectedElevators(cfg.MaxNodes),
		localUpdates:  cfg.LocalUpdates,
		remoteUpdates: cfg.RemoteUpdates,
		setPending:    cfg.SetPending,
		snapshots:     cfg.Snapshots,
		takeovers:     cfg.Takeovers,
		log:           cfg.Log,
	}
}

// Snapshot returns the current ConnectedElevators, cloned so the caller
// cannot mutate the view's own copy. Intended for tests; production
// consumers should read from the Snapshots channel instead.
func (v *View) Snapshot() types.ConnectedElevators {
	return v.state.Clone()
}

// Run applies the three input streams in select order, one event at a time
// (spec.md §4.4, §5): every applied event is followed by a cloned snapshot
// publication.
func (v *View) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case info := <-v.localUpdates:
			v.applyLocalUpdate(info)
		case alive := <-v.remoteUpdates:
			v.applyRemoteUpdate(alive)
		case msg := <-v.setPending:
			v.applySetPending(msg)
		}
	}
}

func (v *View) applyLocalUpdate(info types.ElevatorInfo) {
	// This is the one channel that only ever carries genuine production
	// transitions: the router's cost-function simulation runs on detached
	// Machine clones wired to discard sinks, so it never reaches here.
	metrics.StateTransitions.WithLabelValues(info.State.String()).Inc()
	cloned := info.Clone()
	v.state.Slots[v.localID] = &cloned
	v.publish()
}

func (v *View) applySetPending(msg SetPendingMsg) {
	slot := v.state.Get(msg.ID)
	if slot == nil {
		// Cannot mark pending on a peer we currently know nothing
		// about; the router only ever targets slots it read from a
		// snapshot, so this is a harmless race with a just-lost peer.
		return
	}
	current := slot.ResponsibleOrders.At(msg.Button)
	if msg.ShouldSet {
		if current != types.Active {
			slot.ResponsibleOrders.Set(msg.Button, types.Pending)
		}
	} else if current == types.Pending {
		slot.ResponsibleOrders.Set(msg.Button, types.None)
	}
	v.publish()
}

func (v *View) applyRemoteUpdate(alive []types.ElevatorInfo) {
	byID := make(map[types.NodeID]types.ElevatorInfo, len(alive))
	for _, info := range alive {
		byID[info.ID] = info
	}

	for i := 0; i < v.maxNodes; i++ {
		id := types.NodeID(i)
		if id == v.localID {
			continue
		}
		prev := v.state.Slots[i]
		remote, present := byID[id]

		switch {
		case prev == nil && !present:
			// Previously empty and still empty: stay empty.
		case prev == nil && present:
			merged := mergeElevatorInfo(nil, remote)
			v.state.Slots[i] = &merged
		case prev != nil && !present:
			metrics.PeersLost.Inc()
			v.emitTakeoversForSlot(*prev)
			v.state.Slots[i] = nil
		case prev != nil && present:
			crossedIntoFault := !prev.State.TimedOut() && remote.State.TimedOut()
			if crossedIntoFault {
				v.emitTakeoversForSlot(*prev)
			}
			merged := mergeElevatorInfo(prev, remote)
			v.state.Slots[i] = &merged
		}
	}
	v.publish()
}

// emitTakeoversForSlot emits one TakeoverEvent per hall order that was
// Active or Pending in prev -- cab orders are excluded: a lost peer's cab
// calls are recovered through the dedicated backup channel, not through
// local-takeover (spec.md §4.5 "Cab backup", §9 Open Questions).
func (v *View) emitTakeoversForSlot(prev types.ElevatorInfo) {
	for f := 0; f < v.floors; f++ {
		if t := prev.ResponsibleOrders.Up[f]; t == types.Active || t == types.Pending {
			v.emitTakeover(prev.ID, types.CallButton{Floor: f, Call: types.HallUp})
		}
		if t := prev.ResponsibleOrders.Down[f]; t == types.Active || t == types.Pending {
			v.emitTakeover(prev.ID, types.CallButton{Floor: f, Call: types.HallDown})
		}
	}
}

func (v *View) emitTakeover(previousOwner types.NodeID, b types.CallButton) {
	select {
	case v.takeovers <- TakeoverEvent{PreviousOwner: previousOwner, Button: b}:
		metrics.TakeoversEmitted.Inc()
	default:
		if v.log != nil {
			v.log.Warnf("fleetview: dropped takeover event for %s (owner %d)", b, previousOwner)
		}
	}
}

func (v *View) publish() {
	select {
	case v.snapshots <- v.state.Clone():
	default:
	}
}
