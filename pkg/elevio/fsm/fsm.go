// Package fsm implements the single-threaded local elevator state machine
// of spec.md §4.1: it owns one elevator's door, motor and responsible order
// list, and is driven synchronously by a single public method, Handle.
//
// The same code backs both the production elevator and the router's
// cost-function simulation (spec.md §4.5, §9) -- the only difference
// between the two is which Sinks the Machine is constructed with.
package fsm

import (
	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// Machine drives one physical (or simulated) elevator.
type Machine struct {
	id     types.NodeID
	floors int

	state  types.State
	floor  int
	dirn   types.Direction
	orders types.OrderList

	sinks Sinks
	log   definition.Logger
}

// New creates a Machine in its initial state: Initializing, floor unknown,
// dirn Down, motor commanded Down, all button lights forced off, door light
// off (spec.md §4.1 "Initial state").
func New(id types.NodeID, floors int, sinks Sinks, log definition.Logger) *Machine {
	m := &Machine{
		id:     id,
		floors: floors,
		state:  types.Initializing,
		floor:  types.FloorUnknown,
		dirn:   types.Down,
		orders: types.NewOrderList(floors),
		sinks:  sinks,
		log:    log,
	}
	m.sinks.emitHardware(types.MotorDirectionCmd(types.Down))
	m.sinks.emitHardware(types.DoorLightCmd(false))
	for f := 0; f < floors; f++ {
		m.sinks.emitHardware(types.CallButtonLightCmd(f, types.HallUp, false))
		m.sinks.emitHardware(types.CallButtonLightCmd(f, types.HallDown, false))
		m.sinks.emitHardware(types.CallButtonLightCmd(f, types.Cab, false))
	}
	m.publish()
	return m
}

// Clone returns a detached copy of m wired to the given Sinks, with its own
// independent OrderList. Used by the order router's cost function to
// simulate "what happens if I give this elevator one more order" without
// touching the real Machine (spec.md §4.5, §9).
func (m *Machine) Clone(sinks Sinks, log definition.Logger) *Machine {
	return &Machine{
		id:     m.id,
		floors: m.floors,
		state:  m.state,
		floor:  m.floor,
		dirn:   m.dirn,
		orders: m.orders.Clone(),
		sinks:  sinks,
		log:    log,
	}
}

// FromInfo builds a detached Machine seeded from a gossiped ElevatorInfo
// snapshot rather than from a live Machine. This is how the order router
// simulates a peer it does not own: the peer's last-known State, Dirn,
// Floor and responsible orders become the starting point for a virtual
// Handle/onFloorArrival walk driven by the identical transition code used
// in production (spec.md §4.5, §9).
func FromInfo(info types.ElevatorInfo, sinks Sinks, log definition.Logger) *Machine {
	return &Machine{
		id:     info.ID,
		floors: len(info.ResponsibleOrders.Up),
		state:  info.State,
		floor:  info.Floor,
		dirn:   info.Dirn,
		orders: info.ResponsibleOrders.Clone(),
		sinks:  sinks,
		log:    log,
	}
}

func (m *Machine) State() types.State      { return m.state }
func (m *Machine) Floor() int              { return m.floor }
func (m *Machine) Dirn() types.Direction   { return m.dirn }
func (m *Machine) Orders() types.OrderList { return m.orders }

// Info returns the ElevatorInfo snapshot that would be gossiped right now.
func (m *Machine) Info() types.ElevatorInfo {
	return types.ElevatorInfo{
		ID:                m.id,
		State:             m.state,
		Dirn:              m.dirn,
		Floor:             m.floor,
		ResponsibleOrders: m.orders.Clone(),
	}
}

// Handle processes a single event to completion: it runs synchronously,
// mutates local fields, emits zero or more hardware commands, optionally a
// timer command, and finally the refreshed ElevatorInfo (spec.md §4.1).
func (m *Machine) Handle(ev types.Event) {
	switch ev.Kind {
	case types.EventFloorArrival:
		m.onFloorArrival(ev.Floor)
	case types.EventNewOrder:
		m.onNewOrder(ev.Button)
	case types.EventDoorTimeout:
		m.onDoorTimeout()
	case types.EventObstruction:
		m.onObstruction(ev.Active)
	case types.EventStateTimeout:
		m.onStateTimeout()
	default:
		// An event kind unknown to the closed variant is a programmer
		// bug, not a transient condition (spec.md §7).
		panic("fsm: unknown event kind")
	}
	m.publish()
}

func (m *Machine) onFloorArrival(f int) {
	m.floor = f
	m.sinks.emitHardware(types.FloorLightCmd(f))

	switch m.state {
	case types.Initializing:
		m.stopAndOpenDoor()
	case types.Moving:
		if shouldStop(f, m.dirn, m.orders) {
			m.stopAndOpenDoor()
		}
	case types.MovTimedOut:
		m.rePromoteOwnedHallOrders()
		m.stopAndOpenDoor()
	default:
		// Idle, DoorOpen, Obstructed, ObstrTimedOut: a floor sensor
		// reading outside of active travel updates the floor light
		// only (spurious sensor noise between floors), no state change.
	}
}

func (m *Machine) onNewOrder(b types.CallButton) {
	if m.state == types.Initializing || m.state == types.MovTimedOut {
		// No responsibility is accepted while the elevator cannot
		// itself reach the requested floor right now (spec.md §4.1).
		return
	}

	switch m.state {
	case types.Idle:
		m.orders.Set(b, types.Active)
		if b.Floor == m.floor {
			m.stopAndOpenDoor()
		} else {
			m.dirn = chooseDirection(m.dirn, m.floor, m.orders)
			m.sinks.emitHardware(types.MotorDirectionCmd(m.dirn))
			m.state = types.Moving
		}
	case types.DoorOpen:
		m.orders.Set(b, types.Active)
		if b.Floor == m.floor {
			m.sinks.emitTimer(types.StartTimer())
		}
	default:
		// Moving, Obstructed, ObstrTimedOut: the order is simply
		// accepted into the responsible list; it will be considered
		// the next time a stop decision is made.
		m.orders.Set(b, types.Active)
	}
}

func (m *Machine) onDoorTimeout() {
	if m.state != types.DoorOpen {
		return
	}
	m.sinks.emitHardware(types.DoorLightCmd(false))
	m.clearFloor(m.floor)
	m.dirn = chooseDirection(m.dirn, m.floor, m.orders)
	if m.dirn == types.Stop {
		m.state = types.Idle
	} else {
		m.sinks.emitHardware(types.MotorDirectionCmd(m.dirn))
		m.state = types.Moving
	}
}

// onObstruction applies to all three door-area states alike (DoorOpen,
// Obstructed, ObstrTimedOut): a rising edge always cancels the door timer and
// sets Obstructed, a falling edge always (re)starts the timer and sets
// DoorOpen -- including the ObstrTimedOut recovery the watchdog already
// escalated to, and the idempotent re-assert while already in the edge's
// target state.
func (m *Machine) onObstruction(active bool) {
	switch m.state {
	case types.DoorOpen, types.Obstructed, types.ObstrTimedOut:
	default:
		return
	}
	if active {
		m.sinks.emitTimer(types.CancelTimer())
		m.state = types.Obstructed
	} else {
		m.sinks.emitTimer(types.StartTimer())
		m.state = types.DoorOpen
	}
}

func (m *Machine) onStateTimeout() {
	switch m.state {
	case types.Initializing, types.Moving:
		m.state = types.MovTimedOut
		m.demoteOwnedHallOrders()
	case types.Obstructed:
		m.state = types.ObstrTimedOut
	default:
		// MovTimedOut/ObstrTimedOut arm an effectively infinite
		// watchdog deadline (spec.md §4.3); a timeout delivered here
		// anyway is ignored rather than treated as a bug.
	}
}

// stopAndOpenDoor is the common "arrive, stop motor, open door, start
// timer" sequence shared by several transitions.
func (m *Machine) stopAndOpenDoor() {
	m.sinks.emitHardware(types.MotorDirectionCmd(types.Stop))
	m.sinks.emitHardware(types.DoorLightCmd(true))
	m.clearFloor(m.floor)
	m.sinks.emitTimer(types.StartTimer())
	m.state = types.DoorOpen
}

// clearFloor clears Up, Down and Inside at f unconditionally and switches
// off the hall-button lights of any hall order it cleared (spec.md §4.1
// "Clearing orders on a floor"); the cab light is left to the light computer.
func (m *Machine) clearFloor(f int) {
	wasUp, wasDown := m.orders.Up[f], m.orders.Down[f]
	m.orders.ClearFloor(f)
	if wasUp != types.None {
		m.sinks.emitHardware(types.CallButtonLightCmd(f, types.HallUp, false))
	}
	if wasDown != types.None {
		m.sinks.emitHardware(types.CallButtonLightCmd(f, types.HallDown, false))
	}
}

// demoteOwnedHallOrders is the sole exception to "Active is never demoted
// by a merge": the owner unilaterally releases its own hall orders on a
// motor-stall timeout (a StateTimeout while Initializing or Moving) so peers
// can take over (spec.md §3, §4.1, §7). An obstruction timeout does not
// demote anything.
func (m *Machine) demoteOwnedHallOrders() {
	for f := 0; f < m.floors; f++ {
		if m.orders.Up[f] == types.Active {
			m.orders.Up[f] = types.Pending
		}
		if m.orders.Down[f] == types.Active {
			m.orders.Down[f] = types.Pending
		}
	}
}

func (m *Machine) rePromoteOwnedHallOrders() {
	for f := 0; f < m.floors; f++ {
		if m.orders.Up[f] == types.Pending {
			m.orders.Up[f] = types.Active
		}
		if m.orders.Down[f] == types.Pending {
			m.orders.Down[f] = types.Active
		}
	}
}

func (m *Machine) publish() {
	m.sinks.emitInfo(m.Info())
}
