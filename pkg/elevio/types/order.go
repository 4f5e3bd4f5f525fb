package types

import "encoding/json"

// OrderType is the three-valued tag a (elevator, button) slot carries.
//
// Only None->Pending, None->Active, Pending->Active, Active->None and
// Pending->None are legal transitions under the merge rules of the fleet
// view (see fleetview's mergeOrderType). Active->Pending is forbidden everywhere
// except the FSM's own unilateral "motor timeout demotes my hall orders"
// rule (fsm.Machine.demoteOwnedHallOrders) -- that single exception is
// never produced by a merge.
type OrderType uint8

const (
	// None means the slot is empty: nobody is responsible for it.
	None OrderType = iota
	// Active means the elevator has accepted responsibility and must
	// serve the call.
	Active
	// Pending is local-only knowledge: "I asked a peer to serve this,
	// and I'm waiting for it to upgrade to Active (or I'll reclaim
	// it)". Pending is never gossiped -- see fleetview merge table.
	Pending
)

func (t OrderType) String() string {
	switch t {
	case None:
		return "None"
	case Active:
		return "Active"
	case Pending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes Pending as "None" on the wire: Pending is local-only
// knowledge and is never transmitted (spec.md §3, §4.4). Any component
// gossiping an ElevatorInfo therefore automatically masks it without having
// to remember to do so at every call site.
func (t OrderType) MarshalJSON() ([]byte, error) {
	if t == Pending {
		return json.Marshal("None")
	}
	return json.Marshal(t.String())
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "None":
		*t = None
	case "Active":
		*t = Active
	default:
		*t = None
	}
	return nil
}

// OrderList is three parallel sequences of OrderType, one entry per floor.
// Inside is private to the owning elevator; Up/Down are replicated hall
// state. A fleet-view merge applies the same rule to all three columns.
type OrderList struct {
	Up     []OrderType
	Down   []OrderType
	Inside []OrderType
}

// NewOrderList allocates an all-None OrderList of the given floor count.
func NewOrderList(floors int) OrderList {
	return OrderList{
		Up:     make([]OrderType, floors),
		Down:   make([]OrderType, floors),
		Inside: make([]OrderType, floors),
	}
}

// Clone returns a deep copy, used whenever an OrderList crosses a component
// boundary (gossip snapshot, cost-function simulation) so nobody holds a
// shared mutable reference.
func (o OrderList) Clone() OrderList {
	c := OrderList{
		Up:     make([]OrderType, len(o.Up)),
		Down:   make([]OrderType, len(o.Down)),
		Inside: make([]OrderType, len(o.Inside)),
	}
	copy(c.Up, o.Up)
	copy(c.Down, o.Down)
	copy(c.Inside, o.Inside)
	return c
}

// At returns the OrderType for a given CallButton. HallUp/HallDown index
// Up/Down; Cab indexes Inside.
func (o OrderList) At(b CallButton) OrderType {
	switch b.Call {
	case HallUp:
		return o.Up[b.Floor]
	case HallDown:
		return o.Down[b.Floor]
	default:
		return o.Inside[b.Floor]
	}
}

// Set mutates the slot for a given CallButton in place.
func (o OrderList) Set(b CallButton, t OrderType) {
	switch b.Call {
	case HallUp:
		o.Up[b.Floor] = t
	case HallDown:
		o.Down[b.Floor] = t
	default:
		o.Inside[b.Floor] = t
	}
}

// ClearFloor clears Up, Down and Inside at f unconditionally -- the
// "clearing orders on a floor" rule from the FSM's door-open handling.
func (o OrderList) ClearFloor(f int) {
	o.Up[f] = None
	o.Down[f] = None
	o.Inside[f] = None
}

// HasActiveAbove reports whether any of Up, Down or Inside is Active at a
// floor strictly greater than f.
func (o OrderList) HasActiveAbove(f int) bool {
	for i := f + 1; i < len(o.Up); i++ {
		if o.Up[i] == Active || o.Down[i] == Active || o.Inside[i] == Active {
			return true
		}
	}
	return false
}

// HasActiveBelow reports whether any of Up, Down or Inside is Active at a
// floor strictly less than f.
func (o OrderList) HasActiveBelow(f int) bool {
	for i := 0; i < f && i < len(o.Up); i++ {
		if o.Up[i] == Active || o.Down[i] == Active || o.Inside[i] == Active {
			return true
		}
	}
	return false
}

// HasActiveInDirection reports an Active order strictly beyond f along d.
func (o OrderList) HasActiveInDirection(f int, d Direction) bool {
	if d == Up {
		return o.HasActiveAbove(f)
	}
	if d == Down {
		return o.HasActiveBelow(f)
	}
	return false
}
