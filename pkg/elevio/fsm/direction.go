package fsm

import "github.com/elevio/elevcore/pkg/elevio/types"

// chooseDirection implements the SCAN-with-direction-preference policy of
// spec.md §4.1. It is called both by the production Machine and by the
// router's cost-function simulation (they share this exact function so the
// two paths can never disagree, per spec.md §9).
func chooseDirection(dirn types.Direction, floor int, orders types.OrderList) types.Direction {
	above := orders.HasActiveAbove(floor)
	below := orders.HasActiveBelow(floor)

	switch dirn {
	case types.Up:
		if above {
			return types.Up
		}
		if below {
			return types.Down
		}
		return types.Stop
	case types.Down:
		if below {
			return types.Down
		}
		if above {
			return types.Up
		}
		return types.Stop
	default: // Stop: prefer Down over Up, an arbitrary but deterministic
		// tie-break consistent with the Initializing->Down bias.
		if below {
			return types.Down
		}
		if above {
			return types.Up
		}
		return types.Stop
	}
}

// shouldStop implements the should-stop predicate of spec.md §4.1: stop at
// floor f while moving d iff there is a cab call there, a hall call in the
// direction of travel there, or no further active order in direction d
// (the clause that forces a stop at the farthest active request even when
// heading away from the direction preference).
func shouldStop(f int, d types.Direction, orders types.OrderList) bool {
	if orders.Inside[f] == types.Active {
		return true
	}
	if d == types.Up && orders.Up[f] == types.Active {
		return true
	}
	if d == types.Down && orders.Down[f] == types.Active {
		return true
	}
	return !orders.HasActiveInDirection(f, d)
}
