package router

import (
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/internal/metrics"
	"github.com/elevio/elevcore/pkg/elevio/fsm"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// infiniteCost stands in for spec.md §4.5's "+∞": a candidate that cannot
// take the load right now. Comparisons against it always lose to any real
// simulated duration.
const infiniteCost = time.Duration(1<<63 - 1)

// maxSimulationSteps bounds the virtual-clock walk so a malformed snapshot
// (one that can never legitimately arise from the real FSM) cannot spin the
// router forever; it is generous relative to any realistic floor count.
const maxSimulationSteps = 1000

// cost implements spec.md §4.5's "time to idle" cost function: clone the
// candidate's last-known snapshot into a detached Machine wired to discard
// sinks, inject the candidate button as a NewOrder, then walk the same
// Moving/DoorOpen transition code the production elevator uses until Idle
// (or until the walk proves the candidate cannot take the load).
func cost(info types.ElevatorInfo, button types.CallButton, travelTime, doorOpenTime time.Duration, log definition.Logger) time.Duration {
	started := time.Now()
	defer func() {
		metrics.CostFunctionDuration.Observe(time.Since(started).Seconds())
	}()

	if info.State.Unavailable() {
		return infiniteCost
	}

	sinks, closeSinks := fsm.NewDiscardSinks()
	defer closeSinks()

	m := fsm.FromInfo(info, sinks, log)
	m.Handle(types.NewOrderEvent(button))

	var total time.Duration
	for step := 0; step < maxSimulationSteps; step++ {
		switch m.State() {
		case types.Idle:
			return total
		case types.Moving:
			total += travelTime
			next := int(m.Dirn()) + m.Floor()
			if next < 0 || next >= len(m.Orders().Up) {
				return infiniteCost
			}
			m.Handle(types.FloorArrival(next))
		case types.DoorOpen:
			total += doorOpenTime
			m.Handle(types.DoorTimeoutEvent())
		default:
			// Obstructed, ObstrTimedOut, MovTimedOut, Initializing: the
			// candidate fell into a fault state mid-simulation and
			// cannot be trusted with more load.
			return infiniteCost
		}
	}
	return infiniteCost
}
