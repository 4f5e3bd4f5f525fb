package fsm

import "github.com/elevio/elevcore/pkg/elevio/types"

// Sinks are the three outbound channels a Machine publishes onto: hardware
// commands, timer commands, and the refreshed ElevatorInfo snapshot. They
// are unbounded (generously buffered) per spec.md §5: "all hardware
// commands are best-effort sends onto an unbounded queue; the adapter is
// trusted to drain."
type Sinks struct {
	Hardware chan types.HardwareCommand
	Timer    chan types.TimerCommand
	Info     chan types.ElevatorInfo
}

// queueDepth is generous enough that a Machine's handle() call, which must
// never block (spec.md §5 "The FSM never blocks during handle"), never
// backs up against a slow consumer in practice; the simulation's discard
// sinks drain instantly regardless.
const queueDepth = 256

// NewSinks allocates a set of production sinks for a Machine wired to real
// consumers (the hardware adapter, the door timer, the fleet view).
func NewSinks() Sinks {
	return Sinks{
		Hardware: make(chan types.HardwareCommand, queueDepth),
		Timer:    make(chan types.TimerCommand, queueDepth),
		Info:     make(chan types.ElevatorInfo, queueDepth),
	}
}

// NewDiscardSinks allocates sinks that are drained by a background goroutine
// into nothing. This is what the cost-function simulation wires a cloned
// Machine to (spec.md §4.5, §9): "the simulated FSM must be a detached
// clone -- hardware and timer channels replaced with no-op sinks so real
// commands never leak." The caller must call the returned function to stop
// the drainer.
func NewDiscardSinks() (Sinks, func()) {
	s := Sinks{
		Hardware: make(chan types.HardwareCommand, queueDepth),
		Timer:    make(chan types.TimerCommand, queueDepth),
		Info:     make(chan types.ElevatorInfo, queueDepth),
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-s.Hardware:
			case <-s.Timer:
			case <-s.Info:
			case <-done:
				return
			}
		}
	}()
	return s, func() { close(done) }
}

func (s Sinks) emitHardware(cmd types.HardwareCommand) {
	select {
	case s.Hardware <- cmd:
	default:
	}
}

func (s Sinks) emitTimer(cmd types.TimerCommand) {
	select {
	case s.Timer <- cmd:
	default:
	}
}

func (s Sinks) emitInfo(info types.ElevatorInfo) {
	select {
	case s.Info <- info:
	default:
	}
}
