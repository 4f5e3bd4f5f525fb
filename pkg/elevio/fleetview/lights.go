package fleetview

import (
	"context"
	"strconv"

	"github.com/elevio/elevcore/internal/metrics"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// LightState is a mirror of every button light this node's hardware should
// currently show: hall lights reflect global state (any slot Active), cab
// lights reflect only the local slot's inside_queue (spec.md §4.4 "Lights
// derivation").
type LightState struct {
	Up     []bool
	Down   []bool
	Inside []bool
}

// DeriveLights computes the LightState implied by a ConnectedElevators
// snapshot.
func DeriveLights(view types.ConnectedElevators, localID types.NodeID, floors int) LightState {
	ls := LightState{
		Up:     make([]bool, floors),
		Down:   make([]bool, floors),
		Inside: make([]bool, floors),
	}
	for _, slot := range view.Slots {
		if slot == nil {
			continue
		}
		for f := 0; f < floors; f++ {
			if slot.ResponsibleOrders.Up[f] == types.Active {
				ls.Up[f] = true
			}
			if slot.ResponsibleOrders.Down[f] == types.Active {
				ls.Down[f] = true
			}
		}
	}
	if local := view.Get(localID); local != nil {
		for f := 0; f < floors; f++ {
			ls.Inside[f] = local.ResponsibleOrders.Inside[f] == types.Active
		}
	}
	return ls
}

// LightComputer is the dedicated consumer of spec.md §4.4: it keeps a
// mirror of the last sent light state and emits a hardware command only on
// a transition.
type LightComputer struct {
	localID  types.NodeID
	floors   int
	snapshot <-chan types.ConnectedElevators
	hardware chan<- types.HardwareCommand
	last     LightState
}

func NewLightComputer(localID types.NodeID, floors int, snapshots <-chan types.ConnectedElevators, hardware chan<- types.HardwareCommand) *LightComputer {
	return &LightComputer{
		localID:  localID,
		floors:   floors,
		snapshot: snapshots,
		hardware: hardware,
		last: LightState{
			Up:     make([]bool, floors),
			Down:   make([]bool, floors),
			Inside: make([]bool, floors),
		},
	}
}

func (c *LightComputer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-c.snapshot:
			c.apply(DeriveLights(snap, c.localID, c.floors))
		}
	}
}

func (c *LightComputer) apply(next LightState) {
	for f := 0; f < c.floors; f++ {
		if next.Up[f] != c.last.Up[f] {
			c.emit(types.CallButtonLightCmd(f, types.HallUp, next.Up[f]))
			metrics.HallLightsOn.WithLabelValues(strconv.Itoa(f), "up").Set(boolToFloat(next.Up[f]))
		}
		if next.Down[f] != c.last.Down[f] {
			c.emit(types.CallButtonLightCmd(f, types.HallDown, next.Down[f]))
			metrics.HallLightsOn.WithLabelValues(strconv.Itoa(f), "down").Set(boolToFloat(next.Down[f]))
		}
		if next.Inside[f] != c.last.Inside[f] {
			c.emit(types.CallButtonLightCmd(f, types.Cab, next.Inside[f]))
		}
	}
	c.last = next
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *LightComputer) emit(cmd types.HardwareCommand) {
	select {
	case c.hardware <- cmd:
	default:
	}
}
