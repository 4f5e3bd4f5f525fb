package hardwareio

import (
	"context"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// PollConfig bundles a Poller's adapter, channels and timing.
type PollConfig struct {
	Floors int
	Period time.Duration

	Commands <-chan types.HardwareCommand
	Events   chan<- types.Event
	Presses  chan<- types.CallButton
}

// Poller is the Go counterpart of original_source's elevio/poll.rs: it
// applies outbound HardwareCommands as they arrive and, on a fixed period,
// edge-detects every button, the floor sensor and the obstruction switch,
// translating button presses (rising edges), floor changes and obstruction
// changes into the events the FSM and the router expect. The stop button is
// not polled.
type Poller struct {
	adapter *Adapter
	cfg     PollConfig
	log     definition.Logger

	prevButtons [][3]bool
	prevFloor   int
	haveFloor   bool
	prevObstr   bool
}

func NewPoller(adapter *Adapter, cfg PollConfig, log definition.Logger) *Poller {
	return &Poller{
		adapter:     adapter,
		cfg:         cfg,
		log:         log,
		prevButtons: make([][3]bool, cfg.Floors),
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-p.cfg.Commands:
			p.apply(cmd)
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) apply(cmd types.HardwareCommand) {
	var err error
	switch cmd.Kind {
	case types.CmdMotorDirection:
		err = p.adapter.SetMotorDirection(cmd.Dirn)
	case types.CmdDoorLight:
		err = p.adapter.SetDoorLight(cmd.On)
	case types.CmdStopLight:
		err = p.adapter.SetStopLight(cmd.On)
	case types.CmdFloorLight:
		err = p.adapter.SetFloorIndicator(cmd.Floor)
	case types.CmdCallButtonLight:
		err = p.adapter.SetCallButtonLight(cmd.Floor, cmd.Call, cmd.On)
	}
	if err != nil && p.log != nil {
		p.log.Errorf("hardwareio: failed applying %+v. %v", cmd, err)
	}
}

func (p *Poller) pollOnce() {
	p.pollButtons()
	p.pollFloor()
	p.pollObstruction()
}

var callKinds = [3]types.CallKind{types.HallUp, types.HallDown, types.Cab}

func (p *Poller) pollButtons() {
	for f := 0; f < p.cfg.Floors; f++ {
		for i, call := range callKinds {
			on, err := p.adapter.CallButton(f, call)
			if err != nil {
				if p.log != nil {
					p.log.Errorf("hardwareio: failed reading call button %d/%s. %v", f, call, err)
				}
				continue
			}
			if on && !p.prevButtons[f][i] {
				p.emitPress(types.CallButton{Floor: f, Call: call})
			}
			p.prevButtons[f][i] = on
		}
	}
}

func (p *Poller) pollFloor() {
	floor, ok, err := p.adapter.FloorSensor()
	if err != nil {
		if p.log != nil {
			p.log.Errorf("hardwareio: failed reading floor sensor. %v", err)
		}
		return
	}
	if !ok {
		return
	}
	if p.haveFloor && floor == p.prevFloor {
		return
	}
	p.haveFloor = true
	p.prevFloor = floor
	p.emitEvent(types.FloorArrival(floor))
}

func (p *Poller) pollObstruction() {
	on, err := p.adapter.Obstruction()
	if err != nil {
		if p.log != nil {
			p.log.Errorf("hardwareio: failed reading obstruction switch. %v", err)
		}
		return
	}
	if on == p.prevObstr {
		return
	}
	p.prevObstr = on
	p.emitEvent(types.ObstructionEvent(on))
}

func (p *Poller) emitEvent(ev types.Event) {
	select {
	case p.cfg.Events <- ev:
	default:
		if p.log != nil {
			p.log.Warnf("hardwareio: dropped event %+v (slow FSM)", ev)
		}
	}
}

func (p *Poller) emitPress(b types.CallButton) {
	select {
	case p.cfg.Presses <- b:
	default:
		if p.log != nil {
			p.log.Warnf("hardwareio: dropped press %s (slow router)", b)
		}
	}
}
