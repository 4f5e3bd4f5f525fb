package transport

import (
	"context"
	"encoding/json"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/router"
)

// Assignment wires the router's outbound burst-broadcasts and inbound
// assignment receiver onto the dedicated assignment UDP port (spec.md
// §4.5, §6).
type Assignment struct {
	conn wire
	log  definition.Logger

	out <-chan router.AssignmentMessage
	in  chan<- router.AssignmentMessage
}

func NewAssignment(conn wire, out <-chan router.AssignmentMessage, in chan<- router.AssignmentMessage, log definition.Logger) *Assignment {
	return &Assignment{conn: conn, log: log, out: out, in: in}
}

// Run drains the router's outbound broadcasts onto the wire and decodes
// incoming frames back onto the router's inbound channel, until ctx is
// cancelled.
func (a *Assignment) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.out:
			a.publish(msg)
		case data := <-a.conn.Recv():
			a.onFrame(data)
		}
	}
}

func (a *Assignment) publish(msg router.AssignmentMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		if a.log != nil {
			a.log.Errorf("assignment: failed marshalling %+v. %v", msg, err)
		}
		return
	}
	if err := a.conn.Send(data); err != nil && a.log != nil {
		a.log.Warnf("assignment: failed broadcasting %+v. %v", msg, err)
	}
}

func (a *Assignment) onFrame(data []byte) {
	var msg router.AssignmentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		if a.log != nil {
			a.log.Warnf("assignment: failed decoding frame. %v", err)
		}
		return
	}
	select {
	case a.in <- msg:
	default:
		if a.log != nil {
			a.log.Warnf("assignment: dropped inbound %+v (slow router)", msg)
		}
	}
}
