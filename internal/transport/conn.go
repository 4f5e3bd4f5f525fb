// Package transport wires the three UDP channels spec.md §6 calls for
// (elevator-info gossip, hall-order assignment, cab-backup gossip) on top of
// the teacher's reliable multicast transport (jabolina/relt), generalized
// from a single typed Message payload to raw bytes so each of the three
// channels can carry its own JSON-encoded payload type.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/jabolina/relt/pkg/relt"
)

// deliverTimeout bounds how long Conn.poll will wait for a slow consumer
// before dropping a received frame, mirroring the teacher's
// ReliableTransport.consume (core/transport.go).
const deliverTimeout = 250 * time.Millisecond

// Conn is a single relt-backed multicast group carrying opaque byte frames.
// Every one of the three gossip channels opens its own Conn on its own
// group address (spec.md §6 "one UDP port each").
type Conn struct {
	log definition.Logger

	relt  *relt.Relt
	group relt.GroupAddress

	producer chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

// Dial opens a relt multicast group identified by name/group and starts
// polling it in the background (teacher's NewTransport + poll). name is
// suffixed with a random instance id so a crash-restarted node never
// collides with a just-departed incarnation still being torn down by relt.
func Dial(name, group string, log definition.Logger) (*Conn, error) {
	conf := relt.DefaultReltConfiguration()
	conf.Name = fmt.Sprintf("%s-%s", name, uuid.NewString())
	conf.Exchange = relt.GroupAddress(group)
	r, err := relt.NewRelt(*conf)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		log:      log,
		relt:     r,
		group:    relt.GroupAddress(group),
		producer: make(chan []byte, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.poll()
	return c, nil
}

// Send broadcasts a single frame to this Conn's group.
func (c *Conn) Send(data []byte) error {
	return c.relt.Broadcast(c.ctx, relt.Send{Address: c.group, Data: data})
}

// Recv is the channel incoming frames are published onto.
func (c *Conn) Recv() <-chan []byte {
	return c.producer
}

// Close tears the Conn down for sending and receiving.
func (c *Conn) Close() error {
	c.cancel()
	return c.relt.Close()
}

func (c *Conn) poll() {
	listener, err := c.relt.Consume()
	if err != nil {
		if c.log != nil {
			c.log.Errorf("transport: failed starting consumer for %s. %v", c.group, err)
		}
		return
	}
	for {
		select {
		case <-c.ctx.Done():
			return
		case recv, ok := <-listener:
			if !ok {
				return
			}
			c.deliver(recv)
		}
	}
}

func (c *Conn) deliver(recv relt.Recv) {
	if recv.Error != nil {
		if c.log != nil {
			c.log.Errorf("transport: consume error on %s. %v", c.group, recv.Error)
		}
		return
	}
	if recv.Data == nil {
		return
	}
	timeout, cancel := context.WithTimeout(c.ctx, deliverTimeout)
	defer cancel()
	select {
	case <-timeout.Done():
		if c.log != nil {
			c.log.Warnf("transport: dropped frame on %s (slow consumer)", c.group)
		}
	case c.producer <- recv.Data:
	}
}
