// Package hardwareio is the TCP line-level adapter to the elevator hardware
// (or its simulator), grounded on original_source's driver/elev.rs: a
// single 4-byte request/response protocol over one TCP connection, guarded
// by a mutex since every call is a synchronous write-then-read pair on a
// shared socket.
package hardwareio

import (
	"fmt"
	"net"
	"sync"

	"github.com/elevio/elevcore/pkg/elevio/types"
)

const (
	opMotorDirection    = 1
	opCallButtonLight   = 2
	opFloorIndicator    = 3
	opDoorLight         = 4
	opStopButtonLight   = 5
	opCallButton        = 6
	opFloorSensor       = 7
	opStopButton        = 8
	opObstructionSwitch = 9
)

const (
	dirnDownByte byte = 0xFF
	dirnStopByte byte = 0
	dirnUpByte   byte = 1
)

// Adapter is a single TCP connection to the hardware, reproducing
// original_source's 4-byte command protocol faithfully enough to drive the
// same simulator/hardware this system was distilled from.
type Adapter struct {
	mu   sync.Mutex
	conn net.Conn

	Floors int
}

// Dial connects to a hardware (or simulator) endpoint.
func Dial(addr string, floors int) (*Adapter, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("hardwareio: dial %s: %w", addr, err)
	}
	return &Adapter{conn: conn, Floors: floors}, nil
}

func (a *Adapter) Close() error {
	return a.conn.Close()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func dirnByte(d types.Direction) byte {
	switch d {
	case types.Up:
		return dirnUpByte
	case types.Down:
		return dirnDownByte
	default:
		return dirnStopByte
	}
}

func callByte(c types.CallKind) byte {
	switch c {
	case types.HallUp:
		return 0
	case types.HallDown:
		return 1
	default:
		return 2
	}
}

// roundTrip sends a 4-byte frame and reads the 4-byte reply. Every hardware
// operation -- command or query -- is this same shape.
func (a *Adapter) roundTrip(req [4]byte) ([4]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var reply [4]byte
	if _, err := a.conn.Write(req[:]); err != nil {
		return reply, fmt.Errorf("hardwareio: write: %w", err)
	}
	if _, err := fillFull(a.conn, reply[:]); err != nil {
		return reply, fmt.Errorf("hardwareio: read: %w", err)
	}
	return reply, nil
}

func fillFull(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		if err != nil {
			return n, err
		}
		n += m
	}
	return n, nil
}

func (a *Adapter) SetMotorDirection(d types.Direction) error {
	_, err := a.roundTrip([4]byte{opMotorDirection, dirnByte(d), 0, 0})
	return err
}

func (a *Adapter) SetCallButtonLight(floor int, call types.CallKind, on bool) error {
	_, err := a.roundTrip([4]byte{opCallButtonLight, callByte(call), byte(floor), boolByte(on)})
	return err
}

func (a *Adapter) SetFloorIndicator(floor int) error {
	_, err := a.roundTrip([4]byte{opFloorIndicator, byte(floor), 0, 0})
	return err
}

func (a *Adapter) SetDoorLight(on bool) error {
	_, err := a.roundTrip([4]byte{opDoorLight, boolByte(on), 0, 0})
	return err
}

func (a *Adapter) SetStopLight(on bool) error {
	_, err := a.roundTrip([4]byte{opStopButtonLight, boolByte(on), 0, 0})
	return err
}

// CallButton reports whether the given hall/cab button is currently
// pressed.
func (a *Adapter) CallButton(floor int, call types.CallKind) (bool, error) {
	reply, err := a.roundTrip([4]byte{opCallButton, callByte(call), byte(floor), 0})
	if err != nil {
		return false, err
	}
	return reply[1] != 0, nil
}

// FloorSensor reports the current floor, or ok=false between floors.
func (a *Adapter) FloorSensor() (floor int, ok bool, err error) {
	reply, err := a.roundTrip([4]byte{opFloorSensor, 0, 0, 0})
	if err != nil {
		return 0, false, err
	}
	if reply[1] == 0 {
		return 0, false, nil
	}
	return int(reply[2]), true, nil
}

// StopButton queries the stop button. Poller does not call it, so the stop
// button is never polled and no stop event is produced.
func (a *Adapter) StopButton() (bool, error) {
	reply, err := a.roundTrip([4]byte{opStopButton, 0, 0, 0})
	if err != nil {
		return false, err
	}
	return reply[1] != 0, nil
}

func (a *Adapter) Obstruction() (bool, error) {
	reply, err := a.roundTrip([4]byte{opObstructionSwitch, 0, 0, 0})
	if err != nil {
		return false, err
	}
	return reply[1] != 0, nil
}
