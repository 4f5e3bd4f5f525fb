// Package config loads the process-wide, read-only configuration once at
// startup (spec.md §9 "Global state ... loaded once at startup and never
// mutated; pass it to components at construction") via github.com/spf13/pflag.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Config is the enumerated set of options from spec.md §6.
type Config struct {
	ID       int
	MaxNodes int
	Floors   int

	DoorOpenTime       time.Duration
	MotorTimeout       time.Duration
	ObstructedTimeout  time.Duration
	TimeUntilPeerLost  time.Duration
	InfoTransmitPeriod time.Duration
	CabRecoveryWindow  time.Duration

	// TravelTime and HandoffCheckDelay feed the order router's cost
	// function and fall-back timer (spec.md §4.5); they are not part of
	// spec.md §6's enumerated wire configuration but are tunable for the
	// same reason the other durations are.
	TravelTime        time.Duration
	HandoffCheckDelay time.Duration

	GossipPort     int
	AssignmentPort int
	CabBackupPort  int

	// MulticastGroup is the base multicast address the three UDP
	// channels each derive a port-qualified group from (e.g.
	// "239.0.0.1"). relt's group addressing is a single string; the core
	// template-expands it per channel rather than exposing a literal
	// port per the teacher's GroupAddress model.
	MulticastGroup string

	// HardwareAddr is the TCP address of the line-level hardware/simulator
	// endpoint (original_source driver/elev.rs). The core only consumes
	// typed events and emits typed commands; this address is how
	// cmd/elevnode dials the boundary the core itself never speaks to
	// directly.
	HardwareAddr string
	HardwarePoll time.Duration

	MetricsAddr string
}

// Default returns the configuration Parse starts from; its values match the
// literal end-to-end scenarios in spec.md §8 (F=5, MAX_NODES=3,
// DOOR_OPEN_TIME=3s).
func Default() Config {
	return Config{
		ID:       0,
		MaxNodes: 3,
		Floors:   5,

		DoorOpenTime:       3 * time.Second,
		MotorTimeout:       5 * time.Second,
		ObstructedTimeout:  10 * time.Second,
		TimeUntilPeerLost:  500 * time.Millisecond,
		InfoTransmitPeriod: 15 * time.Millisecond,
		CabRecoveryWindow:  time.Second,

		TravelTime:        2 * time.Second,
		HandoffCheckDelay: time.Second,

		GossipPort:     19738,
		AssignmentPort: 19739,
		CabBackupPort:  19740,
		MulticastGroup: "239.0.0.1",

		HardwareAddr: "localhost:15657",
		HardwarePoll: 25 * time.Millisecond,

		MetricsAddr: ":9644",
	}
}

// Parse builds a Config from command-line flags, seeded with Default()'s
// values.
func Parse(args []string) (Config, error) {
	c := Default()
	fs := pflag.NewFlagSet("elevnode", pflag.ContinueOnError)
	fs.IntVar(&c.ID, "id", c.ID, "this node's fixed identity, 0 <= id < max-nodes")
	fs.IntVar(&c.MaxNodes, "max-nodes", c.MaxNodes, "upper bound on cluster size")
	fs.IntVar(&c.Floors, "floors", c.Floors, "number of floors served")
	fs.DurationVar(&c.DoorOpenTime, "door-open-time", c.DoorOpenTime, "door hold duration")
	fs.DurationVar(&c.MotorTimeout, "motor-timeout", c.MotorTimeout, "moving/initializing stall deadline")
	fs.DurationVar(&c.ObstructedTimeout, "obstructed-timeout", c.ObstructedTimeout, "obstruction deadline")
	fs.DurationVar(&c.TimeUntilPeerLost, "peer-lost-timeout", c.TimeUntilPeerLost, "gossip liveness window")
	fs.DurationVar(&c.InfoTransmitPeriod, "gossip-period", c.InfoTransmitPeriod, "elevator-info gossip period")
	fs.DurationVar(&c.CabRecoveryWindow, "cab-recovery-window", c.CabRecoveryWindow, "startup cab-backup listen window")
	fs.IntVar(&c.GossipPort, "gossip-port", c.GossipPort, "elevator-info gossip UDP port")
	fs.IntVar(&c.AssignmentPort, "assignment-port", c.AssignmentPort, "hall-order assignment UDP port")
	fs.IntVar(&c.CabBackupPort, "cab-backup-port", c.CabBackupPort, "cab-backup gossip UDP port")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "listen address for /metrics")
	fs.DurationVar(&c.TravelTime, "travel-time", c.TravelTime, "simulated inter-floor travel time used by the cost function")
	fs.DurationVar(&c.HandoffCheckDelay, "handoff-check-delay", c.HandoffCheckDelay, "fall-back check delay after a hand-off broadcast")
	fs.StringVar(&c.MulticastGroup, "multicast-group", c.MulticastGroup, "base multicast address for the gossip/assignment/cab-backup channels")
	fs.StringVar(&c.HardwareAddr, "hardware-addr", c.HardwareAddr, "TCP address of the hardware/simulator endpoint")
	fs.DurationVar(&c.HardwarePoll, "hardware-poll-period", c.HardwarePoll, "hardware button/sensor poll period")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.ID < 0 || c.ID >= c.MaxNodes {
		return fmt.Errorf("config: id %d out of range [0,%d)", c.ID, c.MaxNodes)
	}
	if c.Floors <= 0 {
		return fmt.Errorf("config: floors must be positive, got %d", c.Floors)
	}
	if c.MaxNodes <= 0 {
		return fmt.Errorf("config: max-nodes must be positive, got %d", c.MaxNodes)
	}
	return nil
}

// GossipGroup, AssignmentGroup and CabBackupGroup are the three distinct
// relt multicast group addresses derived from MulticastGroup and each
// channel's port (spec.md §6 "one UDP port each").
func (c Config) GossipGroup() string     { return fmt.Sprintf("%s:%d", c.MulticastGroup, c.GossipPort) }
func (c Config) AssignmentGroup() string { return fmt.Sprintf("%s:%d", c.MulticastGroup, c.AssignmentPort) }
func (c Config) CabBackupGroup() string  { return fmt.Sprintf("%s:%d", c.MulticastGroup, c.CabBackupPort) }

// BootDelay is the spec.md §6 guarantee: sleeping this long before binding
// gossip sockets ensures a crash-restarted node's old instance has already
// been marked lost by the rest of the cluster, preventing double assignment.
func (c Config) BootDelay() time.Duration {
	return c.TimeUntilPeerLost + 500*time.Millisecond
}
