// Command elevnode is the process bootstrap for a single cluster node: it
// parses configuration, wires every component named in spec.md (the local
// FSM, door timer, watchdog, fleet view, order router, the three gossip
// channels, the hardware boundary and the metrics endpoint) and blocks
// until an interrupt signal asks for shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elevio/elevcore/internal/config"
	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/internal/hardwareio"
	"github.com/elevio/elevcore/internal/invoker"
	"github.com/elevio/elevcore/internal/metrics"
	"github.com/elevio/elevcore/internal/transport"
	"github.com/elevio/elevcore/pkg/elevio/doortimer"
	"github.com/elevio/elevcore/pkg/elevio/fleetview"
	"github.com/elevio/elevcore/pkg/elevio/fsm"
	"github.com/elevio/elevcore/pkg/elevio/router"
	"github.com/elevio/elevcore/pkg/elevio/types"
	"github.com/elevio/elevcore/pkg/elevio/watchdog"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := definition.NewDefaultLogger(cfg.ID)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("elevnode: id=%d max-nodes=%d floors=%d, sleeping %s before binding gossip sockets",
		cfg.ID, cfg.MaxNodes, cfg.Floors, cfg.BootDelay())

	// spec.md §6: a crash-restarted node waits out the peer-lost window
	// before rejoining gossip, so the rest of the cluster has already
	// marked its old incarnation lost and will not double-assign.
	select {
	case <-time.After(cfg.BootDelay()):
	case <-ctx.Done():
		return
	}

	run(ctx, cfg, log)
}

func run(ctx context.Context, cfg config.Config, log *definition.DefaultLogger) {
	inv := invoker.New()
	defer inv.Stop()

	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.Errorf("metrics: listener stopped. %v", err)
		}
	}()

	adapter, err := hardwareio.Dial(cfg.HardwareAddr, cfg.Floors)
	if err != nil {
		log.Errorf("elevnode: failed dialing hardware at %s. %v", cfg.HardwareAddr, err)
		return
	}
	defer adapter.Close()

	sinks := fsm.NewSinks()
	machine := fsm.New(types.NodeID(cfg.ID), cfg.Floors, sinks, log)

	localEvents := make(chan types.Event, 256)
	presses := make(chan types.CallButton, 256)

	doorEvents := make(chan types.Event, 16)
	watchdogEvents := make(chan types.Event, 16)
	watchdogStates := make(chan types.State, 16)

	localInfoToView := make(chan types.ElevatorInfo, 16)
	localInfoToGossip := make(chan types.ElevatorInfo, 16)
	localInfoToCabBackup := make(chan types.ElevatorInfo, 16)

	remoteUpdates := make(chan []types.ElevatorInfo, 16)
	setPending := make(chan fleetview.SetPendingMsg, 64)
	snapshots := make(chan types.ConnectedElevators, 16)
	lightSnapshots := make(chan types.ConnectedElevators, 16)
	takeovers := make(chan fleetview.TakeoverEvent, 16)

	assignmentsOut := make(chan router.AssignmentMessage, 64)
	assignmentsIn := make(chan router.AssignmentMessage, 64)
	cabBackupIn := make(chan types.ElevatorInfo, 16)

	doorTimer := doortimer.New(cfg.DoorOpenTime, sinks.Timer, doorEvents)
	wd := watchdog.New(cfg.MotorTimeout, cfg.ObstructedTimeout, watchdogStates, watchdogEvents)

	view := fleetview.New(fleetview.Config{
		LocalID:       types.NodeID(cfg.ID),
		MaxNodes:      cfg.MaxNodes,
		Floors:        cfg.Floors,
		LocalUpdates:  localInfoToView,
		RemoteUpdates: remoteUpdates,
		SetPending:    setPending,
		Snapshots:     fanSnapshots(ctx, snapshots, lightSnapshots),
		Takeovers:     takeovers,
		Log:           log,
	})

	lights := fleetview.NewLightComputer(types.NodeID(cfg.ID), cfg.Floors, lightSnapshots, sinks.Hardware)

	rt := router.New(router.Config{
		LocalID:       types.NodeID(cfg.ID),
		TravelTime:    cfg.TravelTime,
		DoorOpenTime:  cfg.DoorOpenTime,
		CheckDelay:    cfg.HandoffCheckDelay,
		Presses:       presses,
		Takeovers:     takeovers,
		AssignmentsIn: assignmentsIn,
		Snapshots:     snapshots,
		LocalAssign:   localEvents,
		SetPending:    setPending,
		BroadcastOut:  assignmentsOut,
		Log:           log,
	})
	cabRecovery := router.NewCabRecovery(types.NodeID(cfg.ID), cabBackupIn, localEvents, log)

	gossipConn, err := transport.Dial(fmt.Sprintf("elevnode-%d-gossip", cfg.ID), cfg.GossipGroup(), log)
	if err != nil {
		log.Errorf("elevnode: failed dialing gossip transport. %v", err)
		return
	}
	defer gossipConn.Close()
	assignmentConn, err := transport.Dial(fmt.Sprintf("elevnode-%d-assignment", cfg.ID), cfg.AssignmentGroup(), log)
	if err != nil {
		log.Errorf("elevnode: failed dialing assignment transport. %v", err)
		return
	}
	defer assignmentConn.Close()
	cabBackupConn, err := transport.Dial(fmt.Sprintf("elevnode-%d-cabbackup", cfg.ID), cfg.CabBackupGroup(), log)
	if err != nil {
		log.Errorf("elevnode: failed dialing cab-backup transport. %v", err)
		return
	}
	defer cabBackupConn.Close()

	gossip := transport.NewGossip(gossipConn, transport.GossipConfig{
		LocalID:       types.NodeID(cfg.ID),
		Period:        cfg.InfoTransmitPeriod,
		PeerLostAfter: cfg.TimeUntilPeerLost,
		LocalInfo:     localInfoToGossip,
		RemoteOut:     remoteUpdates,
	}, log)
	assignment := transport.NewAssignment(assignmentConn, assignmentsOut, assignmentsIn, log)
	cabBackup := transport.NewCabBackup(cabBackupConn, cfg.InfoTransmitPeriod, localInfoToCabBackup, cabBackupIn, log)

	poller := hardwareio.NewPoller(adapter, hardwareio.PollConfig{
		Floors:   cfg.Floors,
		Period:   cfg.HardwarePoll,
		Commands: sinks.Hardware,
		Events:   localEvents,
		Presses:  presses,
	}, log)

	inv.Spawn(func() { doorTimer.Run(ctx) })
	inv.Spawn(func() { wd.Run(ctx) })
	inv.Spawn(func() { view.Run(ctx) })
	inv.Spawn(func() { lights.Run(ctx) })
	inv.Spawn(func() { rt.Run(ctx) })
	inv.Spawn(func() { gossip.Run(ctx) })
	inv.Spawn(func() { assignment.Run(ctx) })
	inv.Spawn(func() { cabBackup.Run(ctx) })
	inv.Spawn(func() { poller.Run(ctx) })
	inv.Spawn(func() { cabRecovery.Run(ctx, cfg.CabRecoveryWindow) })
	inv.Spawn(func() { forwardEvents(ctx, doorEvents, localEvents) })
	inv.Spawn(func() { forwardEvents(ctx, watchdogEvents, localEvents) })
	inv.Spawn(func() {
		fanInfo(ctx, sinks.Info, localInfoToView, localInfoToGossip, localInfoToCabBackup, watchdogStates)
	})
	inv.Spawn(func() { driveMachine(ctx, machine, localEvents) })

	log.Infof("elevnode: id=%d running", cfg.ID)
	<-ctx.Done()
	log.Infof("elevnode: id=%d shutting down", cfg.ID)
}

// driveMachine is the single goroutine that ever calls machine.Handle,
// preserving the FSM's single-threaded contract (spec.md §4.1, §5) while
// every other component feeds it through one shared event channel.
func driveMachine(ctx context.Context, machine *fsm.Machine, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			machine.Handle(ev)
		}
	}
}

// forwardEvents relays a dedicated producer's events (the door timer, the
// watchdog) onto the machine's shared input, so driveMachine remains the
// sole caller of Handle.
func forwardEvents(ctx context.Context, in <-chan types.Event, out chan<- types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-in:
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// fanInfo relays every ElevatorInfo the local machine publishes to its
// three consumers (the fleet view, the gossip publisher, the cab-backup
// publisher) and derives the watchdog's State stream from the same
// snapshots, so the Machine itself only has one outbound Info sink.
func fanInfo(ctx context.Context, in <-chan types.ElevatorInfo, toView, toGossip, toCabBackup chan<- types.ElevatorInfo, toWatchdog chan<- types.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case info := <-in:
			nonBlockingSendInfo(toView, info)
			nonBlockingSendInfo(toGossip, info)
			nonBlockingSendInfo(toCabBackup, info)
			nonBlockingSendState(toWatchdog, info.State)
		}
	}
}

func nonBlockingSendInfo(ch chan<- types.ElevatorInfo, info types.ElevatorInfo) {
	select {
	case ch <- info:
	default:
	}
}

func nonBlockingSendState(ch chan<- types.State, s types.State) {
	select {
	case ch <- s:
	default:
	}
}

// fanSnapshots relays every fleet-view snapshot to the router's feed and a
// second, independent channel the light computer reads from -- each gets
// its own clone already (types.ConnectedElevators.Clone inside View.publish
// would require two channel params on Config instead; this keeps View's
// single Snapshots output while still feeding two consumers).
func fanSnapshots(ctx context.Context, primary chan<- types.ConnectedElevators, secondary chan<- types.ConnectedElevators) chan<- types.ConnectedElevators {
	relay := make(chan types.ConnectedElevators, 16)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-relay:
				nonBlockingSendSnapshot(primary, snap)
				nonBlockingSendSnapshot(secondary, snap.Clone())
			}
		}
	}()
	return relay
}

func nonBlockingSendSnapshot(ch chan<- types.ConnectedElevators, snap types.ConnectedElevators) {
	select {
	case ch <- snap:
	default:
	}
}
