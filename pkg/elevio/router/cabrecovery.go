package router

import (
	"context"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// CabRecovery is spec.md §4.5's "cab backup" receiver: it watches the
// cab-backup broadcast (continuously-gossiped peer ElevatorInfo snapshots)
// only during a brief window after startup. If a backup message names this
// node's own ID as the subject, every Active cab order it carries is
// re-injected locally -- restoring cab calls that survived on a peer while
// this node was down.
type CabRecovery struct {
	localID     types.NodeID
	backups     <-chan types.ElevatorInfo
	localAssign chan<- types.Event
	log         definition.Logger
}

func NewCabRecovery(localID types.NodeID, backups <-chan types.ElevatorInfo, localAssign chan<- types.Event, log definition.Logger) *CabRecovery {
	return &CabRecovery{
		localID:     localID,
		backups:     backups,
		localAssign: localAssign,
		log:         log,
	}
}

// Run drains backups for window and then returns; the caller is expected to
// invoke this once, at boot, before the node's own gossip has had a chance
// to overwrite the backup it is recovering from.
func (c *CabRecovery) Run(ctx context.Context, window time.Duration) {
	deadline := time.NewTimer(window)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case info := <-c.backups:
			c.apply(info)
		}
	}
}

func (c *CabRecovery) apply(info types.ElevatorInfo) {
	if info.ID != c.localID {
		return
	}
	for f, t := range info.ResponsibleOrders.Inside {
		if t != types.Active {
			continue
		}
		btn := types.CallButton{Floor: f, Call: types.Cab}
		select {
		case c.localAssign <- types.NewOrderEvent(btn):
		default:
			if c.log != nil {
				c.log.Warnf("cabrecovery: dropped re-injection of %s", btn)
			}
		}
	}
}
