package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// CabBackup is spec.md §4.5/§6's "parallel broadcast carrying the latest
// ElevatorInfo on a separate port": every node continuously publishes its
// own latest ElevatorInfo here and decodes incoming frames onto the router's
// CabRecovery input. CabBackup keeps no copy of the infos it receives and
// never re-broadcasts them, so a backup naming a node is only on the wire
// while that node itself is publishing.
type CabBackup struct {
	conn wire
	log  definition.Logger

	localInfo <-chan types.ElevatorInfo
	backupOut chan<- types.ElevatorInfo

	period    time.Duration
	haveLocal bool
	lastLocal types.ElevatorInfo
}

func NewCabBackup(conn wire, period time.Duration, localInfo <-chan types.ElevatorInfo, backupOut chan<- types.ElevatorInfo, log definition.Logger) *CabBackup {
	return &CabBackup{conn: conn, log: log, localInfo: localInfo, backupOut: backupOut, period: period}
}

func (c *CabBackup) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case info := <-c.localInfo:
			c.haveLocal = true
			c.lastLocal = info
		case <-ticker.C:
			if c.haveLocal {
				c.publish()
			}
		case data := <-c.conn.Recv():
			c.onFrame(data)
		}
	}
}

func (c *CabBackup) publish() {
	data, err := json.Marshal(c.lastLocal)
	if err != nil {
		if c.log != nil {
			c.log.Errorf("cabbackup: failed marshalling local info. %v", err)
		}
		return
	}
	if err := c.conn.Send(data); err != nil && c.log != nil {
		c.log.Warnf("cabbackup: failed broadcasting local info. %v", err)
	}
}

func (c *CabBackup) onFrame(data []byte) {
	var info types.ElevatorInfo
	if err := json.Unmarshal(data, &info); err != nil {
		if c.log != nil {
			c.log.Warnf("cabbackup: failed decoding frame. %v", err)
		}
		return
	}
	select {
	case c.backupOut <- info:
	default:
		if c.log != nil {
			c.log.Warnf("cabbackup: dropped inbound backup for node %d", info.ID)
		}
	}
}
