package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/elevio/elevcore/internal/definition"
	"github.com/elevio/elevcore/pkg/elevio/types"
)

// livenessPollInterval is how often the gossip receiver checks for peers
// that have gone silent for longer than TimeUntilPeerLost.
const livenessPollInterval = 20 * time.Millisecond

// redundantSends is spec.md §6's "sent three times per tick as cheap
// redundancy": ElevatorInfo rides UDP multicast, so publish reuses the same
// marshalled frame and fires it redundantSends times per Period instead of
// once, tolerating an occasional dropped packet without waiting out a full
// Period for the next chance.
const redundantSends = 3

// GossipConfig bundles a Gossip's channels and timing.
type GossipConfig struct {
	LocalID       types.NodeID
	Period        time.Duration
	PeerLostAfter time.Duration

	LocalInfo <-chan types.ElevatorInfo
	RemoteOut chan<- []types.ElevatorInfo
}

// Gossip is the per-node publisher and receiver for spec.md §4.4's
// "periodic UDP gossip": it re-broadcasts the last-known local ElevatorInfo
// every Period and maintains a "latest seen per peer" registry, emitting the
// currently-alive vector to the fleet view whenever a peer's info arrives or
// a peer is declared lost.
type Gossip struct {
	conn wire
	cfg  GossipConfig
	log  definition.Logger

	haveLocal bool
	lastLocal types.ElevatorInfo

	lastSeen map[types.NodeID]time.Time
	latest   map[types.NodeID]types.ElevatorInfo
}

func NewGossip(conn wire, cfg GossipConfig, log definition.Logger) *Gossip {
	return &Gossip{
		conn:     conn,
		cfg:      cfg,
		log:      log,
		lastSeen: make(map[types.NodeID]time.Time),
		latest:   make(map[types.NodeID]types.ElevatorInfo),
	}
}

func (g *Gossip) publish() {
	data, err := json.Marshal(g.lastLocal)
	if err != nil {
		if g.log != nil {
			g.log.Errorf("gossip: failed marshalling local info. %v", err)
		}
		return
	}
	for i := 0; i < redundantSends; i++ {
		if err := g.conn.Send(data); err != nil && g.log != nil {
			g.log.Warnf("gossip: failed broadcasting local info. %v", err)
		}
	}
}

func (g *Gossip) onFrame(data []byte) {
	var info types.ElevatorInfo
	if err := json.Unmarshal(data, &info); err != nil {
		if g.log != nil {
			g.log.Warnf("gossip: failed decoding peer info. %v", err)
		}
		return
	}
	if info.ID == g.cfg.LocalID {
		return
	}
	g.lastSeen[info.ID] = time.Now()
	g.latest[info.ID] = info
	g.emitAlive()
}

func (g *Gossip) expireStalePeers() {
	changed := false
	now := time.Now()
	for id, seen := range g.lastSeen {
		if now.Sub(seen) > g.cfg.PeerLostAfter {
			delete(g.lastSeen, id)
			delete(g.latest, id)
			changed = true
		}
	}
	if changed {
		g.emitAlive()
	}
}

func (g *Gossip) emitAlive() {
	alive := make([]types.ElevatorInfo, 0, len(g.latest))
	for _, info := range g.latest {
		alive = append(alive, info)
	}
	select {
	case g.cfg.RemoteOut <- alive:
	default:
		if g.log != nil {
			g.log.Warnf("gossip: dropped alive-peer update (slow fleet view)")
		}
	}
}

// Run blocks until ctx is cancelled.
func (g *Gossip) Run(ctx context.Context) {
	sendTicker := time.NewTicker(g.cfg.Period)
	defer sendTicker.Stop()
	livenessTicker := time.NewTicker(livenessPollInterval)
	defer livenessTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case info := <-g.cfg.LocalInfo:
			g.haveLocal = true
			g.lastLocal = info
		case <-sendTicker.C:
			if g.haveLocal {
				g.publish()
			}
		case data := <-g.conn.Recv():
			g.onFrame(data)
		case <-livenessTicker.C:
			g.expireStalePeers()
		}
	}
}
