// Package invoker is the goroutine-spawn abstraction cmd/elevnode runs each
// component's Run loop through, grounded on go-mcast's
// core.Invoker/InvokerInstance. Stop blocks until every spawned activity has
// returned. Short-lived helpers (burst sends, relays, the metrics listener,
// transport pollers) are started with plain go statements instead.
package invoker

import "sync"

// Invoker spawns a function as an independently running activity.
type Invoker interface {
	// Spawn runs f as its own concurrent activity.
	Spawn(f func())

	// Stop blocks until every activity spawned through this Invoker has
	// returned.
	Stop()
}

// process is the production Invoker: every spawned function runs on its own
// goroutine, tracked by a WaitGroup so Stop can block for clean shutdown.
type process struct {
	group sync.WaitGroup
}

// New creates a production Invoker.
func New() Invoker {
	return &process{}
}

func (p *process) Spawn(f func()) {
	p.group.Add(1)
	go func() {
		defer p.group.Done()
		f()
	}()
}

func (p *process) Stop() {
	p.group.Wait()
}
