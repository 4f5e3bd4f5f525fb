// Package metrics exposes the coordination core's Prometheus metrics,
// grounded on doublezero's controller/internal/controller/metrics.go
// pattern: package-level collectors registered in init, served over
// promhttp on a dedicated listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elevcore_fsm_state_transitions_total",
		Help: "Total FSM state transitions, by resulting state",
	}, []string{"state"})

	HallOrdersAssignedLocally = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "elevcore_router_local_assignments_total",
		Help: "Total orders (hall or cab) this node assigned to itself, by reason",
	}, []string{"reason"})

	HandoffsInitiated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "elevcore_router_handoffs_initiated_total",
		Help: "Total two-phase hand-offs broadcast to a peer",
	})

	HandoffsFailedOver = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "elevcore_router_handoffs_failed_over_total",
		Help: "Total hand-offs that fell back to local reassignment after the designated owner never upgraded",
	})

	PeersLost = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "elevcore_gossip_peers_lost_total",
		Help: "Total peer-lost events declared by the gossip receiver",
	})

	TakeoversEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "elevcore_fleetview_takeovers_emitted_total",
		Help: "Total local-takeover events emitted by the fleet view",
	})

	CostFunctionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "elevcore_router_cost_function_seconds",
		Help:    "Wall-clock time spent running the cost-function simulation for a single candidate",
		Buckets: prometheus.DefBuckets,
	})

	HallLightsOn = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "elevcore_hall_lights_on",
		Help: "Current hall light state, by floor and direction (1 = on)",
	}, []string{"floor", "direction"})
)

func init() {
	prometheus.MustRegister(StateTransitions)
	prometheus.MustRegister(HallOrdersAssignedLocally)
	prometheus.MustRegister(HandoffsInitiated)
	prometheus.MustRegister(HandoffsFailedOver)
	prometheus.MustRegister(PeersLost)
	prometheus.MustRegister(TakeoversEmitted)
	prometheus.MustRegister(CostFunctionDuration)
	prometheus.MustRegister(HallLightsOn)
}

// Serve starts the /metrics HTTP endpoint and blocks until the listener
// fails. Intended to be run in its own goroutine from cmd/elevnode.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
