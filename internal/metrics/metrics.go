// Package metrics defines the prometheus collectors the Dynamic Router
// and Per-Agent Executor publish through, matching the teacher's
// internal/metrics use of github.com/prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ReconcileTicks counts Dynamic Router reconcile outcomes.
	ReconcileTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "a2agw",
		Subsystem: "router",
		Name:      "reconcile_ticks_total",
		Help:      "Reconcile ticks by outcome (changed, unchanged, error).",
	}, []string{"outcome"})

	// ActiveTasks tracks in-flight Per-Agent Executor tasks.
	ActiveTasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "a2agw",
		Subsystem: "executor",
		Name:      "active_tasks",
		Help:      "Number of in-flight execute() calls, by agent.",
	}, []string{"agent"})

	// QueryPhase counts terminal Query phases observed by the driver.
	QueryPhase = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "a2agw",
		Subsystem: "queryrun",
		Name:      "query_phase_total",
		Help:      "Terminal Query phases observed (done, error, timeout), by path (a2a, openai).",
	}, []string{"phase", "path"})
)

// MustRegister registers every collector in this package against reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ReconcileTicks, ActiveTasks, QueryPhase)
}
