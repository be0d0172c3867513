package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics are the supervisor's own counters, separate from the
// OpenTelemetry metrics the resilience package emits — these are cheap,
// in-process counts an operator can scrape from the status server
// without standing up a collector.
type runMetrics struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	turnsTotal  prometheus.Counter
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoweb_supervisor_runs_total",
		Help: "Graph runs started or resumed by the supervisor, labeled by outcome.",
	}, []string{"outcome"})

	turnsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoweb_supervisor_repl_turns_total",
		Help: "Lines read from the REPL's stdin, including reserved commands.",
	})

	reg.MustRegister(runsTotal, turnsTotal)

	return &runMetrics{registry: reg, runsTotal: runsTotal, turnsTotal: turnsTotal}
}

func (m *runMetrics) recordRun(done bool, err error) {
	switch {
	case err != nil:
		m.runsTotal.WithLabelValues("error").Inc()
	case done:
		m.runsTotal.WithLabelValues("done").Inc()
	default:
		m.runsTotal.WithLabelValues("paused").Inc()
	}
}
