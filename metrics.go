package jsvm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for jsvm_evals_total.
const (
	outcomeOK           = "ok"
	outcomeCompileError = "compile_error"
	outcomeRuntimeError = "runtime_error"
	outcomeTerminated   = "terminated"
)

var (
	liveContextsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jsvm_live_contexts",
			Help: "Number of javascript contexts that have been created and not yet released.",
		},
	)

	evalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsvm_evals_total",
			Help: "Total number of scripts evaluated, by outcome.",
		},
		[]string{"outcome"},
	)

	evalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsvm_eval_seconds",
			Help:    "Wall time spent compiling and running scripts, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(liveContextsGauge)
	prometheus.MustRegister(evalsTotal)
	prometheus.MustRegister(evalDuration)

	for _, outcome := range []string{outcomeOK, outcomeCompileError, outcomeRuntimeError, outcomeTerminated} {
		evalsTotal.WithLabelValues(outcome)
	}
}

func outcomeOf(err error) string {
	serr, ok := err.(*ScriptError)
	switch {
	case err == nil:
		return outcomeOK
	case !ok:
		return outcomeRuntimeError
	case serr.Phase == PhaseCompile:
		return outcomeCompileError
	case serr.Phase == PhaseTerminated:
		return outcomeTerminated
	}
	return outcomeRuntimeError
}
