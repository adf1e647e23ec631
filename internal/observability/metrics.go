package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	resultsSubmittedTotal *prometheus.CounterVec
	batchRunsTotal        *prometheus.CounterVec
	progressionTotal      *prometheus.CounterVec
	termFallbackTotal     prometheus.Counter
)

// RegisterMetrics initialises the collectors on the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		resultsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_submitted_total",
			Help: "Result submissions sent to the school API, by outcome.",
		}, []string{"outcome"})

		batchRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Completed batch uploads, by final status.",
		}, []string{"status"})

		progressionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progression_events_total",
			Help: "Confirmed term advances and session migrations.",
		}, []string{"kind"})

		termFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "term_ordinal_fallback_total",
			Help: "Session payloads whose term ordinal was outside 1..3 and decoded as First.",
		})

		prometheus.MustRegister(resultsSubmittedTotal, batchRunsTotal, progressionTotal, termFallbackTotal)
	})
}

func ResultsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return resultsSubmittedTotal
}

func BatchRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return batchRunsTotal
}

func ProgressionEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return progressionTotal
}

func TermOrdinalFallbacks() prometheus.Counter {
	RegisterMetrics()
	return termFallbackTotal
}
