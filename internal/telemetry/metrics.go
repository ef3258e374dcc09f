package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuessesSubmitted counts accepted guess submissions by game mode.
	GuessesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hivemind",
		Name:      "guesses_submitted_total",
		Help:      "Number of accepted guess submissions.",
	}, []string{"mode"})

	// ResultsFetched counts consensus results reads.
	ResultsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hivemind",
		Name:      "results_fetched_total",
		Help:      "Number of consensus results snapshots served.",
	})
)
