// Package metrics exposes Prometheus instrumentation for the round
// engine and the settlement path. Collectors are registered on the
// default registry and served through the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_card_allocations_total",
			Help: "Card allocation attempts partitioned by result.",
		},
		[]string{"result"},
	)

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_win_claims_total",
			Help: "Win claim attempts partitioned by result.",
		},
		[]string{"result"},
	)

	drawsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bingo_draws_emitted_total",
			Help: "Numbers drawn and broadcast across all rounds.",
		},
	)

	roundsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_rounds_resolved_total",
			Help: "Resolved rounds partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	activeRounds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bingo_active_rounds",
			Help: "Open rounds currently held by the registry.",
		},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bingo_settlement_duration_seconds",
			Help:    "Latency of atomic wallet settlement operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

// Allocation / claim results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Round outcomes.
const (
	OutcomeWinner    = "winner"
	OutcomeExhausted = "exhausted"
	OutcomeFailure   = "scheduler_failure"
)

func RecordAllocation(result string) {
	allocationsTotal.WithLabelValues(result).Inc()
}

func RecordClaim(result string) {
	claimsTotal.WithLabelValues(result).Inc()
}

func RecordDraw() {
	drawsEmittedTotal.Inc()
}

func RecordRoundResolved(outcome string) {
	roundsResolvedTotal.WithLabelValues(outcome).Inc()
}

func RoundOpened() {
	activeRounds.Inc()
}

func RoundClosed() {
	activeRounds.Dec()
}

// ObserveSettlement records the latency of one settlement operation.
// operation is purchase, refund, payout, or deposit; status is
// completed or failed.
func ObserveSettlement(operation, status string, start time.Time) {
	settlementDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
