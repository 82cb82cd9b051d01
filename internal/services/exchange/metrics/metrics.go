// Package metrics exposes Prometheus instruments for secret-santa draws.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for secretsanta_draws_total.
const (
	OutcomeComplete   = "complete"
	OutcomeIncomplete = "incomplete"
	OutcomeRejected   = "rejected"
)

// Recorder records draw metrics. A nil *Recorder discards everything.
type Recorder struct {
	draws        *prometheus.CounterVec
	attempts     prometheus.Histogram
	participants prometheus.Histogram
	relaxed      prometheus.Counter
}

// New registers the draw instruments with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		draws: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsanta_draws_total",
				Help: "Draw requests by outcome",
			},
			[]string{"outcome"},
		),
		attempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secretsanta_draw_attempts",
				Help:    "Engine runs needed per finished draw",
				Buckets: prometheus.ExponentialBuckets(1, 2, 7), // 1, 2, 4, ..., 64
			},
		),
		participants: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secretsanta_draw_participants",
				Help:    "Roster size per draw",
				Buckets: prometheus.ExponentialBuckets(2, 2, 10), // 2, 4, 8, ..., 1024
			},
		),
		relaxed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "secretsanta_history_relaxed_total",
				Help: "Givers whose history constraint was dropped to find a recipient",
			},
		),
	}
}

// ObserveDraw records one finished draw.
func (r *Recorder) ObserveDraw(outcome string, attempts, participants, relaxed int) {
	if r == nil {
		return
	}
	r.draws.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		r.attempts.Observe(float64(attempts))
	}
	r.participants.Observe(float64(participants))
	if relaxed > 0 {
		r.relaxed.Add(float64(relaxed))
	}
}

// ObserveRejected records a draw that failed before the engine ran.
func (r *Recorder) ObserveRejected() {
	if r == nil {
		return
	}
	r.draws.WithLabelValues(OutcomeRejected).Inc()
}
