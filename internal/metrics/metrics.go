package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for ledger operations. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	VotesCast    prometheus.Counter
	Rejections   *prometheus.CounterVec
	AdminActions *prometheus.CounterVec
	TxDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "voteledger_votes_cast_total",
			Help: "Total number of ballots committed",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voteledger_operation_rejections_total",
			Help: "Ledger operations rejected, by operation and error kind",
		}, []string{"operation", "kind"}),
		AdminActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voteledger_admin_actions_total",
			Help: "Committed administrative actions by type",
		}, []string{"type"}),
		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voteledger_transaction_duration_seconds",
			Help:    "Duration of ledger transactions",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementVotesCast() {
	if m == nil {
		return
	}
	m.VotesCast.Inc()
}

func (m *Metrics) IncrementRejection(operation, kind string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) IncrementAdminAction(actionType string) {
	if m == nil {
		return
	}
	m.AdminActions.WithLabelValues(actionType).Inc()
}

func (m *Metrics) ObserveTransaction(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.TxDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
