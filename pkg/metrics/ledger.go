package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts ledger mutations by outcome.
type LedgerMetrics struct {
	allocations *prometheus.CounterVec
	escrow      *prometheus.CounterVec
	investments *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger counters on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_allocations_total",
		Help: "Share allocation attempts by outcome.",
	}, []string{"outcome"})
	escrow := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_transitions_total",
		Help: "Escrow state transitions by resulting status and trigger.",
	}, []string{"status", "trigger"})
	investments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "investments_recorded_total",
		Help: "Recorded investments by initial status.",
	}, []string{"status"})
	reg.MustRegister(allocations, escrow, investments)
	return &LedgerMetrics{
		allocations: allocations,
		escrow:      escrow,
		investments: investments,
	}
}

// IncAllocation records an allocation attempt; outcome is "allocated" or "insufficient".
func (m *LedgerMetrics) IncAllocation(outcome string) {
	if m == nil || m.allocations == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncEscrowTransition records an escrow transition.
func (m *LedgerMetrics) IncEscrowTransition(status, trigger string) {
	if m == nil || m.escrow == nil {
		return
	}
	m.escrow.WithLabelValues(normalizeLabel(status), normalizeLabel(trigger)).Inc()
}

// IncInvestment records a new investment row.
func (m *LedgerMetrics) IncInvestment(status string) {
	if m == nil || m.investments == nil {
		return
	}
	m.investments.WithLabelValues(normalizeLabel(status)).Inc()
}
