/**
 * @description
 * Prometheus collectors for the billing lifecycle.
 */
package app

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// Metrics groups billing counters. A nil *Metrics records nothing.
type Metrics struct {
	billsGeneratedTotal     *prometheus.CounterVec
	statusTransitionsTotal  *prometheus.CounterVec
	messageAttemptsTotal    prometheus.Counter
	clientsDeactivatedTotal prometheus.Counter
	paymentsTotal           *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics registers the collectors once on the default registerer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics builds and registers the collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		billsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobrancas_bills_generated_total",
				Help: "Charges processed by monthly generation, by outcome.",
			},
			[]string{"outcome"}, // created | duplicate | error
		),
		statusTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobrancas_status_transitions_total",
				Help: "Charges moved by status synchronization, by target status.",
			},
			[]string{"status"},
		),
		messageAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobrancas_message_attempts_total",
			Help: "Reminder attempts recorded by the integration.",
		}),
		clientsDeactivatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobrancas_clients_deactivated_total",
			Help: "Clients deactivated after exhausting reminder attempts.",
		}),
		paymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cobrancas_payments_total",
				Help: "Charges marked as paid, by payment kind.",
			},
			[]string{"kind"}, // full | partial | over
		),
	}

	registerer.MustRegister(
		m.billsGeneratedTotal,
		m.statusTransitionsTotal,
		m.messageAttemptsTotal,
		m.clientsDeactivatedTotal,
		m.paymentsTotal,
	)
	return m
}

func (m *Metrics) billsGenerated(r *domain.GenerationResult) {
	if m == nil || r == nil {
		return
	}
	m.billsGeneratedTotal.WithLabelValues("created").Add(float64(r.Created))
	m.billsGeneratedTotal.WithLabelValues("duplicate").Add(float64(r.Duplicates))
	m.billsGeneratedTotal.WithLabelValues("error").Add(float64(r.Errors))
}

func (m *Metrics) statusSynced(r domain.SyncResult) {
	if m == nil {
		return
	}
	m.statusTransitionsTotal.WithLabelValues(string(domain.StatusAtrasado)).Add(float64(r.MarkedOverdue))
	m.statusTransitionsTotal.WithLabelValues(string(domain.StatusPendente)).Add(float64(r.MarkedPending))
}

func (m *Metrics) attemptsRecorded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messageAttemptsTotal.Add(float64(n))
}

func (m *Metrics) clientsDeactivated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.clientsDeactivatedTotal.Add(float64(n))
}

func (m *Metrics) paymentRecorded(c *domain.Charge) {
	if m == nil || c == nil || c.AmountPaid == nil {
		return
	}
	kind := "full"
	switch c.AmountPaid.Cmp(c.DebtAmount) {
	case -1:
		kind = "partial"
	case 1:
		kind = "over"
	}
	m.paymentsTotal.WithLabelValues(kind).Inc()
}
