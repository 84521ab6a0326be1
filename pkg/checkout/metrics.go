package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts checkout outcomes.
type Metrics struct {
	submissions *prometheus.CounterVec
	revenue     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hottub",
			Subsystem: "checkout",
			Name:      "submissions_total",
			Help:      "Checkout submissions by final state.",
		}, []string{"state"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hottub",
			Subsystem: "checkout",
			Name:      "committed_gross_eur_total",
			Help:      "Gross amount of committed orders in EUR.",
		}),
	}
	reg.MustRegister(m.submissions, m.revenue)
	return m
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(res.State.String()).Inc()
	if res.State == Committed && res.Order != nil {
		gross, _ := res.Order.GrossTotal.Float64()
		m.revenue.Add(gross)
	}
}
