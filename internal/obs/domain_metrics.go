package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts priced quotes by order type and outcome.
	QuotesTotal *prometheus.CounterVec
	// QuoteDuration records how long a quote took to price in milliseconds.
	QuoteDuration *prometheus.HistogramVec
	// PricingIssuesTotal counts lines and policy entries flagged while pricing.
	PricingIssuesTotal *prometheus.CounterVec
	// PolicyRefreshTotal counts policy refresh attempts by resulting origin.
	PolicyRefreshTotal *prometheus.CounterVec
	// PolicySnapshotAge reports seconds since the active policy snapshot was fetched.
	PolicySnapshotAge prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of priced quotes by outcome.",
		}, []string{"order_type", "result"})
		QuoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency for pricing a quote in milliseconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		}, []string{"order_type"})
		PricingIssuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_issues_total",
			Help:      "Count of cart lines and policy entries flagged during pricing.",
		}, []string{"category", "reason"})
		PolicyRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_refresh_total",
			Help:      "Count of policy refreshes by origin and result.",
		}, []string{"origin", "result"})
		PolicySnapshotAge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "policy_snapshot_age_seconds",
			Help:      "Seconds since the active policy snapshot was loaded.",
		})

		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, PricingIssuesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingIssuesTotal = v
			}
		})
		mustRegisterCollector(reg, PolicyRefreshTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PolicyRefreshTotal = v
			}
		})
		mustRegisterCollector(reg, PolicySnapshotAge, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				PolicySnapshotAge = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
