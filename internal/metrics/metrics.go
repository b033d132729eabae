package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects refresh and transaction telemetry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	transactions    *prometheus.CounterVec
	healthFactor    prometheus.Gauge
	suppliedUSD     prometheus.Gauge
	borrowedUSD     prometheus.Gauge
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendscope_refresh_total",
			Help: "Refresh epochs by scope and outcome.",
		}, []string{"scope", "outcome"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lendscope_refresh_duration_seconds",
			Help:    "Wall time of refresh epochs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendscope_transactions_total",
			Help: "Submitted operations by action, visibility and outcome.",
		}, []string{"action", "visibility", "outcome"}),
		healthFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lendscope_health_factor",
			Help: "Current health factor; +Inf without debt.",
		}),
		suppliedUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lendscope_supplied_usd",
			Help: "Total supplied value in USD.",
		}),
		borrowedUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lendscope_borrowed_usd",
			Help: "Total borrowed value in USD.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.refreshDuration, m.transactions, m.healthFactor, m.suppliedUSD, m.borrowedUSD)
	}
	return m
}

// ObserveRefresh records one finished epoch.
func (m *Metrics) ObserveRefresh(scope, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if scope == "" {
		scope = "full"
	}
	m.refreshes.WithLabelValues(scope, outcome).Inc()
	m.refreshDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
}

// ObserveTransaction records one orchestrated operation.
func (m *Metrics) ObserveTransaction(action, visibility, outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(action, visibility, outcome).Inc()
}

// SetPosition publishes the latest derived totals.
func (m *Metrics) SetPosition(healthFactor, suppliedUSD, borrowedUSD float64) {
	if m == nil {
		return
	}
	m.healthFactor.Set(healthFactor)
	m.suppliedUSD.Set(suppliedUSD)
	m.borrowedUSD.Set(borrowedUSD)
}
