// Package telemetry exposes the process's Prometheus metrics and a
// JSON /health endpoint — the producer's single operational HTTP
// surface.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every series the producer exports, registered against a
// private registry so tests can spin up multiple instances without
// colliding on the default global registry.
type Metrics struct {
	Registry *prometheus.Registry

	NodeHeartbeat       *prometheus.GaugeVec
	SymbolsAssigned     *prometheus.GaugeVec
	CalcLatencyMs       *prometheus.HistogramVec
	ReportPublishTotal  *prometheus.CounterVec
	DataAgeMs           *prometheus.HistogramVec
	LeaseConflictsTotal prometheus.Counter
	HRWRebalancesTotal  prometheus.Counter
	WSResubscribeTotal  *prometheus.CounterVec
}

// NewMetrics registers and returns all required series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		NodeHeartbeat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "node_heartbeat",
			Help: "1 if this node's last heartbeat succeeded, 0 otherwise.",
		}, []string{"node"}),
		SymbolsAssigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "symbols_assigned",
			Help: "Number of symbols currently owned by this node.",
		}, []string{"node"}),
		CalcLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calc_latency_ms",
			Help:    "Wall-clock latency of a report calculation, in milliseconds.",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
		}, []string{"metric", "cycle"}),
		ReportPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_publish_total",
			Help: "Total reports successfully published per symbol.",
		}, []string{"symbol"}),
		DataAgeMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "data_age_ms",
			Help:    "Age of the ingestion data backing a published report, in milliseconds.",
			Buckets: []float64{10, 50, 100, 250, 500, 750, 1000, 1500, 2000, 5000},
		}, []string{"symbol"}),
		LeaseConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lease_conflicts_total",
			Help: "Total lease ownership conflicts detected (stale token or failed renewal).",
		}),
		HRWRebalancesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hrw_rebalances_total",
			Help: "Total symbol acquire/release transitions performed by the assignment controller.",
		}),
		WSResubscribeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ws_resubscribe_total",
			Help: "Total feed (re)subscriptions, labeled by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.NodeHeartbeat,
		m.SymbolsAssigned,
		m.CalcLatencyMs,
		m.ReportPublishTotal,
		m.DataAgeMs,
		m.LeaseConflictsTotal,
		m.HRWRebalancesTotal,
		m.WSResubscribeTotal,
	)

	return m
}
