package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Metrics holds the Prometheus instruments for the analysis server.
type Metrics struct {
	BatchesTotal     *prometheus.CounterVec
	URLsTotal        prometheus.Counter
	RiskLevelsTotal  *prometheus.CounterVec
	RuleHitsTotal    *prometheus.CounterVec
	DegradedTotal    prometheus.Counter
	AlertsTotal      *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
	WebsocketClients prometheus.Gauge
	ModelLoaded      prometheus.Gauge
}

// NewMetrics registers every instrument with reg. A nil reg creates
// unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "urlrisk_batches_total",
			Help: "Total number of analysis batches by kind",
		}, []string{"kind"}),
		URLsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "urlrisk_urls_analyzed_total",
			Help: "Total number of URLs analyzed",
		}),
		RiskLevelsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "urlrisk_risk_levels_total",
			Help: "Assessments by risk level",
		}, []string{"level"}),
		RuleHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "urlrisk_rule_hits_total",
			Help: "Rule hits by rule id",
		}, []string{"rule"}),
		DegradedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "urlrisk_degraded_batches_total",
			Help: "Batches scored without the classifier",
		}),
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "urlrisk_alerts_total",
			Help: "Alerts raised by publish status",
		}, []string{"status"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "urlrisk_batch_duration_seconds",
			Help:    "Time spent analyzing one batch",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "urlrisk_websocket_clients",
			Help: "Connected live-feed clients",
		}),
		ModelLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "urlrisk_model_loaded",
			Help: "1 when the classifier artifacts are loaded",
		}),
	}
}

// ObserveBatch records one finished batch.
func (m *Metrics) ObserveBatch(stats models.BatchStats, took time.Duration) {
	m.BatchesTotal.WithLabelValues(stats.Kind).Inc()
	m.URLsTotal.Add(float64(stats.URLs))
	if stats.Degraded {
		m.DegradedTotal.Inc()
	}
	for level, n := range stats.Levels {
		m.RiskLevelsTotal.WithLabelValues(string(level)).Add(float64(n))
	}
	for rule, n := range stats.RuleHits {
		m.RuleHitsTotal.WithLabelValues(string(rule)).Add(float64(n))
	}
	m.BatchDuration.WithLabelValues(stats.Kind).Observe(took.Seconds())
}

// IncrementAlerts counts an alert by publish status ("published" or "failed").
func (m *Metrics) IncrementAlerts(status string) {
	m.AlertsTotal.WithLabelValues(status).Inc()
}

// SetModelLoaded reflects the provider state.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoaded.Set(1)
		return
	}
	m.ModelLoaded.Set(0)
}
