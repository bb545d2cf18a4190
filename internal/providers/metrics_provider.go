package providers

import (
	"time"
	"wqd/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(query string)
	IncCacheMisses(query string)
	ObservePersistenceDuration(duration time.Duration)
	IncIngested(verdict string)
	IncRejected(reason string)
	IncNotifications(outcome string)
	SetAlertStates(count int)
	ObserveStoreDuration(op string, duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
	ingestedTotal       *prometheus.CounterVec
	rejectedTotal       *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	alertStates         prometheus.Gauge
	storeDuration       *prometheus.HistogramVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(query string) {
	m.cacheHits.WithLabelValues(query).Inc()
}

func (m *MetricsProvider) IncCacheMisses(query string) {
	m.cacheMisses.WithLabelValues(query).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncIngested(verdict string) {
	m.ingestedTotal.WithLabelValues(verdict).Inc()
}

func (m *MetricsProvider) IncRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *MetricsProvider) IncNotifications(outcome string) {
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) SetAlertStates(count int) {
	m.alertStates.Set(float64(count))
}

func (m *MetricsProvider) ObserveStoreDuration(op string, duration time.Duration) {
	m.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wqd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_cache_hits_total",
			Help: "Read cache hits, by query",
		}, []string{"query"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_cache_misses_total",
			Help: "Read cache misses, by query",
		}, []string{"query"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wqd_persistence_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		ingestedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_readings_ingested_total",
			Help: "Readings stored, by verdict",
		}, []string{"verdict"}),

		rejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_readings_rejected_total",
			Help: "Readings rejected, by reason",
		}, []string{"reason"}),

		notificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wqd_notifications_total",
			Help: "Alert deliveries, by outcome",
		}, []string{"outcome"}),

		alertStates: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wqd_alert_states",
			Help: "Number of sources with tracked alert state",
		}),

		storeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wqd_store_duration_seconds",
			Help:    "Reading store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncIngested(_ string)                             {}
func (n *noopMetrics) IncRejected(_ string)                             {}
func (n *noopMetrics) IncNotifications(_ string)                        {}
func (n *noopMetrics) SetAlertStates(_ int)                             {}
func (n *noopMetrics) ObserveStoreDuration(_ string, _ time.Duration)   {}
