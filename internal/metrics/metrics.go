package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the swap pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	RecordsAppended    prometheus.Counter
	SubscriptionState  *prometheus.GaugeVec
	PipelineDuration   prometheus.Histogram
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "swapwatch_events_total",
			Help: "Swap logs received from the chain subscription, by pool.",
		}, []string{"pool"}),

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "swapwatch_errors_total",
			Help: "Pipeline failures, by stage.",
		}, []string{"stage"}),

		NotificationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "swapwatch_notifications_total",
			Help: "Telegram sends, by kind (media, text) and result.",
		}, []string{"kind", "result"}),

		RecordsAppended: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "swapwatch_records_appended_total",
			Help: "Swap records appended to the record log.",
		}),

		SubscriptionState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "swapwatch_subscription_state",
			Help: "Subscription state per pool: 0 disconnected, 1 connecting, 2 subscribed, 3 degraded.",
		}, []string{"pool"}),

		PipelineDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "swapwatch_pipeline_duration_seconds",
			Help:    "Time from log receipt to record dispatch, including the transaction lookup.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncEvent(pool string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(pool).Inc()
}

func (m *Metrics) IncError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncAppended() {
	if m == nil {
		return
	}
	m.RecordsAppended.Inc()
}

func (m *Metrics) SetSubscriptionState(pool string, state int) {
	if m == nil {
		return
	}
	m.SubscriptionState.WithLabelValues(pool).Set(float64(state))
}

func (m *Metrics) ObservePipeline(start time.Time) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}
