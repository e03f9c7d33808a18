// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FetchTotal              *prometheus.CounterVec // outcome=fresh|not_modified|fetched|error
	CacheStoreErrors        *prometheus.CounterVec // op=get|put|touch
	MessagesProcessed       *prometheus.CounterVec // kind=<message_type>
	NotificationsDispatched *prometheus.CounterVec // kind=<notification kind>
	DispatchFailures        prometheus.Counter
	DuplicatesDropped       prometheus.Counter
	WebhooksRejected        *prometheus.CounterVec // reason=method|json|type|checksum|queue

	// Histograms
	FetchDuration   prometheus.Observer // seconds, network round trips only
	ProcessDuration prometheus.Observer // seconds per inbound message
	FanoutChannels  prometheus.Observer // channels resolved per message

	// Gauges
	QueueDepthGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tba_fetch_total", Help: "Upstream fetches by cache outcome"}, []string{"outcome"})
		CacheStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tba_cache_store_errors_total", Help: "Cache store failures by operation"}, []string{"op"})
		MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tba_messages_processed_total", Help: "Inbound messages processed by type"}, []string{"kind"})
		NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tba_notifications_dispatched_total", Help: "Notifications handed to the dispatcher by kind"}, []string{"kind"})
		DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "tba_dispatch_failures_total", Help: "Notifications the dispatcher rejected"})
		DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "tba_duplicate_messages_dropped_total", Help: "Inbound messages dropped as duplicate deliveries"})
		WebhooksRejected = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tba_webhooks_rejected_total", Help: "Webhook deliveries rejected by reason"}, []string{"reason"})
		FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tba_fetch_duration_seconds", Help: "Upstream request duration seconds", Buckets: prometheus.DefBuckets})
		ProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tba_message_process_duration_seconds", Help: "Inbound message processing duration seconds", Buckets: prometheus.DefBuckets})
		FanoutChannels = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tba_fanout_channels", Help: "Channels resolved per inbound message", Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100}})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tba_queue_depth", Help: "Inbound messages waiting to be processed"})
	})
}

// IncFetch counts a fetch outcome.
func IncFetch(outcome string) {
	if FetchTotal != nil {
		FetchTotal.WithLabelValues(outcome).Inc()
	}
}

// IncCacheStoreError counts a failed cache store operation.
func IncCacheStoreError(op string) {
	if CacheStoreErrors != nil {
		CacheStoreErrors.WithLabelValues(op).Inc()
	}
}

// IncMessage counts a processed inbound message.
func IncMessage(kind string) {
	if MessagesProcessed != nil {
		MessagesProcessed.WithLabelValues(kind).Inc()
	}
}

// IncNotification counts a dispatched notification.
func IncNotification(kind string) {
	if NotificationsDispatched != nil {
		NotificationsDispatched.WithLabelValues(kind).Inc()
	}
}

// IncDispatchFailure counts a dispatcher error.
func IncDispatchFailure() {
	if DispatchFailures != nil {
		DispatchFailures.Inc()
	}
}

// IncDuplicate counts a dropped duplicate delivery.
func IncDuplicate() {
	if DuplicatesDropped != nil {
		DuplicatesDropped.Inc()
	}
}

// IncWebhookRejected counts a rejected webhook delivery.
func IncWebhookRejected(reason string) {
	if WebhooksRejected != nil {
		WebhooksRejected.WithLabelValues(reason).Inc()
	}
}

// ObserveFanout records how many channels a message reached.
func ObserveFanout(n int) {
	if FanoutChannels != nil {
		FanoutChannels.Observe(float64(n))
	}
}

// SetQueueDepth records the current inbound queue length.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
