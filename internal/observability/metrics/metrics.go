package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels applied to every instrument.
type Config struct {
	ServiceName string
	Environment string
}

const (
	PublishOutcomeConfirmed = "confirmed"
	PublishOutcomeFailed    = "failed"
	PublishOutcomeDropped   = "dropped"
)

const (
	SendOutcomeSent   = "sent"
	SendOutcomeFailed = "failed"
)

// PublisherMetrics captures broker delivery health signals, including the
// outcome of fire-and-forget publishes that would otherwise be invisible.
type PublisherMetrics struct {
	publishAttempts *prometheus.CounterVec
	publishOutcomes *prometheus.CounterVec
	confirmLatency  *prometheus.HistogramVec
	reconnects      prometheus.Counter
	connectFailures prometheus.Counter
}

var (
	publisherMetricsOnce sync.Once
	publisherMetrics     *PublisherMetrics
)

// Publisher returns the singleton publisher metrics registry.
func Publisher() *PublisherMetrics {
	return PublisherWithConfig(Config{})
}

// PublisherWithConfig returns the singleton publisher metrics registry using config labels.
func PublisherWithConfig(cfg Config) *PublisherMetrics {
	publisherMetricsOnce.Do(func() {
		publisherMetrics = newPublisherMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return publisherMetrics
}

// ResetPublisherMetricsForTest resets the publisher metrics singleton for tests.
func ResetPublisherMetricsForTest() {
	publisherMetricsOnce = sync.Once{}
	publisherMetrics = nil
}

func newPublisherMetrics(registerer prometheus.Registerer, cfg Config) *PublisherMetrics {
	constLabels := constLabels(cfg)

	m := &PublisherMetrics{
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gymspot_publisher_attempts_total",
			Help:        "Publish attempts by exchange, including retries.",
			ConstLabels: constLabels,
		}, []string{"exchange"}),
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gymspot_publisher_outcomes_total",
			Help:        "Final delivery outcomes by exchange; dropped means the event was lost after exhausting retries.",
			ConstLabels: constLabels,
		}, []string{"exchange", "outcome"}),
		confirmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "gymspot_publisher_confirm_seconds",
			Help:        "Latency from publish to broker confirm.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"exchange"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gymspot_publisher_reconnects_total",
			Help:        "Broker reconnections after a closed or failed connection.",
			ConstLabels: constLabels,
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gymspot_publisher_connect_failures_total",
			Help:        "Failed broker connection attempts.",
			ConstLabels: constLabels,
		}),
	}

	register(registerer,
		m.publishAttempts,
		m.publishOutcomes,
		m.confirmLatency,
		m.reconnects,
		m.connectFailures,
	)
	return m
}

func (m *PublisherMetrics) IncAttempt(exchange string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(exchange).Inc()
}

func (m *PublisherMetrics) IncOutcome(exchange, outcome string) {
	if m == nil {
		return
	}
	m.publishOutcomes.WithLabelValues(exchange, outcome).Inc()
}

func (m *PublisherMetrics) ObserveConfirm(exchange string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmLatency.WithLabelValues(exchange).Observe(d.Seconds())
}

func (m *PublisherMetrics) IncReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *PublisherMetrics) IncConnectFailure() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}

// DispatchMetrics captures campaign dispatch worker health signals.
type DispatchMetrics struct {
	tickRuns     prometheus.Counter
	tickDuration prometheus.Histogram
	quotaSkips   prometheus.Counter
	sends        *prometheus.CounterVec
	completed    prometheus.Counter
}

var (
	dispatchMetricsOnce sync.Once
	dispatchMetrics     *DispatchMetrics
)

// Dispatch returns the singleton dispatch metrics registry.
func Dispatch() *DispatchMetrics {
	return DispatchWithConfig(Config{})
}

// DispatchWithConfig returns the singleton dispatch metrics registry using config labels.
func DispatchWithConfig(cfg Config) *DispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetrics = newDispatchMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return dispatchMetrics
}

// ResetDispatchMetricsForTest resets the dispatch metrics singleton for tests.
func ResetDispatchMetricsForTest() {
	dispatchMetricsOnce = sync.Once{}
	dispatchMetrics = nil
}

func newDispatchMetrics(registerer prometheus.Registerer, cfg Config) *DispatchMetrics {
	constLabels := constLabels(cfg)

	m := &DispatchMetrics{
		tickRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gymspot_dispatch_ticks_total",
			Help:        "Campaign dispatch ticks executed.",
			ConstLabels: constLabels,
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "gymspot_dispatch_tick_seconds",
			Help:        "Campaign dispatch tick latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}),
		quotaSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gymspot_dispatch_quota_skips_total",
			Help:        "Ticks skipped entirely because the rolling-hour quota was exhausted.",
			ConstLabels: constLabels,
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gymspot_dispatch_sends_total",
			Help:        "Per-recipient send outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gymspot_dispatch_campaigns_completed_total",
			Help:        "Campaigns flipped to their terminal sent state.",
			ConstLabels: constLabels,
		}),
	}

	register(registerer,
		m.tickRuns,
		m.tickDuration,
		m.quotaSkips,
		m.sends,
		m.completed,
	)
	return m
}

func (m *DispatchMetrics) IncTick() {
	if m == nil {
		return
	}
	m.tickRuns.Inc()
}

func (m *DispatchMetrics) ObserveTickDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

func (m *DispatchMetrics) IncQuotaSkip() {
	if m == nil {
		return
	}
	m.quotaSkips.Inc()
}

func (m *DispatchMetrics) IncSend(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

func (m *DispatchMetrics) IncCampaignCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "gymspot"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

func register(registerer prometheus.Registerer, collectors ...prometheus.Collector) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
		}
	}
}
