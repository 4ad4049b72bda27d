package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "classloop").
	Namespace string

	// Subsystem is the metrics subsystem (default: "api").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

// Metrics holds the client's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestsTotal        *prometheus.CounterVec
	transportErrorsTotal prometheus.Counter
	staleRetriesTotal    prometheus.Counter
	tokenFetchesTotal    prometheus.Counter
	notificationsTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns the client metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "classloop",
		Subsystem: "api",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "API requests that produced a response",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		transportErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transport_errors_total",
			Help:        "Requests that failed before any response arrived",
			ConstLabels: config.ConstLabels,
		}),

		staleRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_token_retries_total",
			Help:        "Requests resubmitted after a stale anti-forgery token rejection",
			ConstLabels: config.ConstLabels,
		}),

		tokenFetchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "csrf_token_fetches_total",
			Help:        "Successful anti-forgery token fetches",
			ConstLabels: config.ConstLabels,
		}),

		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "User-facing notifications emitted by the error reporter",
			ConstLabels: config.ConstLabels,
		}, []string{"level"}),
	}
}

func (m *Metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) transportError() {
	if m == nil {
		return
	}
	m.transportErrorsTotal.Inc()
}

func (m *Metrics) staleRetry() {
	if m == nil {
		return
	}
	m.staleRetriesTotal.Inc()
}

func (m *Metrics) tokenFetch() {
	if m == nil {
		return
	}
	m.tokenFetchesTotal.Inc()
}

func (m *Metrics) notification(level string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(level).Inc()
}
