package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every metric of the service on its own registry.
type Manager struct {
	namespace       string
	durationBuckets []float64
	enabled         bool
	registry        *prometheus.Registry

	// Adaptive core
	selections         *prometheus.CounterVec
	fallbackOffset     prometheus.Histogram
	proficiencyUpdates *prometheus.CounterVec

	// Quiz lifecycle
	quizzesStarted   *prometheus.CounterVec
	quizzesCompleted *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with the "pinpoint" namespace on a new registry
// unless options say otherwise.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "pinpoint",
		durationBuckets: prometheus.DefBuckets,
		enabled:         true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.selections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "adaptive",
		Name:      "selections_total",
		Help:      "Questions selected, by subject and how the selector found them",
	}, []string{"subject", "strategy"})

	m.fallbackOffset = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "adaptive",
		Name:      "fallback_offset",
		Help:      "Distance between target difficulty and the served question on nearby picks",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
	})

	m.proficiencyUpdates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "adaptive",
		Name:      "proficiency_updates_total",
		Help:      "Persisted proficiency batch updates, by subject",
	}, []string{"subject"})

	m.quizzesStarted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "quiz",
		Name:      "started_total",
		Help:      "Quizzes started",
	}, []string{"retake"})

	m.quizzesCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "quiz",
		Name:      "completed_total",
		Help:      "Quizzes submitted",
	}, []string{"retake"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.durationBuckets,
	}, []string{"route", "method"})
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ── Recording ───────────────────────────────────────────

// RecordSelection counts one served question. offset is only observed for
// nearby picks.
func (m *Manager) RecordSelection(subject, strategy string, offset int) {
	if m == nil || !m.enabled {
		return
	}
	m.selections.WithLabelValues(subject, strategy).Inc()
	if strategy == "nearby" {
		m.fallbackOffset.Observe(float64(offset))
	}
}

func (m *Manager) RecordProficiencyUpdate(subject string) {
	if m == nil || !m.enabled {
		return
	}
	m.proficiencyUpdates.WithLabelValues(subject).Inc()
}

func (m *Manager) RecordQuizStarted(retake bool) {
	if m == nil || !m.enabled {
		return
	}
	m.quizzesStarted.WithLabelValues(strconv.FormatBool(retake)).Inc()
}

func (m *Manager) RecordQuizCompleted(retake bool) {
	if m == nil || !m.enabled {
		return
	}
	m.quizzesCompleted.WithLabelValues(strconv.FormatBool(retake)).Inc()
}

func (m *Manager) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
