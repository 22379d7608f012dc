// Package metrics provides Prometheus metrics for the salesboard presenter.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the salesboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Poll cycle
	polls       *prometheus.CounterVec
	pollLatency prometheus.Histogram
	snapshotLen prometheus.Gauge

	// Diff signals
	signals *prometheus.CounterVec

	// Sequencer
	sequencerState       *prometheus.GaugeVec
	interstitials        prometheus.Counter
	interstitialDuration prometheus.Histogram
	playbackReports      *prometheus.CounterVec

	// Goals
	goalsResolved prometheus.Gauge
	goalsDropped  *prometheus.CounterVec
	catalogLoads  *prometheus.CounterVec

	// Frame delivery
	framesPublished prometheus.Counter
	framesDropped   *prometheus.CounterVec
	frameQueueSize  prometheus.Gauge
	wsClients       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "salesboard",
		subsystem:        "presenter",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// Enabled reports whether the recorders update collectors.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval is how often sampled gauges such as the system ones are refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

// Configure applies opts to the global manager. Collectors already exist, so
// only WithMetricsEnabled and WithRefreshInterval change its behaviour.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

func on() bool { return globalManager.Enabled() }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.polls = auto.NewCounterVec(
		m.counterOpts("polls_total", "Snapshot polls by outcome (ok, empty, error)"),
		[]string{"outcome"},
	)
	m.pollLatency = auto.NewHistogram(
		m.histogramOpts("poll_latency_milliseconds", "Snapshot fetch latency in milliseconds", m.histogramBuckets),
	)
	m.snapshotLen = auto.NewGauge(
		m.gaugeOpts("snapshot_entries", "Number of entries in the last processed snapshot"),
	)

	m.signals = auto.NewCounterVec(
		m.counterOpts("signals_total", "Diff signals emitted by kind (rank_up, sales_increase)"),
		[]string{"kind"},
	)

	m.sequencerState = auto.NewGaugeVec(
		m.gaugeOpts("sequencer_state", "1 for the sequencer's current state, 0 otherwise"),
		[]string{"state"},
	)
	m.interstitials = auto.NewCounter(
		m.counterOpts("interstitials_total", "Top-seller interstitials started"),
	)
	m.interstitialDuration = auto.NewHistogram(
		m.histogramOpts("interstitial_duration_seconds", "Time spent waiting for interstitial playback",
			[]float64{1, 5, 10, 20, 30, 60, 120, 300}),
	)
	m.playbackReports = auto.NewCounterVec(
		m.counterOpts("playback_reports_total", "Playback reports received from viewers by result"),
		[]string{"result"},
	)

	m.goalsResolved = auto.NewGauge(
		m.gaugeOpts("goals_resolved", "People with an active resolved goal"),
	)
	m.goalsDropped = auto.NewCounterVec(
		m.counterOpts("goals_dropped_total", "Goal records dropped during resolution by reason"),
		[]string{"reason"},
	)
	m.catalogLoads = auto.NewCounterVec(
		m.counterOpts("catalog_loads_total", "People and goals loads by outcome (ok, error)"),
		[]string{"outcome"},
	)

	m.framesPublished = auto.NewCounter(
		m.counterOpts("frames_published_total", "Frames delivered to the viewer hub"),
	)
	m.framesDropped = auto.NewCounterVec(
		m.counterOpts("frames_dropped_total", "Frames dropped before delivery by reason"),
		[]string{"reason"},
	)
	m.frameQueueSize = auto.NewGauge(
		m.gaugeOpts("frame_queue_size", "Frames waiting for dispatch"),
	)
	m.wsClients = auto.NewGauge(
		m.gaugeOpts("ws_clients", "Connected board viewers"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.memoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"),
	)
	m.goroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of goroutines"),
	)
	m.gcPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}),
	)
}

// RecordPoll counts a poll cycle outcome.
func RecordPoll(outcome string) {
	if !on() {
		return
	}
	globalManager.polls.WithLabelValues(outcome).Inc()
}

// RecordPollLatency records snapshot fetch latency in milliseconds.
func RecordPollLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.pollLatency.Observe(latencyMs)
}

// UpdateSnapshotEntries sets the size of the last processed snapshot.
func UpdateSnapshotEntries(n int) {
	if !on() {
		return
	}
	globalManager.snapshotLen.Set(float64(n))
}

// RecordSignal counts a diff signal.
func RecordSignal(kind string) {
	if !on() {
		return
	}
	globalManager.signals.WithLabelValues(kind).Inc()
}

// SetSequencerState marks state as current and clears the others.
func SetSequencerState(state string, all []string) {
	if !on() {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		globalManager.sequencerState.WithLabelValues(s).Set(v)
	}
}

// RecordInterstitial counts a started interstitial.
func RecordInterstitial() {
	if !on() {
		return
	}
	globalManager.interstitials.Inc()
}

// RecordInterstitialDuration observes how long playback took.
func RecordInterstitialDuration(d time.Duration) {
	if !on() {
		return
	}
	globalManager.interstitialDuration.Observe(d.Seconds())
}

// RecordPlaybackReport counts a viewer playback report.
func RecordPlaybackReport(result string) {
	if !on() {
		return
	}
	globalManager.playbackReports.WithLabelValues(result).Inc()
}

// UpdateGoalsResolved sets how many people have an active goal.
func UpdateGoalsResolved(n int) {
	if !on() {
		return
	}
	globalManager.goalsResolved.Set(float64(n))
}

// RecordGoalDropped counts a dropped goal record.
func RecordGoalDropped(reason string) {
	if !on() {
		return
	}
	globalManager.goalsDropped.WithLabelValues(reason).Inc()
}

// RecordCatalogLoad counts a people and goals load.
func RecordCatalogLoad(outcome string) {
	if !on() {
		return
	}
	globalManager.catalogLoads.WithLabelValues(outcome).Inc()
}

// RecordFramePublished counts a frame handed to the hub.
func RecordFramePublished() {
	if !on() {
		return
	}
	globalManager.framesPublished.Inc()
}

// RecordFrameDropped counts a frame that never reached the hub.
func RecordFrameDropped(reason string) {
	if !on() {
		return
	}
	globalManager.framesDropped.WithLabelValues(reason).Inc()
}

// UpdateFrameQueueSize sets the number of queued frames.
func UpdateFrameQueueSize(n int) {
	if !on() {
		return
	}
	globalManager.frameQueueSize.Set(float64(n))
}

// UpdateWSClients sets the number of connected viewers.
func UpdateWSClients(n int) {
	if !on() {
		return
	}
	globalManager.wsClients.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !on() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !on() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !on() {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !on() {
		return
	}
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	if !on() {
		return
	}
	globalManager.goroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	if !on() {
		return
	}
	globalManager.gcPauseTime.Observe(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
