package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fedfs"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Namespace operations, by wire method
	OpsTotal   *prometheus.CounterVec
	OpDuration *prometheus.HistogramVec

	// Client-side RPC calls
	RPCCalls    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// Sync metrics
	SyncRuns    *prometheus.CounterVec
	SyncObjects *prometheus.CounterVec

	MountsActive    prometheus.Gauge
	WSConnections   prometheus.Gauge
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	durations := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   durations,
		}, []string{"method", "path"}),

		OpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Namespace operations handled, by method and error kind",
		}, []string{"op", "status"}),
		OpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Namespace operation duration in seconds",
			Buckets:   durations,
		}, []string{"op"}),

		RPCCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "RPC calls issued by the client, by method and error kind",
		}, []string{"method", "status"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Client RPC round trip in seconds",
			Buckets:   durations,
		}, []string{"method"}),

		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Mount reconciliations, by mode",
		}, []string{"mode"}),
		SyncObjects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_objects_total",
			Help:      "Objects visited by sync, by outcome",
		}, []string{"outcome"}),

		MountsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mounts_active",
			Help:      "Number of active mounts",
		}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open invalidation stream connections",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Invalidation events published, by op",
		}, []string{"op"}),
	}
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOp records one handled namespace operation.
func (m *Metrics) RecordOp(op, status string, duration time.Duration) {
	m.OpsTotal.WithLabelValues(op, status).Inc()
	m.OpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRPC records one client RPC call.
func (m *Metrics) RecordRPC(method, status string, duration time.Duration) {
	m.RPCCalls.WithLabelValues(method, status).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSync records the counts of one reconciliation.
func (m *Metrics) RecordSync(dryRun bool, scanned, created, updated, deleted, errors int) {
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	m.SyncRuns.WithLabelValues(mode).Inc()
	m.SyncObjects.WithLabelValues("scanned").Add(float64(scanned))
	m.SyncObjects.WithLabelValues("created").Add(float64(created))
	m.SyncObjects.WithLabelValues("updated").Add(float64(updated))
	m.SyncObjects.WithLabelValues("deleted").Add(float64(deleted))
	m.SyncObjects.WithLabelValues("error").Add(float64(errors))
}

func (m *Metrics) SetMountsActive(count int) {
	m.MountsActive.Set(float64(count))
}

func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

func (m *Metrics) IncEvent(op string) {
	m.EventsPublished.WithLabelValues(op).Inc()
}
