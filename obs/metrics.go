// Package obs adapts the workflow runtime's observability surface —
// Prometheus metrics and OpenTelemetry tracing — onto the emit.Emitter
// contract the executor already emits events through.
package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ravel-run/agentgraph/emit"
)

// Metrics exposes Prometheus gauges/counters/histograms for workflow
// execution, namespaced "agentgraph_".
//
// Grounded in the teacher's PrometheusMetrics (graph/metrics.go),
// relabeled to this spec's workflow/node/breaker vocabulary. There are five
// metrics: inflight nodes, a node latency histogram, retries, breaker
// state transitions and skipped-node counts. The engine here has no
// scheduler queue, so there is no queue-depth metric.
type Metrics struct {
	inflightNodes prometheus.Gauge
	nodeLatency   *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	breakerTrips  *prometheus.CounterVec
	nodesSkipped  *prometheus.CounterVec
}

// NewMetrics registers every metric with registry (prometheus.DefaultRegisterer
// if nil) and returns a Metrics ready to back an emit.Emitter.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentgraph",
			Name:      "inflight_nodes",
			Help:      "Nodes currently executing across all in-flight workflow runs",
		}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentgraph",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"workflow_id", "node_id", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "node_retries_total",
			Help:      "Cumulative node retry attempts",
		}, []string{"workflow_id", "node_id"}),
		breakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"agent_id", "state"}),
		nodesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "nodes_skipped_total",
			Help:      "Nodes skipped due to an upstream dependency failure",
		}, []string{"workflow_id"}),
	}
}

// Emit implements emit.Emitter by folding each Event into the matching
// Prometheus metric. Unrecognized Msg values are ignored rather than
// erroring — new event kinds shouldn't break metrics collection.
func (m *Metrics) Emit(event emit.Event) {
	switch event.Msg {
	case emit.MsgNodeStart:
		m.inflightNodes.Inc()
	case emit.MsgNodeComplete:
		m.inflightNodes.Dec()
		m.observeLatency(event, "success")
	case emit.MsgNodeFailed:
		m.inflightNodes.Dec()
		m.observeLatency(event, "error")
	case emit.MsgNodeRetry:
		m.retries.WithLabelValues(event.WorkflowID.String(), event.NodeID.String()).Inc()
	case emit.MsgNodeSkipped:
		m.nodesSkipped.WithLabelValues(event.WorkflowID.String()).Inc()
	case emit.MsgBreakerOpened:
		m.breakerTrips.WithLabelValues(event.AgentID.String(), "open").Inc()
	case emit.MsgBreakerClosed:
		m.breakerTrips.WithLabelValues(event.AgentID.String(), "closed").Inc()
	}
}

func (m *Metrics) observeLatency(event emit.Event, status string) {
	d, ok := event.Meta["duration"].(time.Duration)
	if !ok {
		return
	}
	m.nodeLatency.WithLabelValues(event.WorkflowID.String(), event.NodeID.String(), status).Observe(float64(d.Milliseconds()))
}
