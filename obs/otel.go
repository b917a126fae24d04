package obs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ravel-run/agentgraph/emit"
)

// OTelEmitter implements emit.Emitter by turning every event into a
// zero-duration span named after event.Msg, carrying workflow/node/agent
// ids and metadata as attributes.
//
// Grounded in the teacher's graph/emit/otel.go OTelEmitter: same
// span-per-event shape and metadata-to-attribute mapping, relabeled from
// its run_id/step/node_id triple to this package's workflow/node/agent id
// types. LLM calls emit no events, so they get no spans and no
// provider/model attributes.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps tracer (typically otel.Tracer("agentgraph")).
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event emit.Event) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("agentgraph.workflow_id", event.WorkflowID.String()),
		attribute.String("agentgraph.node_id", event.NodeID.String()),
		attribute.String("agentgraph.agent_id", event.AgentID.String()),
	)

	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute(key, value))
	}

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

func metaAttribute(key string, value interface{}) attribute.KeyValue {
	attrKey := "agentgraph." + key
	switch v := value.(type) {
	case string:
		return attribute.String(attrKey, v)
	case int:
		return attribute.Int(attrKey, v)
	case int64:
		return attribute.Int64(attrKey, v)
	case float64:
		return attribute.Float64(attrKey, v)
	case bool:
		return attribute.Bool(attrKey, v)
	case time.Duration:
		return attribute.Int64(attrKey+"_ms", v.Milliseconds())
	default:
		return attribute.String(attrKey, fmt.Sprintf("%v", v))
	}
}

// Flush force-flushes the global tracer provider, if it supports it.
// Call before process shutdown to avoid losing buffered spans.
func Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
