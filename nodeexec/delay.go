package nodeexec

import (
	"context"
	"time"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// executeDelay blocks for the configured duration, honoring ctx
// cancellation, then passes through a constant output.
func executeDelay(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	cfg := NewConfig(node.Config)
	ms := cfg.ConfigFloatOr("duration_ms", 0)
	d := time.Duration(ms) * time.Millisecond

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return map[string]interface{}{"waited_ms": ms}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
