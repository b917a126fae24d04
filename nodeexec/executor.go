package nodeexec

import (
	"context"

	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// Executor runs a single node given the shared workflow context and
// returns the value to be recorded as that node's output.
type Executor interface {
	Execute(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error)
}

// ExecutorFunc adapts a plain function to the Executor interface, mirroring
// the teacher's NodeFunc[S] adapter pattern (graph/node.go).
type ExecutorFunc func(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error)

func (f ExecutorFunc) Execute(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	return f(ctx, node, wctx)
}

// ByKind resolves the default Executor for a node kind that needs no
// caller-supplied dependency (condition, transform, delay,
// document_loader). The agent executor needs a provider resolver and is
// built by the caller (executor package) instead.
func ByKind(kind graphmodel.NodeKind) (Executor, bool) {
	switch kind {
	case graphmodel.KindCondition:
		return ExecutorFunc(executeCondition), true
	case graphmodel.KindTransform:
		return ExecutorFunc(executeTransform), true
	case graphmodel.KindDelay:
		return ExecutorFunc(executeDelay), true
	case graphmodel.KindDocumentLoader:
		return ExecutorFunc(executeDocumentLoader), true
	default:
		return nil, false
	}
}
