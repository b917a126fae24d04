package nodeexec

import (
	"context"

	"github.com/expr-lang/expr"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// executeTransform evaluates an arbitrary expression (not restricted to
// bool) against vars/outputs and records its result as the node's output.
func executeTransform(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	cfg := NewConfig(node.Config)
	exprStr, err := cfg.ConfigString("transformation")
	if err != nil {
		return nil, err
	}

	env := buildExprEnv(wctx)
	program, err := expr.Compile(exprStr, expr.Env(env))
	if err != nil {
		return nil, errs.Validation("transform node %s: invalid transformation: %v", node.ID, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, errs.WorkflowExecution("transform node %s: evaluation failed: %v", node.ID, err)
	}
	return out, nil
}
