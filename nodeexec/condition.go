package nodeexec

import (
	"context"

	"github.com/expr-lang/expr"

	"github.com/ravel-run/agentgraph/errs"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/wfcontext"
)

// executeCondition evaluates a boolean expression against the workflow's
// variables and node outputs. Grounded in the pack's use of
// github.com/expr-lang/expr for condition/transform-style expression
// evaluation (seen across several example manifests).
func executeCondition(ctx context.Context, node graphmodel.Node, wctx *wfcontext.WorkflowContext) (interface{}, error) {
	cfg := NewConfig(node.Config)
	exprStr, err := cfg.ConfigString("expression")
	if err != nil {
		return nil, err
	}

	env := buildExprEnv(wctx)
	program, err := expr.Compile(exprStr, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, errs.Validation("condition node %s: invalid expression: %v", node.ID, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, errs.WorkflowExecution("condition node %s: evaluation failed: %v", node.ID, err)
	}
	result, ok := out.(bool)
	if !ok {
		return nil, errs.WorkflowExecution("condition node %s: expression did not evaluate to a boolean", node.ID)
	}
	return result, nil
}

// buildExprEnv exposes "vars" (workflow variables) and "outputs" (node
// outputs by name) to condition/transform expressions.
func buildExprEnv(wctx *wfcontext.WorkflowContext) map[string]interface{} {
	return map[string]interface{}{
		"vars":    wctx.Variables(),
		"outputs": wctx.OutputsByName(),
	}
}
