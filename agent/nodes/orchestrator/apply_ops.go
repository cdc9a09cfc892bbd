package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// ApplyOps hands the agent's operations to the tool executor. Results are recorded in-band.
func ApplyOps(
	ctx context.Context,
	in *GraphState,
	executor contractx.ToolExecutor,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if len(in.Response.Ops) == 0 {
		return in, nil
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	in.ToolResults = executor.Execute(ctx, in.Response.Ops, in.In.ContactID, in.In.CompanyID)
	return in, nil
}
