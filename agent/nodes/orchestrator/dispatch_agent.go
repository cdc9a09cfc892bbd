package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

func DispatchAgent(
	ctx context.Context,
	in *GraphState,
	agents contractx.Registry,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil || in.Decision.Kind != contractx.DecisionRoute {
		return nil, fmt.Errorf("%w: dispatch without route decision", contractx.ErrValidation)
	}

	agent, err := agents.Agent(in.Decision.Agent)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := agent.Execute(ctx, in.AgentRequest())
	if err != nil {
		return nil, fmt.Errorf("agent=%s: %w", in.Decision.Agent, err)
	}
	in.Response = resp
	in.Reply = resp.AssistantReply
	in.AgentType = in.Decision.Agent
	return in, nil
}
