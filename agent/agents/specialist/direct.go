package specialist

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// directAgent answers in one strict-JSON model call.
type directAgent struct {
	cfg    agentGraphConfig
	runner compose.Runnable[contractx.AgentRequest, *schema.Message]
}

func newDirectAgent(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	cfg agentGraphConfig,
) (*directAgent, error) {
	runner, err := compileAgentGraph(ctx, chatModel, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &directAgent{cfg: cfg, runner: runner}, nil
}

func (a *directAgent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	start := time.Now()
	msg, err := a.runner.Invoke(ctx, req)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: %s agent: %v", contractx.ErrModelInvoke, a.cfg.agentType, err)
	}

	out, err := parseAgentMessage(msg, a.cfg)
	if out.Usage != nil {
		out.Usage.Latency = time.Since(start)
	}
	if err != nil {
		return out, err
	}

	log.Ctx(ctx).Debug().
		Str("agent", a.cfg.agentType.String()).
		Int("ops", len(out.Ops)).
		Dur("latency", time.Since(start)).
		Msg("agent replied")
	return out, nil
}
