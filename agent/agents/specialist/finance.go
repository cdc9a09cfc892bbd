package specialist

import (
	"context"
	"fmt"
	"time"

	"github.com/tanpawarit/Chative-Agent-Router/agent/agents/toolloop"
	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
)

// ToolLoop is the function-calling conversation the finance agent delegates to.
type ToolLoop interface {
	Run(ctx context.Context, systemPrompt string, req contractx.AgentRequest) (toolloop.Output, error)
}

type financeAgent struct {
	loop     ToolLoop
	template string
	context  contextBuilder
}

func (a *financeAgent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	contextJSON, err := a.context.build(req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	start := time.Now()
	out, err := a.loop.Run(ctx, promptx.Render(a.template, contextJSON), req)
	usage := out.Usage
	usage.Latency = time.Since(start)
	if err != nil {
		return contractx.AgentResponse{Usage: &usage}, fmt.Errorf("finance agent: %w", err)
	}

	resp, err := parseFinanceText(out.Text)
	resp.Usage = &usage
	return resp, err
}

// parseFinanceText reads the loop's final text. A JSON object must follow the reply
// contract; anything else is taken as the reply itself.
func parseFinanceText(text string) (contractx.AgentResponse, error) {
	var resp contractx.AgentResponse
	if _, ok := llmx.ExtractJSONObject(text); ok {
		if err := llmx.DecodeJSON(text, &resp); err != nil {
			return resp, err
		}
	} else {
		resp.AssistantReply = llmx.StripCodeFence(text)
	}
	return resp, finalizeResponse(&resp, contractx.AgentTypeFinance)
}
