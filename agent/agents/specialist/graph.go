package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
)

// ProviderOpenRouter tags usage of the direct agents' chat models.
const ProviderOpenRouter = "openrouter"

type agentGraphConfig struct {
	agentType    contractx.AgentType
	template     string
	modelName    string
	historyTurns int
	context      contextBuilder
}

// compileAgentGraph builds build_messages -> model for a strict-JSON agent. The raw model
// message is returned so its usage survives a reply that fails to parse.
func compileAgentGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	cfg agentGraphConfig,
) (compose.Runnable[contractx.AgentRequest, *schema.Message], error) {
	graph := compose.NewGraph[contractx.AgentRequest, *schema.Message]()

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, req contractx.AgentRequest) ([]*schema.Message, error) {
			return buildMessages(req, cfg)
		}),
	); err != nil {
		return nil, fmt.Errorf("add %s build_messages node: %w", cfg.agentType, err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add %s model node: %w", cfg.agentType, err)
	}

	if err := graph.AddEdge(compose.START, "build_messages"); err != nil {
		return nil, fmt.Errorf("add %s edge start->build_messages: %w", cfg.agentType, err)
	}
	if err := graph.AddEdge("build_messages", "model"); err != nil {
		return nil, fmt.Errorf("add %s edge build_messages->model: %w", cfg.agentType, err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add %s edge model->end: %w", cfg.agentType, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist."+cfg.agentType.String()))
	if err != nil {
		return nil, fmt.Errorf("compile %s graph: %w", cfg.agentType, err)
	}
	return runner, nil
}

func buildMessages(req contractx.AgentRequest, cfg agentGraphConfig) ([]*schema.Message, error) {
	contextJSON, err := cfg.context.build(req)
	if err != nil {
		return nil, err
	}

	history := llmx.HistoryMessages(req.Snapshot.LastHistory(cfg.historyTurns))
	msgs, err := llmx.ToSchemaMessages(promptx.Render(cfg.template, contextJSON), history)
	if err != nil {
		return nil, err
	}

	hasImage := req.Media != nil && req.Media.Kind() == contractx.MediaImage
	text := llmx.TurnText(req.Message, req.Extraction, hasImage || req.MediaURL != "")
	if text == "" {
		return nil, fmt.Errorf("%w: empty user turn", contractx.ErrValidation)
	}
	return append(msgs, schema.UserMessage(text)), nil
}

func parseAgentMessage(msg *schema.Message, cfg agentGraphConfig) (contractx.AgentResponse, error) {
	if msg == nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	usage := llmx.UsageFromMessage(msg, ProviderOpenRouter, cfg.modelName)

	var out contractx.AgentResponse
	if err := llmx.DecodeJSON(msg.Content, &out); err != nil {
		return contractx.AgentResponse{Usage: usage}, fmt.Errorf("%s: %w", cfg.agentType, err)
	}
	out.Usage = usage
	if err := finalizeResponse(&out, cfg.agentType); err != nil {
		return out, err
	}
	return out, nil
}

// finalizeResponse enforces the reply contract shared by every agent.
func finalizeResponse(out *contractx.AgentResponse, agentType contractx.AgentType) error {
	out.AssistantReply = strings.TrimSpace(out.AssistantReply)
	if out.AssistantReply == "" {
		return fmt.Errorf("%w: %s assistant_reply is empty", contractx.ErrSchemaViolation, agentType)
	}
	out.Intent = agentType
	if out.Ops == nil {
		out.Ops = []contractx.Operation{}
	}
	return nil
}
