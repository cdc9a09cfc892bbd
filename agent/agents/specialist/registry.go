package specialist

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
)

// ModelFactory builds the chat model of a direct agent and reports its model name.
type ModelFactory func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, string, error)

// OpenRouterModels creates per-agent OpenRouter chat models wrapped in the overload retry policy.
func OpenRouterModels(cfg llmx.Config, retry llmx.RetryConfig) ModelFactory {
	return func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, string, error) {
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
		modelCfg := cfg.OpenRouterFor(agentType)
		m, err := modelCfg.New(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return llmx.NewRetryingChatModel(m, retry, "openrouter."+agentType.String()), modelCfg.Model, nil
	}
}

type Option func(*registryOptions)

type registryOptions struct {
	prompts      promptx.PromptSet
	historyTurns int
	now          func() time.Time
}

func WithPrompts(p promptx.PromptSet) Option {
	return func(o *registryOptions) {
		o.prompts = p
	}
}

func WithHistoryTurns(n int) Option {
	return func(o *registryOptions) {
		if n > 0 {
			o.historyTurns = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *registryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Registry holds one guarded agent per specialist type.
type Registry struct {
	onboarding contractx.Agent
	goals      contractx.Agent
	business   contractx.Agent
	finance    contractx.Agent
}

var _ contractx.Registry = (*Registry)(nil)

func NewRegistry(ctx context.Context, models ModelFactory, loop ToolLoop, opts ...Option) (*Registry, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: model factory is required", contractx.ErrValidation)
	}
	if loop == nil {
		return nil, fmt.Errorf("%w: finance tool loop is required", contractx.ErrValidation)
	}

	o := registryOptions{
		prompts:      promptx.LoadPromptSet(),
		historyTurns: 10,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	builder := contextBuilder{now: o.now}

	direct := func(agentType contractx.AgentType) (contractx.Agent, error) {
		template, err := o.prompts.ForAgent(agentType)
		if err != nil {
			return nil, err
		}
		chatModel, modelName, err := models(ctx, agentType)
		if err != nil {
			return nil, err
		}
		agent, err := newDirectAgent(ctx, chatModel, agentGraphConfig{
			agentType:    agentType,
			template:     template,
			modelName:    modelName,
			historyTurns: o.historyTurns,
			context:      builder,
		})
		if err != nil {
			return nil, err
		}
		return Guard(agentType, agent), nil
	}

	r := &Registry{}
	var err error
	if r.onboarding, err = direct(contractx.AgentTypeOnboarding); err != nil {
		return nil, err
	}
	if r.goals, err = direct(contractx.AgentTypeGoals); err != nil {
		return nil, err
	}
	if r.business, err = direct(contractx.AgentTypeBusiness); err != nil {
		return nil, err
	}

	financePrompt, err := o.prompts.ForAgent(contractx.AgentTypeFinance)
	if err != nil {
		return nil, err
	}
	r.finance = Guard(contractx.AgentTypeFinance, &financeAgent{
		loop:     loop,
		template: financePrompt,
		context:  builder,
	})

	return r, nil
}

func (r *Registry) Agent(agentType contractx.AgentType) (contractx.Agent, error) {
	switch agentType {
	case contractx.AgentTypeOnboarding:
		return r.onboarding, nil
	case contractx.AgentTypeGoals:
		return r.goals, nil
	case contractx.AgentTypeBusiness:
		return r.business, nil
	case contractx.AgentTypeFinance:
		return r.finance, nil
	default:
		return nil, fmt.Errorf("%w: agent=%s", contractx.ErrUnsupportedAgent, agentType)
	}
}
