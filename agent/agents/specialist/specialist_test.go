package specialist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/Chative-Agent-Router/agent/agents/toolloop"
	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

type fakeLoop struct {
	out    toolloop.Output
	err    error
	prompt string
	req    contractx.AgentRequest
}

func (f *fakeLoop) Run(ctx context.Context, systemPrompt string, req contractx.AgentRequest) (toolloop.Output, error) {
	f.prompt = systemPrompt
	f.req = req
	return f.out, f.err
}

func fixedModels(m einomodel.BaseChatModel) ModelFactory {
	return func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, string, error) {
		return m, "test/" + agentType.String(), nil
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 17, 15, 0, 0, 0, time.UTC)
}

func newTestRegistry(t *testing.T, model einomodel.BaseChatModel, loop ToolLoop) *Registry {
	t.Helper()
	reg, err := NewRegistry(context.Background(), fixedModels(model), loop, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func agentFor(t *testing.T, reg *Registry, agentType contractx.AgentType) contractx.Agent {
	t.Helper()
	agent, err := reg.Agent(agentType)
	if err != nil {
		t.Fatalf("Agent(%s) error = %v", agentType, err)
	}
	return agent
}

func testRequest(message string) contractx.AgentRequest {
	return contractx.AgentRequest{
		ContactID: "c1",
		CompanyID: "co1",
		Message:   message,
		Snapshot: &statex.Snapshot{
			Contact: statex.Contact{ID: "c1", Name: "Ana López"},
			Company: statex.Company{ID: "co1", Name: "Panadería Sol"},
			Profile: statex.Profile{CompletionPct: 60, Facts: map[string]any{"city": "Monterrey"}},
			RecentHistory: []statex.HistoryEntry{
				{Role: statex.RoleUser, Content: "mi ticket", HasImage: true},
				{Role: statex.RoleAssistant, Content: "Lo registré."},
			},
		},
	}
}

func TestDirectAgentParsesFencedJSON(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role:    schema.Assistant,
				Content: "```json\n{\"assistant_reply\":\"¡Gran meta! ¿Para cuándo?\",\"intent\":\"goals\",\"ops\":[{\"kind\":\"call\",\"path\":\"set_agent_hint\",\"args\":{\"agent\":\"goals\"}}],\"goal\":{\"title\":\"Fondo de emergencia\",\"target_amount\":30000}}\n```",
				ResponseMeta: &schema.ResponseMeta{
					Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 40},
				},
			},
		},
	}
	reg := newTestRegistry(t, fake, &fakeLoop{})

	resp, err := agentFor(t, reg, contractx.AgentTypeGoals).Execute(context.Background(), testRequest("quiero ahorrar 30 mil"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Fallback {
		t.Fatal("unexpected fallback")
	}
	if resp.AssistantReply != "¡Gran meta! ¿Para cuándo?" || resp.Intent != contractx.AgentTypeGoals {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if len(resp.Ops) != 1 || resp.Ops[0].Path != contractx.ToolSetAgentHint {
		t.Fatalf("unexpected ops: %#v", resp.Ops)
	}
	if resp.Goal == nil || resp.Goal.Title != "Fondo de emergencia" {
		t.Fatalf("unexpected goal: %#v", resp.Goal)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 120 || resp.Usage.Model != "test/goals" || resp.Usage.Provider != ProviderOpenRouter {
		t.Fatalf("unexpected usage: %#v", resp.Usage)
	}
}

func TestDirectAgentUnparsableReplyKeepsUsage(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role:    schema.Assistant,
				Content: "esto no es json",
				ResponseMeta: &schema.ResponseMeta{
					Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 30},
				},
			},
		},
	}
	reg := newTestRegistry(t, fake, &fakeLoop{})

	resp, err := agentFor(t, reg, contractx.AgentTypeGoals).Execute(context.Background(), testRequest("quiero ahorrar"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Fallback || resp.AssistantReply != FallbackReply(contractx.AgentTypeGoals) || len(resp.Ops) != 0 {
		t.Fatalf("expected goals fallback, got %#v", resp)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 30 || resp.Usage.Model != "test/goals" {
		t.Fatalf("billed call must keep its usage, got %#v", resp.Usage)
	}
}

func TestDirectAgentBuildsConversation(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{{Content: `{"assistant_reply":"ok"}`}},
	}
	reg := newTestRegistry(t, fake, &fakeLoop{})

	req := testRequest("")
	req.Media = &contractx.Media{Type: "image", MIMEType: "image/jpeg"}
	req.Extraction = &contractx.MediaResult{Kind: contractx.MediaImage, Extraction: map[string]any{"text_extraction": "Factura proveedor"}}

	if _, err := agentFor(t, reg, contractx.AgentTypeBusiness).Execute(context.Background(), req); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	input := fake.inputs[0]
	if len(input) != 4 {
		t.Fatalf("expected system + 2 history + current, got %d", len(input))
	}
	system := input[0].Content
	if input[0].Role != schema.System || strings.Contains(system, promptx.ContextPlaceholder) {
		t.Fatal("context placeholder must be rendered into the system prompt")
	}
	for _, want := range []string{`"name":"Ana"`, `"today":"2024-05-17"`, `"company_name":"Panadería Sol"`, `"city":"Monterrey"`} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %s", want)
		}
	}
	if input[1].Content != "[imagen] mi ticket" || input[2].Role != schema.Assistant {
		t.Fatalf("unexpected history: %#v %#v", input[1], input[2])
	}
	if input[3].Content != "[adjunto] Factura proveedor" {
		t.Fatalf("unexpected current turn: %q", input[3].Content)
	}
}

func TestGuardFallbacks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		model *fakeToolCallingModel
	}{
		{name: "malformed json", model: &fakeToolCallingModel{responses: []*schema.Message{{Content: "claro, te ayudo"}}}},
		{name: "empty reply", model: &fakeToolCallingModel{responses: []*schema.Message{{Content: `{"assistant_reply":"  ","ops":[{"kind":"call","path":"set_agent_hint"}]}`}}}},
		{name: "model error", model: &fakeToolCallingModel{err: errors.New("503 unavailable")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := newTestRegistry(t, tc.model, &fakeLoop{})
			resp, err := agentFor(t, reg, contractx.AgentTypeOnboarding).Execute(context.Background(), testRequest("hola, soy Ana"))
			if err != nil {
				t.Fatalf("guarded agent must not fail, got %v", err)
			}
			if !resp.Fallback || resp.AssistantReply != FallbackReply(contractx.AgentTypeOnboarding) {
				t.Fatalf("expected onboarding fallback, got %#v", resp)
			}
			if len(resp.Ops) != 0 || resp.Intent != contractx.AgentTypeOnboarding {
				t.Fatalf("fallback must carry no ops, got %#v", resp)
			}
		})
	}
}

func TestFinanceAgent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		loop         *fakeLoop
		wantReply    string
		wantFallback bool
	}{
		{
			name:      "json reply",
			loop:      &fakeLoop{out: toolloop.Output{Text: `{"assistant_reply":"Registré 50 MXN en comida.","finance":{"detected_amount":50,"currency":"MXN"}}`}},
			wantReply: "Registré 50 MXN en comida.",
		},
		{
			name:      "plain text reply",
			loop:      &fakeLoop{out: toolloop.Output{Text: "Este mes llevas 850 MXN en comida."}},
			wantReply: "Este mes llevas 850 MXN en comida.",
		},
		{
			name:         "json without reply",
			loop:         &fakeLoop{out: toolloop.Output{Text: `{"intent":"finance"}`}},
			wantReply:    FallbackReply(contractx.AgentTypeFinance),
			wantFallback: true,
		},
		{
			name:         "loop failure",
			loop:         &fakeLoop{err: contractx.ErrAllProvidersFailed},
			wantReply:    FallbackReply(contractx.AgentTypeFinance),
			wantFallback: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.loop.out.Usage = contractx.Usage{Provider: "gemini", Model: "gemini-2.0-flash", InputTokens: 10, OutputTokens: 5}
			reg := newTestRegistry(t, &fakeToolCallingModel{}, tc.loop)

			resp, err := agentFor(t, reg, contractx.AgentTypeFinance).Execute(context.Background(), testRequest("gasté 50 en comida"))
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if resp.AssistantReply != tc.wantReply || resp.Fallback != tc.wantFallback {
				t.Fatalf("unexpected response: %#v", resp)
			}
			if resp.Intent != contractx.AgentTypeFinance {
				t.Fatalf("unexpected intent: %s", resp.Intent)
			}
			if resp.Usage == nil || resp.Usage.Provider != "gemini" {
				t.Fatalf("usage must be kept, got %#v", resp.Usage)
			}
			if !strings.Contains(tc.loop.prompt, `"profile_completion":60`) {
				t.Fatal("finance prompt must carry the rendered context")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, &fakeToolCallingModel{}, &fakeLoop{})
	for _, agentType := range contractx.AgentTypes() {
		if _, err := reg.Agent(agentType); err != nil {
			t.Fatalf("Agent(%s) error = %v", agentType, err)
		}
	}
	for _, agentType := range []contractx.AgentType{contractx.AgentTypeRouter, contractx.AgentTypeDefault, "sales"} {
		if _, err := reg.Agent(agentType); !errors.Is(err, contractx.ErrUnsupportedAgent) {
			t.Fatalf("Agent(%s) expected ErrUnsupportedAgent, got %v", agentType, err)
		}
	}
}

func TestNewRegistryErrors(t *testing.T) {
	t.Parallel()

	failing := func(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, string, error) {
		return nil, "", contractx.ErrModelInvoke
	}
	if _, err := NewRegistry(context.Background(), failing, &fakeLoop{}); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	_, err := NewRegistry(context.Background(), fixedModels(&fakeToolCallingModel{}), &fakeLoop{}, WithPrompts(promptx.PromptSet{}))
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}

	if _, err := NewRegistry(context.Background(), fixedModels(&fakeToolCallingModel{}), nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
