package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Agent-Router/pkg/openrouter"
)

const ProviderOpenAI = "openai"

// OpenAIProvider speaks the OpenAI chat-completions schema, typically against OpenRouter.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIProvider(cfg openrouterx.Config) (*OpenAIProvider, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, fmt.Errorf("%w: openai-compatible api key is required", contractx.ErrValidation)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: openai-compatible model is required", contractx.ErrValidation)
	}

	p := &OpenAIProvider{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}
	if cfg.MaxCompletionToken != nil {
		p.maxTokens = *cfg.MaxCompletionToken
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string  { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    openAIMessages(req.SystemPrompt, req.Messages),
		Temperature: openai.Float(float64(p.temperature)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.maxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = openAITools(req.Tools)
	} else if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("%w: openai %s: %w", contractx.ErrModelInvoke, p.model, err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: openai %s: empty choices", contractx.ErrModelInvoke, p.model)
	}

	msg := completion.Choices[0].Message
	out := Response{
		Text: strings.TrimSpace(msg.Content),
		Usage: contractx.Usage{
			Provider:     ProviderOpenAI,
			Model:        p.model,
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
			Latency:      time.Since(start),
		},
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return Response{}, fmt.Errorf("%w: tool call %s arguments: %v", contractx.ErrSchemaViolation, tc.Function.Name, err)
			}
		}
		out.FunctionCalls = append(out.FunctionCalls, FunctionCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func openAIMessages(system string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if s := strings.TrimSpace(system); s != "" {
		out = append(out, openai.SystemMessage(s))
	}

	for _, m := range messages {
		switch {
		case len(m.FunctionResults) > 0:
			for _, fr := range m.FunctionResults {
				body, err := json.Marshal(fr.Response)
				if err != nil {
					body = []byte(`{"error":"unserializable result"}`)
				}
				out = append(out, openai.ToolMessage(string(body), fr.ID))
			}
		case m.Role == RoleAssistant:
			out = append(out, openAIAssistant(m))
		default:
			out = append(out, openAIUser(m))
		}
	}
	return out
}

func openAIAssistant(m Message) openai.ChatCompletionMessageParamUnion {
	if len(m.FunctionCalls) == 0 {
		return openai.AssistantMessage(m.Text())
	}

	param := openai.ChatCompletionAssistantMessageParam{}
	if text := m.Text(); text != "" {
		param.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text),
		}
	}
	for _, fc := range m.FunctionCalls {
		args, err := json.Marshal(fc.Args)
		if err != nil || fc.Args == nil {
			args = []byte("{}")
		}
		param.ToolCalls = append(param.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: fc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &param}
}

func openAIUser(m Message) openai.ChatCompletionMessageParamUnion {
	hasImage := false
	for _, p := range m.Parts {
		if p.IsBlob() && strings.HasPrefix(p.MIMEType, "image/") {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return openai.UserMessage(m.Text())
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch {
		case p.IsBlob() && strings.HasPrefix(p.MIMEType, "image/"):
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: p.DataURL(),
			}))
		case p.IsBlob():
			// Non-image binaries are not portable across chat-completions endpoints.
			parts = append(parts, openai.TextContentPart("[adjunto "+p.MIMEType+"]"))
		case p.Text != "":
			parts = append(parts, openai.TextContentPart(p.Text))
		}
	}
	return openai.UserMessage(parts)
}

func openAITools(decls []FunctionDecl) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.JSONSchema()),
			},
		})
	}
	return tools
}
