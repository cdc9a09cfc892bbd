package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

const ProviderGemini = "gemini"

type GeminiConfig struct {
	APIKey          string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL         string        `envconfig:"BASE_URL" split_words:"true"`
	Model           string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.0-flash"`
	MediaModel      string        `envconfig:"MEDIA_MODEL" split_words:"true"`
	Temperature     float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	MaxOutputTokens int32         `envconfig:"MAX_OUTPUT_TOKENS" split_words:"true" default:"2048"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	HTTPClient *http.Client `ignored:"true"`
}

func (c GeminiConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ForMedia returns a copy that targets the media model when one is configured.
func (c GeminiConfig) ForMedia() GeminiConfig {
	if m := strings.TrimSpace(c.MediaModel); m != "" {
		c.Model = m
	}
	return c
}

type GeminiProvider struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: gemini api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: gemini model is required", contractx.ErrValidation)
	}

	clientCfg := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     strings.TrimSpace(cfg.APIKey),
		HTTPClient: cfg.HTTPClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, cfg: cfg}, nil
}

func (p *GeminiProvider) Name() string  { return ProviderGemini }
func (p *GeminiProvider) Model() string { return p.cfg.Model }

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.cfg.Temperature),
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(*req.Temperature)
	}
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		config.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}}
	} else if req.JSON {
		// JSON mime type cannot be combined with function calling.
		config.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.Model, geminiContents(req.Messages), config)
	if err != nil {
		return Response{}, fmt.Errorf("%w: gemini %s: %w", contractx.ErrModelInvoke, p.cfg.Model, err)
	}

	out := geminiResponse(resp)
	out.Usage.Provider = ProviderGemini
	out.Usage.Model = p.cfg.Model
	out.Usage.Latency = time.Since(start)
	return out, nil
}

func geminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, len(m.Parts)+len(m.FunctionCalls)+len(m.FunctionResults))
		for _, p := range m.Parts {
			switch {
			case p.IsBlob():
				parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			case p.Text != "":
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		for _, fc := range m.FunctionCalls {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			}})
		}
		for _, fr := range m.FunctionResults {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       fr.ID,
				Name:     fr.Name,
				Response: fr.Response,
			}})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func geminiDeclarations(decls []FunctionDecl) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		props := make(map[string]*genai.Schema, len(d.Params))
		var required []string
		for _, p := range d.Params {
			props[p.Name] = &genai.Schema{Type: geminiType(p.Type), Description: p.Description}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}

func geminiType(t ParamType) genai.Type {
	switch t {
	case ParamNumber:
		return genai.TypeNumber
	case ParamInteger:
		return genai.TypeInteger
	case ParamBoolean:
		return genai.TypeBoolean
	case ParamObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func geminiResponse(resp *genai.GenerateContentResponse) Response {
	var out Response
	if resp == nil {
		return out
	}
	if resp.UsageMetadata != nil {
		out.Usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.Usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out
}
