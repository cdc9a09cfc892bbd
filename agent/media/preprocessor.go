package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
)

const rawExtractionKey = "text_extraction"

// Preprocessor turns one attachment into text the router and agents can use.
type Preprocessor struct {
	provider llmx.Provider
	prompts  promptx.PromptSet
}

func NewPreprocessor(provider llmx.Provider, prompts promptx.PromptSet) (*Preprocessor, error) {
	if provider == nil {
		return nil, errors.New("media preprocessor requires a provider")
	}
	return &Preprocessor{provider: provider, prompts: prompts}, nil
}

func (p *Preprocessor) Process(ctx context.Context, kind contractx.MediaKind, data []byte, mimeType string) (contractx.MediaResult, error) {
	if len(data) == 0 {
		return contractx.MediaResult{}, fmt.Errorf("%w: empty %s attachment", contractx.ErrValidation, kind)
	}
	systemPrompt, err := p.prompts.ForMedia(kind)
	if err != nil {
		return contractx.MediaResult{}, err
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultMIME(kind)
	}

	resp, err := p.provider.Generate(ctx, llmx.Request{
		SystemPrompt: systemPrompt,
		Messages: []llmx.Message{{
			Role: llmx.RoleUser,
			Parts: []llmx.Part{
				llmx.BlobPart(mimeType, data),
				llmx.TextPart("Procesa este archivo."),
			},
		}},
		JSON: true,
	})
	if err != nil {
		return contractx.MediaResult{}, fmt.Errorf("media %s: %w", kind, err)
	}

	out := ParseResult(kind, resp.Text)
	usage := resp.Usage
	out.Usage = &usage

	log.Ctx(ctx).Debug().
		Str("media", string(kind)).
		Str("intent_hint", string(out.IntentHint)).
		Int64("input_tokens", usage.InputTokens).
		Msg("attachment preprocessed")
	return out, nil
}

// ParseResult reads the model output; anything that is not a JSON object is kept as raw text.
func ParseResult(kind contractx.MediaKind, raw string) contractx.MediaResult {
	out := contractx.MediaResult{Kind: kind}

	obj, ok := llmx.ExtractJSONObject(raw)
	if !ok {
		if text := strings.TrimSpace(raw); text != "" {
			out.Extraction = map[string]any{rawExtractionKey: text}
		}
		return out
	}

	if hint, ok := contractx.ParseAgentType(gjson.Get(obj, "intent_hint").String()); ok {
		out.IntentHint = hint
	}
	out.Transcript = strings.TrimSpace(gjson.Get(obj, "transcript").String())

	if ext := gjson.Get(obj, "extraction"); ext.IsObject() {
		if m, ok := ext.Value().(map[string]any); ok && len(m) > 0 {
			out.Extraction = m
		}
		return out
	}

	// Flat objects carry the extraction at the top level.
	var flat map[string]any
	if err := json.Unmarshal([]byte(obj), &flat); err != nil {
		out.Extraction = map[string]any{rawExtractionKey: strings.TrimSpace(raw)}
		return out
	}
	delete(flat, "intent_hint")
	delete(flat, "transcript")
	if len(flat) > 0 {
		out.Extraction = flat
	}
	return out
}

func defaultMIME(kind contractx.MediaKind) string {
	switch kind {
	case contractx.MediaImage:
		return "image/jpeg"
	case contractx.MediaAudio:
		return "audio/ogg"
	default:
		return "application/pdf"
	}
}

var _ contractx.Preprocessor = (*Preprocessor)(nil)
