package toolloop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
)

type Config struct {
	MaxToolRounds    int `envconfig:"MAX_TOOL_ROUNDS" split_words:"true" default:"1"`
	MaxCallsPerRound int `envconfig:"MAX_CALLS_PER_ROUND" split_words:"true" default:"1"`
	HistoryTurns     int `envconfig:"HISTORY_TURNS" split_words:"true" default:"10"`
}

func (c Config) withDefaults() Config {
	if c.MaxToolRounds < 0 {
		c.MaxToolRounds = 0
	}
	if c.MaxCallsPerRound <= 0 {
		c.MaxCallsPerRound = 1
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = 10
	}
	return c
}

// Dispatcher executes model function calls and reports results in-band.
type Dispatcher interface {
	Declarations() []llmx.FunctionDecl
	Dispatch(ctx context.Context, call llmx.FunctionCall, contactID, companyID string) map[string]any
}

type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, rawURL string) (contractx.Media, []byte, error)
}

type Option func(*Loop)

func WithFetcher(f AttachmentFetcher) Option {
	return func(l *Loop) {
		l.fetcher = f
	}
}

func WithConfig(cfg Config) Option {
	return func(l *Loop) {
		l.cfg = cfg.withDefaults()
	}
}

// Loop runs one function-calling conversation over a provider chain.
type Loop struct {
	provider llmx.Provider
	tools    Dispatcher
	fetcher  AttachmentFetcher
	cfg      Config
}

type Output struct {
	Text  string
	Calls []llmx.FunctionCall
	Usage contractx.Usage
}

func New(provider llmx.Provider, tools Dispatcher, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, errors.New("tool loop requires a provider")
	}
	if tools == nil {
		return nil, errors.New("tool loop requires a dispatcher")
	}
	l := &Loop{
		provider: provider,
		tools:    tools,
		cfg:      Config{MaxToolRounds: 1, MaxCallsPerRound: 1, HistoryTurns: 10},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Run sends the turn, executes at most MaxCallsPerRound calls per round for MaxToolRounds
// rounds, and returns the model's final text.
func (l *Loop) Run(ctx context.Context, systemPrompt string, req contractx.AgentRequest) (Output, error) {
	logger := log.Ctx(ctx).With().
		Str("contact_id", req.ContactID).
		Str("company_id", req.CompanyID).
		Logger()

	messages := llmx.HistoryMessages(req.Snapshot.LastHistory(l.cfg.HistoryTurns))
	messages = append(messages, l.currentTurn(ctx, req))

	var out Output
	decls := l.tools.Declarations()

	for round := 0; ; round++ {
		final := round >= l.cfg.MaxToolRounds
		call := llmx.Request{SystemPrompt: systemPrompt, Messages: messages}
		if !final {
			call.Tools = decls
		}

		resp, err := l.provider.Generate(ctx, call)
		if err != nil {
			return out, fmt.Errorf("tool loop round %d: %w", round, err)
		}
		out.Usage.Add(&resp.Usage)

		if final || !resp.HasFunctionCall() {
			out.Text = strings.TrimSpace(resp.Text)
			if out.Text == "" {
				return out, fmt.Errorf("%w: empty final reply", contractx.ErrSchemaViolation)
			}
			return out, nil
		}

		calls := resp.FunctionCalls
		if len(calls) > l.cfg.MaxCallsPerRound {
			logger.Debug().
				Int("requested", len(calls)).
				Int("kept", l.cfg.MaxCallsPerRound).
				Msg("truncating function calls")
			calls = calls[:l.cfg.MaxCallsPerRound]
		}

		results := make([]llmx.FunctionResult, 0, len(calls))
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = fmt.Sprintf("call_%d_%d", round, i)
			}
			logger.Info().Str("function", calls[i].Name).Int("round", round).Msg("executing function call")
			results = append(results, llmx.FunctionResult{
				ID:       calls[i].ID,
				Name:     calls[i].Name,
				Response: l.tools.Dispatch(ctx, calls[i], req.ContactID, req.CompanyID),
			})
		}
		out.Calls = append(out.Calls, calls...)

		assistant := llmx.Message{Role: llmx.RoleAssistant, FunctionCalls: calls}
		if t := strings.TrimSpace(resp.Text); t != "" {
			assistant.Parts = []llmx.Part{llmx.TextPart(t)}
		}
		messages = append(messages, assistant, llmx.Message{Role: llmx.RoleTool, FunctionResults: results})
	}
}

// currentTurn inlines the current attachment. Fetch failures degrade to text only.
func (l *Loop) currentTurn(ctx context.Context, req contractx.AgentRequest) llmx.Message {
	msg := llmx.Message{Role: llmx.RoleUser}

	switch {
	case req.Media != nil && req.Media.Kind() == contractx.MediaImage:
		if data, err := req.Media.Decode(); err == nil {
			msg.Parts = append(msg.Parts, llmx.BlobPart(req.Media.MIMEType, data))
		} else {
			log.Ctx(ctx).Warn().Err(err).Msg("dropping undecodable inline image")
		}
	case req.Media == nil && req.MediaURL != "" && l.fetcher != nil:
		m, data, err := l.fetcher.FetchAttachment(ctx, req.MediaURL)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("attachment fetch failed, continuing with text")
			break
		}
		if m.Kind() == contractx.MediaImage {
			msg.Parts = append(msg.Parts, llmx.BlobPart(m.MIMEType, data))
		}
	}

	msg.Parts = append(msg.Parts, llmx.TextPart(llmx.TurnText(req.Message, req.Extraction, len(msg.Parts) > 0)))
	return msg
}
