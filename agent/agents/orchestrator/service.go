package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Agent-Router/agent/nodes/orchestrator"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidContact = nodex.ErrInvalidContact
	ErrInvalidCompany = nodex.ErrInvalidCompany
)

type (
	Input  = nodex.GraphInput
	Result = nodex.GraphOutput
)

type Config struct {
	TurnTimeout       time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"90s"`
	PreprocessTimeout time.Duration `envconfig:"PREPROCESS_TIMEOUT" split_words:"true" default:"30s"`
	ContextTimeout    time.Duration `envconfig:"CONTEXT_TIMEOUT" split_words:"true" default:"5s"`
	AgentTimeout      time.Duration `envconfig:"AGENT_TIMEOUT" split_words:"true" default:"60s"`
	OpsTimeout        time.Duration `envconfig:"OPS_TIMEOUT" split_words:"true" default:"10s"`
	TelemetryTimeout  time.Duration `envconfig:"TELEMETRY_TIMEOUT" split_words:"true" default:"3s"`
	PersistTimeout    time.Duration `envconfig:"PERSIST_TIMEOUT" split_words:"true" default:"5s"`

	CompletionThreshold int   `envconfig:"COMPLETION_THRESHOLD" split_words:"true" default:"50"`
	AttachmentMaxBytes  int64 `envconfig:"ATTACHMENT_MAX_BYTES" split_words:"true" default:"10485760"`
}

// Deps are the collaborators of a turn. Preprocessor, Fetcher, Telemetry and Pricing are optional.
type Deps struct {
	Context   contractx.ContextStore
	Router    contractx.Router
	Agents    contractx.Registry
	Executor  contractx.ToolExecutor
	Turns     contractx.TurnStore
	Telemetry contractx.TelemetrySink

	Preprocessor contractx.Preprocessor
	Fetcher      nodex.AttachmentFetcher
	Pricing      nodex.CostEstimator
}

// Orchestrator runs one turn per ProcessMessage call and keeps no per-turn state, so it is
// safe for concurrent use.
type Orchestrator struct {
	deps Deps
	cfg  Config

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	if deps.Context == nil {
		return nil, errors.New("context store is required")
	}
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if deps.Agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if deps.Executor == nil {
		return nil, errors.New("tool executor is required")
	}
	if deps.Turns == nil {
		return nil, errors.New("turn store is required")
	}

	o := &Orchestrator{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileProcessMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) ProcessMessage(ctx context.Context, in Input) (Result, error) {
	if o.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
		defer cancel()
	}

	start := o.now()
	out, err := o.graphRunner.Invoke(ctx, in)
	if err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("contact_id", in.ContactID).
			Str("company_id", in.CompanyID).
			Msg("turn failed")
		return Result{}, err
	}

	log.Ctx(ctx).Info().
		Str("contact_id", in.ContactID).
		Str("company_id", in.CompanyID).
		Str("agent", out.AgentType.String()).
		Bool("fallback", out.Fallback).
		Dur("elapsed", o.now().Sub(start)).
		Msg("turn completed")
	return out, nil
}
