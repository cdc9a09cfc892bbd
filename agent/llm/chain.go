package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// Chain tries providers in order; each provider gets the overload retry policy first.
type Chain struct {
	providers []Provider
	retry     RetryConfig
}

func NewChain(retry RetryConfig, providers ...Provider) (*Chain, error) {
	list := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: provider chain requires at least one provider", contractx.ErrValidation)
	}
	return &Chain{providers: list, retry: retry}, nil
}

func (c *Chain) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

func (c *Chain) Name() string  { return c.providers[0].Name() }
func (c *Chain) Model() string { return c.providers[0].Model() }

// Generate returns the first successful response. The request is replayed as-is to every
// provider; each converts the shared message form into its own schema.
func (c *Chain) Generate(ctx context.Context, req Request) (Response, error) {
	var errs []error
	for i, p := range c.providers {
		resp, err := Retry(ctx, c.retry, p.Name(), func(ctx context.Context) (Response, error) {
			return p.Generate(ctx, req)
		})
		if err == nil {
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("%s/%s: %w", p.Name(), p.Model(), err))

		if ctx.Err() != nil {
			return Response{}, err
		}
		if i+1 < len(c.providers) {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("provider", p.Name()).
				Str("model", p.Model()).
				Str("next", c.providers[i+1].Name()).
				Msg("provider failed, falling back")
		}
	}
	return Response{}, fmt.Errorf("%w: %w", contractx.ErrAllProvidersFailed, errors.Join(errs...))
}

var _ Provider = (*Chain)(nil)
