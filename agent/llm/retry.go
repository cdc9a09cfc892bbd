package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

type RetryConfig struct {
	MaxAttempts     uint          `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"3"`
	InitialInterval time.Duration `envconfig:"INITIAL_INTERVAL" split_words:"true" default:"500ms"`
	MaxInterval     time.Duration `envconfig:"MAX_INTERVAL" split_words:"true" default:"4s"`
	Multiplier      float64       `envconfig:"MULTIPLIER" split_words:"true" default:"2"`
}

func (c RetryConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	if c.Multiplier > 0 {
		b.Multiplier = c.Multiplier
	}
	return b
}

func (c RetryConfig) attempts() uint {
	if c.MaxAttempts == 0 {
		return 1
	}
	return c.MaxAttempts
}

// Retry runs op until it succeeds, fails with a non-overload error, or attempts run out.
// Exhausted overload errors are wrapped with ErrProviderOverloaded.
func Retry[T any](ctx context.Context, cfg RetryConfig, label string, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !IsOverloaded(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(cfg.backOff()),
		backoff.WithMaxTries(cfg.attempts()),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("call", label).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("provider overloaded, retrying")
		}),
	)
	if err == nil {
		return res, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) && perm.Err != nil {
		err = perm.Err
	}
	if IsOverloaded(err) && !errors.Is(err, contractx.ErrProviderOverloaded) {
		err = fmt.Errorf("%w: %s after %d attempts: %w", contractx.ErrProviderOverloaded, label, attempt, err)
	}
	return res, err
}

// IsOverloaded reports transient capacity errors: rate limits and unavailable backends.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, contractx.ErrProviderOverloaded) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return overloadedStatus(gErr.Code) || overloadedText(gErr.Status)
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return overloadedStatus(gErrPtr.Code) || overloadedText(gErrPtr.Status)
	}
	var oErr *openai.Error
	if errors.As(err, &oErr) && oErr != nil {
		return overloadedStatus(oErr.StatusCode)
	}

	// Untyped errors from transports and proxies.
	return overloadedText(err.Error())
}

func overloadedStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	default:
		return false
	}
}

var overloadMarkers = []string{
	"overloaded",
	"unavailable",
	"resource_exhausted",
	"resource exhausted",
	"rate limit",
	"too many requests",
	"error 429",
	"error 503",
}

func overloadedText(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range overloadMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
