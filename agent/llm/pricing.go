package llm

import (
	"strings"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

type PricingConfig struct {
	DefaultInput  float64 `envconfig:"DEFAULT_INPUT" split_words:"true" default:"0.10"`
	DefaultOutput float64 `envconfig:"DEFAULT_OUTPUT" split_words:"true" default:"0.40"`
}

// Longest matching prefix wins.
var modelPrices = map[string]Price{
	"gemini-2.5-pro":          {Input: 1.25, Output: 10},
	"gemini-2.5-flash":        {Input: 0.30, Output: 2.50},
	"gemini-2.5-flash-lite":   {Input: 0.10, Output: 0.40},
	"gemini-2.0-flash":        {Input: 0.10, Output: 0.40},
	"gemini-2.0-flash-lite":   {Input: 0.075, Output: 0.30},
	"openai/gpt-4o-mini":      {Input: 0.15, Output: 0.60},
	"openai/gpt-4o":           {Input: 2.50, Output: 10},
	"openai/gpt-4.1-mini":     {Input: 0.40, Output: 1.60},
	"google/gemini-2.0-flash": {Input: 0.10, Output: 0.40},
	"google/gemini-2.5-flash": {Input: 0.30, Output: 2.50},
	"x-ai/grok-4.1-fast":      {Input: 0.20, Output: 0.50},
}

func (c PricingConfig) PriceFor(model string) Price {
	model = strings.ToLower(strings.TrimSpace(model))
	best, bestLen := Price{Input: c.DefaultInput, Output: c.DefaultOutput}, 0
	for prefix, price := range modelPrices {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = price, len(prefix)
		}
	}
	return best
}

// EstimateCost returns the USD cost of a usage record.
func (c PricingConfig) EstimateCost(u *contractx.Usage) float64 {
	if u == nil {
		return 0
	}
	p := c.PriceFor(u.Model)
	return (float64(u.InputTokens)*p.Input + float64(u.OutputTokens)*p.Output) / 1_000_000
}
