package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	openrouterx "github.com/tanpawarit/Chative-Agent-Router/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	OnboardingModel       string  `envconfig:"ONBOARDING_MODEL" split_words:"true"`
	GoalsModel            string  `envconfig:"GOALS_MODEL" split_words:"true"`
	BusinessModel         string  `envconfig:"BUSINESS_MODEL" split_words:"true"`
	FinanceModel          string  `envconfig:"FINANCE_MODEL" split_words:"true"`
	OnboardingTemperature float32 `envconfig:"ONBOARDING_TEMPERATURE" split_words:"true" default:"-1"`
	GoalsTemperature      float32 `envconfig:"GOALS_TEMPERATURE" split_words:"true" default:"-1"`
	BusinessTemperature   float32 `envconfig:"BUSINESS_TEMPERATURE" split_words:"true" default:"-1"`
	FinanceTemperature    float32 `envconfig:"FINANCE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, t float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if t >= 0 {
			temp = t
		}
	}

	switch agentType {
	case contractx.AgentTypeOnboarding:
		override(c.OnboardingModel, c.OnboardingTemperature)
	case contractx.AgentTypeGoals:
		override(c.GoalsModel, c.GoalsTemperature)
	case contractx.AgentTypeBusiness:
		override(c.BusinessModel, c.BusinessTemperature)
	case contractx.AgentTypeFinance:
		override(c.FinanceModel, c.FinanceTemperature)
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		JSONMode:           true,
	}
}
