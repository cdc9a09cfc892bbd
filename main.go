package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Agent-Router/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Agent-Router/agent/agents/specialist"
	"github.com/tanpawarit/Chative-Agent-Router/agent/agents/toolloop"
	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
	"github.com/tanpawarit/Chative-Agent-Router/agent/media"
	promptx "github.com/tanpawarit/Chative-Agent-Router/agent/prompt"
	routerx "github.com/tanpawarit/Chative-Agent-Router/agent/router"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Agent-Router/agent/store"
	toolx "github.com/tanpawarit/Chative-Agent-Router/agent/tool"
	configx "github.com/tanpawarit/Chative-Agent-Router/pkg/config"
	_ "github.com/tanpawarit/Chative-Agent-Router/pkg/logger/autoload"
	postgresx "github.com/tanpawarit/Chative-Agent-Router/pkg/postgres"
	qstashx "github.com/tanpawarit/Chative-Agent-Router/pkg/qstash"
)

var (
	contactID   = flag.String("contact", "", "contact id")
	companyID   = flag.String("company", "", "company id")
	message     = flag.String("message", "", "user message")
	mediaURL    = flag.String("media-url", "", "attachment url")
	forcedAgent = flag.String("agent", "", "force a specialist (onboarding|goals|business|finance)")
)

func main() {
	appCfg := configx.MustNew[orchestrator.Config]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	geminiCfg := configx.MustNew[llmx.GeminiConfig]("GEMINI")
	loopCfg := configx.MustNew[toolloop.Config]("TOOLLOOP")
	retryCfg := configx.MustNew[llmx.RetryConfig]("RETRY")
	pricingCfg := configx.MustNew[llmx.PricingConfig]("PRICING")
	postgresCfg := configx.MustNew[postgresx.Config]("POSTGRES")
	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	db := postgresx.MustNew(*postgresCfg)
	defer db.Close()
	if err := postgresx.Ping(ctx, db, postgresCfg.DialTimeout); err != nil {
		log.Fatal().Err(err).Msg("postgres unreachable")
	}

	store, err := storex.NewPostgresStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("create postgres store")
	}

	loaderOpts := []statex.LoaderOption{}
	var hints toolx.HintWriter
	if redisCfg.Enabled() {
		redis, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create upstash redis hint store")
		}
		loaderOpts = append(loaderOpts, statex.WithHintStore(redis))
		hints = redis
	} else {
		log.Warn().Msg("upstash redis not configured, sticky agent hints disabled")
	}
	contexts, err := statex.NewLoader(store, loaderOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("create context loader")
	}

	providers := buildProviders(ctx, *llmCfg, *geminiCfg, false)
	chain, err := llmx.NewChain(*retryCfg, providers...)
	if err != nil {
		log.Fatal().Err(err).Msg("no llm provider configured")
	}
	mediaChain, err := llmx.NewChain(*retryCfg, buildProviders(ctx, *llmCfg, *geminiCfg, true)...)
	if err != nil {
		log.Fatal().Err(err).Msg("no media provider configured")
	}

	prompts := promptx.LoadPromptSet()
	preprocessor, err := media.NewPreprocessor(mediaChain, prompts)
	if err != nil {
		log.Fatal().Err(err).Msg("create media preprocessor")
	}
	fetcher := media.NewFetcher(media.WithMaxBytes(appCfg.AttachmentMaxBytes))

	loop, err := toolloop.New(chain, toolx.NewDispatcher(store),
		toolloop.WithFetcher(fetcher),
		toolloop.WithConfig(*loopCfg),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create tool loop")
	}

	agents, err := specialist.NewRegistry(ctx, specialist.OpenRouterModels(*llmCfg, *retryCfg), loop,
		specialist.WithPrompts(prompts),
		specialist.WithHistoryTurns(loopCfg.HistoryTurns),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create agent registry")
	}

	var telemetry contractx.TelemetrySink = store
	if qstashCfg.Enabled() {
		sink, err := storex.NewQStashSink(qstashx.MustNew(*qstashCfg))
		if err != nil {
			log.Fatal().Err(err).Msg("create qstash telemetry sink")
		}
		telemetry = sink
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Context:      contexts,
		Router:       routerx.New(routerx.WithCompletionThreshold(appCfg.CompletionThreshold)),
		Agents:       agents,
		Executor:     toolx.NewExecutor(store, store, hints),
		Turns:        store,
		Telemetry:    telemetry,
		Preprocessor: preprocessor,
		Fetcher:      fetcher,
		Pricing:      *pricingCfg,
	}, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	out, err := orch.ProcessMessage(ctx, orchestrator.Input{
		ContactID:   *contactID,
		CompanyID:   *companyID,
		Message:     *message,
		MediaURL:    *mediaURL,
		ForcedAgent: *forcedAgent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("process message")
	}

	fmt.Printf("[%s] %s\n", out.AgentType, out.Reply)
}

// buildProviders returns Gemini first and the OpenAI-compatible endpoint as fallback,
// skipping any provider that is not configured.
func buildProviders(ctx context.Context, llmCfg llmx.Config, geminiCfg llmx.GeminiConfig, forMedia bool) []llmx.Provider {
	var providers []llmx.Provider

	if forMedia {
		geminiCfg = geminiCfg.ForMedia()
	}
	if geminiCfg.Enabled() {
		gemini, err := llmx.NewGeminiProvider(ctx, geminiCfg)
		if err != nil {
			log.Warn().Err(err).Msg("gemini provider disabled")
		} else {
			providers = append(providers, gemini)
		}
	}

	fallback, err := llmx.NewOpenAIProvider(llmCfg.OpenRouterFor(contractx.AgentTypeFinance))
	if err != nil {
		log.Warn().Err(err).Msg("openai-compatible provider disabled")
	} else {
		providers = append(providers, fallback)
	}
	return providers
}
