package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// CostEstimator prices a usage record in USD.
type CostEstimator interface {
	EstimateCost(u *contractx.Usage) float64
}

// RecordTelemetry reports the model usage of the turn. Sink failures are logged and dropped.
func RecordTelemetry(
	ctx context.Context,
	in *GraphState,
	sink contractx.TelemetrySink,
	pricing CostEstimator,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if sink == nil {
		return in, nil
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	records := make([]contractx.TelemetryRecord, 0, 2)
	if in.Extraction != nil && in.Extraction.Usage != nil {
		records = append(records, telemetryRecord(in, in.Extraction.Usage, pricing, true, ""))
	}
	if u := in.Response.Usage; u != nil {
		errMsg := ""
		if in.Response.Fallback {
			errMsg = "fallback reply"
		}
		records = append(records, telemetryRecord(in, u, pricing, !in.Response.Fallback, errMsg))
	}

	for _, rec := range records {
		if err := sink.RecordUsage(ctx, rec); err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("company_id", rec.CompanyID).
				Str("model", rec.Model).
				Msg("usage telemetry dropped")
		}
	}
	return in, nil
}

func telemetryRecord(in *GraphState, u *contractx.Usage, pricing CostEstimator, success bool, errMsg string) contractx.TelemetryRecord {
	rec := contractx.TelemetryRecord{
		CompanyID:    in.In.CompanyID,
		ContactID:    in.In.ContactID,
		AgentType:    in.Decision.Agent,
		Provider:     u.Provider,
		Model:        u.Model,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		LatencyMs:    u.Latency.Milliseconds(),
		Success:      success,
		Error:        errMsg,
		CreatedAt:    in.Now,
	}
	if pricing != nil {
		rec.EstimatedCost = pricing.EstimateCost(u)
	}
	return rec
}
