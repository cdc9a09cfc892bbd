package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
)

const (
	ReasonForced    = "forced"
	ReasonMediaHint = "media_hint"
)

// RouteTurn picks the decision of the turn. A forced agent bypasses the router; otherwise a
// valid media intent hint overrides the router outcome.
func RouteTurn(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if forced := strings.TrimSpace(in.In.ForcedAgent); forced != "" {
		agentType, ok := contractx.ParseAgentType(forced)
		if !ok {
			return nil, fmt.Errorf("%w: forced agent=%q", contractx.ErrUnsupportedAgent, forced)
		}
		in.Decision = contractx.Route(agentType, ReasonForced)
	} else {
		in.Decision = router.Decide(llmx.TurnText(in.In.Message, in.Extraction, false), in.Snapshot)
		if in.Extraction != nil && in.Extraction.IntentHint.IsSpecialist() {
			in.Decision = contractx.Route(in.Extraction.IntentHint, ReasonMediaHint)
		}
	}

	log.Ctx(ctx).Info().
		Str("contact_id", in.In.ContactID).
		Str("decision", in.Decision.Kind.String()).
		Str("agent", in.Decision.Agent.String()).
		Str("reason", in.Decision.Reason).
		Msg("turn routed")
	return in, nil
}

// RespondDirectly adopts the router's reply; the turn is tagged as answered by the router.
func RespondDirectly(in *GraphState) (*GraphState, error) {
	if in == nil || !in.Decision.IsRespond() {
		return nil, fmt.Errorf("%w: respond path without respond decision", contractx.ErrValidation)
	}
	in.Reply = in.Decision.Text
	in.AgentType = contractx.AgentTypeRouter
	in.Response = contractx.AgentResponse{
		AssistantReply: in.Decision.Text,
		Intent:         contractx.AgentTypeRouter,
		Ops:            []contractx.Operation{},
	}
	return in, nil
}
