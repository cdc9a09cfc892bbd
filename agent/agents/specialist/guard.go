package specialist

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// FallbackReply is the deterministic reply used when an agent cannot produce a valid one.
func FallbackReply(agentType contractx.AgentType) string {
	switch agentType {
	case contractx.AgentTypeOnboarding:
		return "¡Gracias por escribirme! Para conocerte mejor, ¿cómo te gustaría que te llame?"
	case contractx.AgentTypeGoals:
		return "Me encantaría ayudarte con tus metas. ¿Qué te gustaría lograr y para cuándo?"
	case contractx.AgentTypeBusiness:
		return "Cuéntame un poco más sobre tu negocio para poder ayudarte mejor."
	case contractx.AgentTypeFinance:
		return "No pude procesar tu movimiento en este momento. ¿Me repites el monto y la categoría?"
	default:
		return "Perdón, no pude procesar tu mensaje. ¿Puedes intentarlo de nuevo?"
	}
}

type guardedAgent struct {
	agentType contractx.AgentType
	inner     contractx.Agent
}

// Guard wraps an agent so that any error or invalid reply becomes the agent's fallback reply
// with no operations. The returned agent never fails.
func Guard(agentType contractx.AgentType, inner contractx.Agent) contractx.Agent {
	return &guardedAgent{agentType: agentType, inner: inner}
}

func (g *guardedAgent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	resp, err := g.inner.Execute(ctx, req)
	if err == nil {
		err = finalizeResponse(&resp, g.agentType)
	}
	if err == nil {
		return resp, nil
	}

	log.Ctx(ctx).Warn().
		Err(err).
		Str("agent", g.agentType.String()).
		Str("contact_id", req.ContactID).
		Msg("agent failed, using fallback reply")

	return contractx.AgentResponse{
		AssistantReply: FallbackReply(g.agentType),
		Intent:         g.agentType,
		Ops:            []contractx.Operation{},
		Usage:          resp.Usage,
		Fallback:       true,
	}, nil
}
