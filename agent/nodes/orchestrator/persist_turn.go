package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// PersistTurn appends the exchange. A failure aborts the turn.
func PersistTurn(
	ctx context.Context,
	in *GraphState,
	turns contractx.TurnStore,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	if err := turns.AppendTurn(ctx, turnRecord(in)); err != nil {
		return nil, err
	}
	return in, nil
}

func turnRecord(in *GraphState) contractx.TurnRecord {
	meta := map[string]any{}
	if in.AgentType != contractx.AgentTypeRouter {
		meta = in.Response.Metadata()
	}
	meta["reason"] = in.Decision.Reason
	if len(in.ToolResults) > 0 {
		meta["tool_results"] = in.ToolResults
	}
	if in.HasAttachment() {
		attachment := map[string]any{}
		if in.In.Media != nil {
			attachment["kind"] = in.In.Media.Kind()
			attachment["mime"] = in.In.Media.MIMEType
		}
		if in.In.MediaURL != "" {
			attachment["url"] = in.In.MediaURL
		}
		if ex := in.Extraction; ex != nil {
			attachment["extraction"] = ex.Extraction
			if ex.Transcript != "" {
				attachment["transcript"] = ex.Transcript
			}
			if ex.IntentHint != "" {
				attachment["intent_hint"] = ex.IntentHint
			}
		}
		meta["attachment"] = attachment
	}

	return contractx.TurnRecord{
		ContactID:      in.In.ContactID,
		CompanyID:      in.In.CompanyID,
		UserMessage:    in.In.Message,
		AssistantReply: in.Reply,
		AgentType:      in.AgentType,
		Metadata:       meta,
		CreatedAt:      in.Now,
	}
}
