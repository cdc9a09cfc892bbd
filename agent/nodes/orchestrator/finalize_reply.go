package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}
	resp := in.Response
	resp.AssistantReply = reply
	if resp.Ops == nil {
		resp.Ops = []contractx.Operation{}
	}
	return GraphOutput{
		Reply:       reply,
		AgentType:   in.AgentType,
		Reason:      in.Decision.Reason,
		Fallback:    in.Response.Fallback,
		ToolResults: in.ToolResults,
		Response:    resp,
	}, nil
}
