package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message and attachment are both empty")
	ErrInvalidContact = errors.New("contact id is empty")
	ErrInvalidCompany = errors.New("company id is empty")
)

type GraphInput struct {
	ContactID   string
	CompanyID   string
	Message     string
	Media       *contractx.Media
	MediaURL    string
	ForcedAgent string
}

// GraphOutput is what the caller of a turn gets back. Response is the full agent response;
// direct router replies carry an empty ops list and no agent metadata.
type GraphOutput struct {
	Reply       string
	AgentType   contractx.AgentType
	Reason      string
	Fallback    bool
	ToolResults []contractx.ToolResult
	Response    contractx.AgentResponse
}

// GraphState is the turn-local value threaded through the orchestrator graph.
type GraphState struct {
	In  GraphInput
	Now time.Time

	Extraction *contractx.MediaResult
	Snapshot   *statex.Snapshot
	Decision   contractx.Decision

	Response    contractx.AgentResponse
	ToolResults []contractx.ToolResult

	Reply     string
	AgentType contractx.AgentType
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	in.ContactID = strings.TrimSpace(in.ContactID)
	if in.ContactID == "" {
		return nil, ErrInvalidContact
	}
	in.CompanyID = strings.TrimSpace(in.CompanyID)
	if in.CompanyID == "" {
		return nil, ErrInvalidCompany
	}

	in.Message = strings.TrimSpace(in.Message)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	if in.Media != nil && strings.TrimSpace(in.Media.Base64) == "" {
		in.Media = nil
	}
	if in.Message == "" && in.Media == nil && in.MediaURL == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		In:  in,
		Now: nowFn().UTC(),
	}, nil
}

// HasAttachment reports whether the turn carries inline media or a media URL.
func (s *GraphState) HasAttachment() bool {
	return s.In.Media != nil || s.In.MediaURL != ""
}

// AgentRequest is the request handed to the selected specialist.
func (s *GraphState) AgentRequest() contractx.AgentRequest {
	return contractx.AgentRequest{
		ContactID:  s.In.ContactID,
		CompanyID:  s.In.CompanyID,
		Message:    s.In.Message,
		Snapshot:   s.Snapshot,
		Media:      s.In.Media,
		MediaURL:   s.In.MediaURL,
		Extraction: s.Extraction,
	}
}
