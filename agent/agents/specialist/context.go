package specialist

import (
	"encoding/json"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// turnContext is the JSON injected into every system prompt.
type turnContext struct {
	Today             string         `json:"today"`
	Name              string         `json:"name,omitempty"`
	Email             string         `json:"email,omitempty"`
	Phone             string         `json:"phone,omitempty"`
	ProfileCompletion int            `json:"profile_completion"`
	Facts             map[string]any `json:"facts,omitempty"`
	CompanyName       string         `json:"company_name,omitempty"`
	Industry          string         `json:"industry,omitempty"`
	ActiveAgent       string         `json:"active_agent,omitempty"`
	Attachment        map[string]any `json:"attachment,omitempty"`
}

type contextBuilder struct {
	now func() time.Time
}

func (b contextBuilder) build(req contractx.AgentRequest) (string, error) {
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	tc := turnContext{Today: now().UTC().Format(time.DateOnly)}

	if snap := req.Snapshot; snap != nil {
		tc.Name = snap.DisplayName()
		tc.Email = snap.Contact.Email
		tc.Phone = snap.Contact.Phone
		tc.ProfileCompletion = snap.Completion()
		tc.Facts = snap.Profile.Facts
		tc.CompanyName = snap.Company.Name
		tc.Industry = snap.Company.Industry
		tc.ActiveAgent = snap.Hint()
	}
	if ex := req.Extraction; ex != nil {
		tc.Attachment = map[string]any{"kind": ex.Kind}
		if len(ex.Extraction) > 0 {
			tc.Attachment["extraction"] = ex.Extraction
		}
		if ex.Transcript != "" {
			tc.Attachment["transcript"] = ex.Transcript
		}
	}

	raw, err := json.Marshal(tc)
	if err != nil {
		return "", fmt.Errorf("%w: marshal turn context: %v", contractx.ErrValidation, err)
	}
	return string(raw), nil
}
