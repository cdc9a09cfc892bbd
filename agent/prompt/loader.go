package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// ContextPlaceholder is replaced with the turn context JSON by Render.
const ContextPlaceholder = "{context}"

var (
	//go:embed template/onboarding.txt
	onboardingRaw string

	//go:embed template/goals.txt
	goalsRaw string

	//go:embed template/business.txt
	businessRaw string

	//go:embed template/finance.txt
	financeRaw string

	//go:embed template/media_image.txt
	mediaImageRaw string

	//go:embed template/media_audio.txt
	mediaAudioRaw string

	//go:embed template/media_document.txt
	mediaDocumentRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Onboarding string
	Goals      string
	Business   string
	Finance    string

	MediaImage    string
	MediaAudio    string
	MediaDocument string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Onboarding:    strings.TrimSpace(onboardingRaw),
		Goals:         strings.TrimSpace(goalsRaw),
		Business:      strings.TrimSpace(businessRaw),
		Finance:       strings.TrimSpace(financeRaw),
		MediaImage:    strings.TrimSpace(mediaImageRaw),
		MediaAudio:    strings.TrimSpace(mediaAudioRaw),
		MediaDocument: strings.TrimSpace(mediaDocumentRaw),
	}
}

func (p PromptSet) ForAgent(agentType contractx.AgentType) (string, error) {
	var out string
	switch agentType {
	case contractx.AgentTypeOnboarding:
		out = p.Onboarding
	case contractx.AgentTypeGoals:
		out = p.Goals
	case contractx.AgentTypeBusiness:
		out = p.Business
	case contractx.AgentTypeFinance:
		out = p.Finance
	default:
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrUnsupportedAgent, agentType)
	}
	if out == "" {
		return "", fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agentType)
	}
	return out, nil
}

func (p PromptSet) ForMedia(kind contractx.MediaKind) (string, error) {
	var out string
	switch kind {
	case contractx.MediaImage:
		out = p.MediaImage
	case contractx.MediaAudio:
		out = p.MediaAudio
	default:
		out = p.MediaDocument
	}
	if out == "" {
		return "", fmt.Errorf("%w: media=%s", contractx.ErrPromptMissing, kind)
	}
	return out, nil
}

// Render substitutes the context placeholder. Plain replacement keeps JSON braces intact.
func Render(template, contextJSON string) string {
	return strings.ReplaceAll(template, ContextPlaceholder, contextJSON)
}
