package llm

import (
	"strings"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

// ImagePlaceholder stands in for images of past turns; only the current turn carries bytes.
const ImagePlaceholder = "[imagen]"

// HistoryMessages replays snapshot history oldest first with roles normalized.
func HistoryMessages(entries []statex.HistoryEntry) []Message {
	out := make([]Message, 0, len(entries))
	for _, h := range entries {
		text := strings.TrimSpace(h.Content)
		if h.HasImage {
			text = strings.TrimSpace(ImagePlaceholder + " " + text)
		}
		if text == "" {
			continue
		}
		if h.Role == statex.RoleAssistant {
			out = append(out, AssistantText(text))
			continue
		}
		out = append(out, UserText(text))
	}
	return out
}

// TurnText is the text of the current user turn: the message plus the attachment summary.
// A turn carrying only an image reads as the placeholder.
func TurnText(message string, extraction *contractx.MediaResult, hasImage bool) string {
	text := strings.TrimSpace(message)
	if extraction != nil {
		if summary := extraction.Summary(); summary != "" {
			text = strings.TrimSpace(text + "\n[adjunto] " + summary)
		}
	}
	if text == "" && hasImage {
		text = ImagePlaceholder
	}
	return text
}
