package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// RetryingChatModel applies the overload retry policy to an eino chat model.
type RetryingChatModel struct {
	inner einomodel.BaseChatModel
	retry RetryConfig
	label string
}

func NewRetryingChatModel(inner einomodel.BaseChatModel, retry RetryConfig, label string) *RetryingChatModel {
	return &RetryingChatModel{inner: inner, retry: retry, label: label}
}

func (m *RetryingChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return Retry(ctx, m.retry, m.label, func(ctx context.Context) (*schema.Message, error) {
		return m.inner.Generate(ctx, input, opts...)
	})
}

// Stream is passed through; a partially consumed stream cannot be replayed.
func (m *RetryingChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, input, opts...)
}

var _ einomodel.BaseChatModel = (*RetryingChatModel)(nil)

// UsageFromMessage reads token usage from an eino response message.
func UsageFromMessage(msg *schema.Message, provider, model string) *contractx.Usage {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return nil
	}
	return &contractx.Usage{
		Provider:     provider,
		Model:        model,
		InputTokens:  int64(msg.ResponseMeta.Usage.PromptTokens),
		OutputTokens: int64(msg.ResponseMeta.Usage.CompletionTokens),
	}
}

// ToSchemaMessages converts shared messages into eino messages. Binary parts are not carried.
func ToSchemaMessages(system string, messages []Message) ([]*schema.Message, error) {
	out := make([]*schema.Message, 0, len(messages)+1)
	if system != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for i, m := range messages {
		text := m.Text()
		switch m.Role {
		case RoleUser:
			out = append(out, schema.UserMessage(text))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(text, nil))
		default:
			return nil, fmt.Errorf("%w: message %d has unsupported role %q", contractx.ErrValidation, i, m.Role)
		}
	}
	return out, nil
}
