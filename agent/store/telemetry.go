package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	qstashx "github.com/tanpawarit/Chative-Agent-Router/pkg/qstash"
)

type usagePublisher interface {
	PublishJSON(ctx context.Context, payload any) (qstashx.PublishResponse, error)
}

// QStashSink publishes usage records to a QStash destination instead of writing them inline.
type QStashSink struct {
	publisher usagePublisher
}

func NewQStashSink(client *qstashx.Client) (*QStashSink, error) {
	if client == nil {
		return nil, errors.New("qstash sink requires a client")
	}
	return &QStashSink{publisher: client}, nil
}

func (s *QStashSink) RecordUsage(ctx context.Context, rec contractx.TelemetryRecord) error {
	resp, err := s.publisher.PublishJSON(ctx, rec)
	if err != nil {
		return fmt.Errorf("publish usage: %w", err)
	}
	log.Ctx(ctx).Debug().
		Str("message_id", resp.MessageID).
		Str("agent", string(rec.AgentType)).
		Msg("usage record published")
	return nil
}

// NopSink discards usage records.
type NopSink struct{}

func (NopSink) RecordUsage(context.Context, contractx.TelemetryRecord) error { return nil }

var (
	_ contractx.TelemetrySink = (*QStashSink)(nil)
	_ contractx.TelemetrySink = NopSink{}
)
