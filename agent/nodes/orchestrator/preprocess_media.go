package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, rawURL string) (contractx.Media, []byte, error)
}

// PreprocessMedia extracts the attachment of the turn. Every failure is absorbed; the turn
// continues with the text alone.
func PreprocessMedia(
	ctx context.Context,
	in *GraphState,
	pre contractx.Preprocessor,
	fetcher AttachmentFetcher,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if !in.HasAttachment() || pre == nil {
		return in, nil
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	logger := log.Ctx(ctx).With().Str("contact_id", in.In.ContactID).Logger()

	media := in.In.Media
	var data []byte
	if media == nil {
		if fetcher == nil {
			return in, nil
		}
		fetched, raw, err := fetcher.FetchAttachment(ctx, in.In.MediaURL)
		if err != nil {
			logger.Warn().Err(err).Msg("attachment fetch failed, skipping preprocessing")
			return in, nil
		}
		// The fetched bytes serve the current turn only.
		in.In.Media = &fetched
		media, data = &fetched, raw
	} else {
		decoded, err := media.Decode()
		if err != nil {
			logger.Warn().Err(err).Msg("undecodable attachment, skipping preprocessing")
			in.In.Media = nil
			return in, nil
		}
		data = decoded
	}

	res, err := pre.Process(ctx, media.Kind(), data, media.MIMEType)
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(media.Kind())).Msg("media preprocessing failed")
		return in, nil
	}
	in.Extraction = &res
	return in, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
