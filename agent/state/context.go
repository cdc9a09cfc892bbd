package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrContextFetch = errors.New("context fetch failed")

const defaultHistoryLimit = 12

// SnapshotSource returns the raw context payload for a contact+tenant pair in one backend call.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, contactID, companyID string) ([]byte, error)
}

type LoaderOption func(*Loader)

func WithHintStore(hints HintStore) LoaderOption {
	return func(l *Loader) {
		l.hints = hints
	}
}

func WithHistoryLimit(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// Loader builds a fresh Snapshot per turn. Backend failures are fatal to the turn;
// hint-store failures are logged and the backend hint is kept.
type Loader struct {
	source       SnapshotSource
	hints        HintStore
	historyLimit int
	now          func() time.Time
}

func NewLoader(source SnapshotSource, opts ...LoaderOption) (*Loader, error) {
	if source == nil {
		return nil, errors.New("snapshot source is required")
	}
	l := &Loader{
		source:       source,
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

func (l *Loader) FetchContext(ctx context.Context, contactID, companyID string) (*Snapshot, error) {
	contactID = strings.TrimSpace(contactID)
	companyID = strings.TrimSpace(companyID)
	if contactID == "" {
		return nil, ErrInvalidContact
	}
	if companyID == "" {
		return nil, ErrInvalidCompany
	}

	payload, err := l.source.FetchSnapshot(ctx, contactID, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w: contact=%s company=%s: %v", ErrContextFetch, contactID, companyID, err)
	}

	now := l.now()
	var snap *Snapshot
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		snap = Empty(contactID, companyID, now)
	} else {
		snap, err = Decode(payload, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextFetch, err)
		}
	}

	if snap.Contact.ID == "" {
		snap.Contact.ID = contactID
	}
	if snap.Company.ID == "" {
		snap.Company.ID = companyID
	}
	snap.RecentHistory = snap.LastHistory(l.historyLimit)

	if l.hints != nil {
		hint, err := l.hints.LoadHint(ctx, contactID)
		switch {
		case err == nil:
			snap.AgentHint = hint
		case errors.Is(err, ErrHintNotFound):
		default:
			log.Warn().Err(err).Str("contact_id", contactID).Msg("load agent hint failed; using backend hint")
		}
	}

	return snap, nil
}
