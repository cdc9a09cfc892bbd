package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	payload []byte
	err     error
	calls   int
}

func (f *fakeSource) FetchSnapshot(ctx context.Context, contactID, companyID string) ([]byte, error) {
	f.calls++
	return f.payload, f.err
}

type fakeHints struct {
	hint    string
	loadErr error
}

func (f *fakeHints) LoadHint(ctx context.Context, contactID string) (string, error) {
	if f.loadErr != nil {
		return "", f.loadErr
	}
	return f.hint, nil
}

func (f *fakeHints) SaveHint(ctx context.Context, contactID string, hint string) error {
	f.hint = hint
	return nil
}

func (f *fakeHints) ClearHint(ctx context.Context, contactID string) error {
	f.hint = ""
	return nil
}

const samplePayload = `{
	"contact": {"id": "c1", "name": "Ana María López"},
	"userProfile": {"completion": 140, "facts": {"city": "Lima"}},
	"company": {"id": "co1", "name": "Acme"},
	"recentHistory": [
		{"role": "user", "content": "hola"},
		{"role": "model", "content": "¡Hola!"},
		{"role": "assistant", "content": "   "},
		{"role": "assistant", "content": "¿Cómo va tu meta?"}
	],
	"agentHint": " Goals "
}`

func TestLoaderFetchContextDecodesPayload(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	loader, err := NewLoader(&fakeSource{payload: []byte(samplePayload)}, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	snap, err := loader.FetchContext(context.Background(), "c1", "co1")
	if err != nil {
		t.Fatalf("FetchContext() error = %v", err)
	}
	if snap.Completion() != 100 {
		t.Fatalf("Completion() = %d, want clamp to 100", snap.Completion())
	}
	if snap.DisplayName() != "Ana" {
		t.Fatalf("DisplayName() = %q, want Ana", snap.DisplayName())
	}
	if snap.Hint() != "goals" {
		t.Fatalf("Hint() = %q, want goals", snap.Hint())
	}
	if len(snap.RecentHistory) != 3 {
		t.Fatalf("expected blank history entries dropped, got %#v", snap.RecentHistory)
	}
	if snap.RecentHistory[1].Role != RoleAssistant {
		t.Fatalf("model role must normalize to assistant, got %q", snap.RecentHistory[1].Role)
	}
	if !snap.FetchedAt.Equal(now) {
		t.Fatalf("FetchedAt = %v, want %v", snap.FetchedAt, now)
	}
}

func TestLoaderFetchContextEmptyPayload(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(&fakeSource{payload: []byte("null")})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	snap, err := loader.FetchContext(context.Background(), "c1", "co1")
	if err != nil {
		t.Fatalf("FetchContext() error = %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if snap.Completion() != 0 || snap.Hint() != "" {
		t.Fatalf("unexpected empty snapshot: %#v", snap)
	}
}

func TestLoaderFetchContextBackendErrorIsFatal(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(&fakeSource{err: errors.New("connection refused")})
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	_, err = loader.FetchContext(context.Background(), "c1", "co1")
	if !errors.Is(err, ErrContextFetch) {
		t.Fatalf("FetchContext() error = %v, want ErrContextFetch", err)
	}
}

func TestLoaderFetchContextRequiresIDs(t *testing.T) {
	t.Parallel()

	source := &fakeSource{payload: []byte(samplePayload)}
	loader, err := NewLoader(source)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, err := loader.FetchContext(context.Background(), " ", "co1"); !errors.Is(err, ErrInvalidContact) {
		t.Fatalf("expected ErrInvalidContact, got %v", err)
	}
	if _, err := loader.FetchContext(context.Background(), "c1", ""); !errors.Is(err, ErrInvalidCompany) {
		t.Fatalf("expected ErrInvalidCompany, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("source must not be called for invalid ids, calls=%d", source.calls)
	}
}

func TestLoaderHintStoreOverridesBackendHint(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(
		&fakeSource{payload: []byte(samplePayload)},
		WithHintStore(&fakeHints{hint: "finance"}),
	)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	snap, err := loader.FetchContext(context.Background(), "c1", "co1")
	if err != nil {
		t.Fatalf("FetchContext() error = %v", err)
	}
	if snap.Hint() != "finance" {
		t.Fatalf("Hint() = %q, want finance", snap.Hint())
	}
}

func TestLoaderHintStoreFailureKeepsBackendHint(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(
		&fakeSource{payload: []byte(samplePayload)},
		WithHintStore(&fakeHints{loadErr: errors.New("timeout")}),
	)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	snap, err := loader.FetchContext(context.Background(), "c1", "co1")
	if err != nil {
		t.Fatalf("FetchContext() error = %v", err)
	}
	if snap.Hint() != "goals" {
		t.Fatalf("Hint() = %q, want backend hint goals", snap.Hint())
	}
}

func TestLoaderHistoryLimit(t *testing.T) {
	t.Parallel()

	loader, err := NewLoader(&fakeSource{payload: []byte(samplePayload)}, WithHistoryLimit(1))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	snap, err := loader.FetchContext(context.Background(), "c1", "co1")
	if err != nil {
		t.Fatalf("FetchContext() error = %v", err)
	}
	if len(snap.RecentHistory) != 1 || snap.RecentHistory[0].Content != "¿Cómo va tu meta?" {
		t.Fatalf("expected newest entry only, got %#v", snap.RecentHistory)
	}
}
