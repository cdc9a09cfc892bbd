package llm

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

type fakeProvider struct {
	name  string
	resp  Response
	err   error
	calls int
	last  Request
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.name + "-model" }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return Response{}, f.err
	}
	return f.resp, nil
}

func TestChainFallsBackToNextProvider(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "primary", err: errors.New("invalid api key")}
	secondary := &fakeProvider{name: "secondary", resp: Response{Text: "hola"}}

	chain, err := NewChain(fastRetry, primary, secondary)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	req := Request{SystemPrompt: "sys", Messages: []Message{UserText("hola")}}
	resp, err := chain.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "hola" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("unexpected calls primary=%d secondary=%d", primary.calls, secondary.calls)
	}
	if secondary.last.SystemPrompt != "sys" || len(secondary.last.Messages) != 1 {
		t.Fatalf("request not replayed: %#v", secondary.last)
	}
}

func TestChainAllProvidersFailed(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "primary", err: errors.New("overloaded")}
	secondary := &fakeProvider{name: "secondary", err: errors.New("boom")}

	chain, err := NewChain(fastRetry, primary, secondary)
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	_, err = chain.Generate(context.Background(), Request{Messages: []Message{UserText("x")}})
	if !errors.Is(err, contractx.ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
	if !errors.Is(err, contractx.ErrProviderOverloaded) {
		t.Fatalf("expected overload cause to be kept, got %v", err)
	}
	if primary.calls != int(fastRetry.MaxAttempts) {
		t.Fatalf("primary should be retried %d times, got %d", fastRetry.MaxAttempts, primary.calls)
	}
}

func TestNewChainRequiresProvider(t *testing.T) {
	t.Parallel()

	if _, err := NewChain(fastRetry, nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
