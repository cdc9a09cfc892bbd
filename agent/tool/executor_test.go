package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

type fakeContacts struct {
	calls  int
	fields map[string]string
	err    error
}

func (f *fakeContacts) UpdateContact(ctx context.Context, contactID, companyID string, fields map[string]string) error {
	f.calls++
	f.fields = fields
	return f.err
}

type fakeMemory struct {
	calls int
	facts map[string]any
	err   error
}

func (f *fakeMemory) UpsertFacts(ctx context.Context, contactID, companyID string, facts map[string]any) error {
	f.calls++
	f.facts = facts
	return f.err
}

type fakeHintWriter struct {
	saved   string
	cleared int
}

func (f *fakeHintWriter) SaveHint(ctx context.Context, contactID string, hint string) error {
	f.saved = hint
	return nil
}

func (f *fakeHintWriter) ClearHint(ctx context.Context, contactID string) error {
	f.cleared++
	return nil
}

func updateOp() contractx.Operation {
	return contractx.Operation{
		Kind: contractx.OperationCall,
		Path: contractx.ToolUpdateUserContext,
		Args: map[string]any{
			"name":       "Ana",
			"email":      "ana@example.com",
			"occupation": "diseñadora",
			"facts":      map[string]any{"has_business": true},
		},
	}
}

func TestExecuteUpdateUserContextIsIdempotent(t *testing.T) {
	t.Parallel()

	contacts := &fakeContacts{}
	memory := &fakeMemory{}
	exec := NewExecutor(contacts, memory, nil)

	first := exec.Execute(context.Background(), []contractx.Operation{updateOp()}, "c1", "co1")
	second := exec.Execute(context.Background(), []contractx.Operation{updateOp()}, "c1", "co1")

	if len(first) != 1 || len(second) != 1 || first[0].Error != "" || second[0].Error != "" {
		t.Fatalf("unexpected results: %#v %#v", first, second)
	}
	if contacts.calls != 2 || memory.calls != 2 {
		t.Fatalf("each replay must issue the same upserts, got contacts=%d memory=%d", contacts.calls, memory.calls)
	}
	if len(contacts.fields) != 2 || contacts.fields["name"] != "Ana" {
		t.Fatalf("unexpected contact fields: %#v", contacts.fields)
	}
	if _, ok := contacts.fields["phone"]; ok {
		t.Fatal("absent fields must not be written")
	}
	if memory.facts["occupation"] != "diseñadora" || memory.facts["has_business"] != true {
		t.Fatalf("unexpected facts: %#v", memory.facts)
	}
	if _, ok := memory.facts["email"]; ok {
		t.Fatal("identity fields must not be stored as facts")
	}
}

func TestExecuteUpdateUserContextWritesAreIndependent(t *testing.T) {
	t.Parallel()

	contacts := &fakeContacts{err: errors.New("contacts down")}
	memory := &fakeMemory{}
	res := NewExecutor(contacts, memory, nil).Execute(context.Background(), []contractx.Operation{updateOp()}, "c1", "co1")

	if len(res) != 1 || res[0].Error == "" {
		t.Fatalf("expected error to be reported, got %#v", res)
	}
	if memory.calls != 1 {
		t.Fatal("memory upsert must run even when the contact update fails")
	}
	out, _ := res[0].Result.(map[string]any)
	if out["contact_updated"] != false || out["facts_upserted"] != 2 {
		t.Fatalf("unexpected result: %#v", out)
	}
}

func TestExecuteSkipsUnknownPathAndKind(t *testing.T) {
	t.Parallel()

	contacts := &fakeContacts{}
	res := NewExecutor(contacts, &fakeMemory{}, nil).Execute(context.Background(), []contractx.Operation{
		{Kind: contractx.OperationCall, Path: "delete_account"},
		{Kind: "query", Path: contractx.ToolUpdateUserContext, Args: map[string]any{"name": "X"}},
	}, "c1", "co1")

	if len(res) != 0 {
		t.Fatalf("expected all ops skipped, got %#v", res)
	}
	if contacts.calls != 0 {
		t.Fatal("skipped ops must not write")
	}
}

func TestExecuteSetAgentHint(t *testing.T) {
	t.Parallel()

	hints := &fakeHintWriter{}
	exec := NewExecutor(nil, nil, hints)

	res := exec.Execute(context.Background(), []contractx.Operation{
		{Kind: "call", Path: contractx.ToolSetAgentHint, Args: map[string]any{"agent": "Goals"}},
		{Kind: "call", Path: contractx.ToolSetAgentHint, Args: map[string]any{"agent": "default"}},
		{Kind: "call", Path: contractx.ToolSetAgentHint, Args: map[string]any{"agent": "router"}},
	}, "c1", "co1")

	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if hints.saved != "goals" || hints.cleared != 1 {
		t.Fatalf("unexpected hint writes: saved=%q cleared=%d", hints.saved, hints.cleared)
	}
	if res[2].Error == "" {
		t.Fatal("non-specialist hint must be rejected")
	}
}
