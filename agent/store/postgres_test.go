package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

func TestBuildRPCQueryNamedArgs(t *testing.T) {
	t.Parallel()

	query, args, err := buildRPCQuery("get_monthly_summary", map[string]any{
		"p_month":   "2024-05",
		"p_company": "co1",
		"p_filters": map[string]any{"category": "food"},
	})
	if err != nil {
		t.Fatalf("buildRPCQuery() error = %v", err)
	}
	if !strings.Contains(query, "FROM ?(? => ?, ? => ?, ? => ?) AS r") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 7 {
		t.Fatalf("expected 7 args, got %d", len(args))
	}
	if args[0] != bun.Ident("get_monthly_summary") {
		t.Fatalf("first arg must be the function ident, got %#v", args[0])
	}
	// keys are sorted: p_company, p_filters, p_month
	if args[1] != bun.Ident("p_company") || args[3] != bun.Ident("p_filters") || args[5] != bun.Ident("p_month") {
		t.Fatalf("unexpected arg order: %#v", args)
	}
	if args[4] != `{"category":"food"}` {
		t.Fatalf("composite values must be json text, got %#v", args[4])
	}
}

func TestBuildRPCQueryRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "drop table x", "Fn", "fn;--", "pg_catalog.fn"} {
		if _, _, err := buildRPCQuery(name, nil); !errors.Is(err, contractx.ErrInvalidRemoteMethod) {
			t.Fatalf("name %q: expected ErrInvalidRemoteMethod, got %v", name, err)
		}
	}
	if _, _, err := buildRPCQuery("ok_fn", map[string]any{"bad key": 1}); !errors.Is(err, contractx.ErrInvalidRemoteMethod) {
		t.Fatalf("expected invalid argument name to be rejected, got %v", err)
	}
}

func TestUnwrapRPCResult(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: `[]`, want: `null`},
		{raw: `[{"total":50}]`, want: `{"total":50}`},
		{raw: `[1,2]`, want: `[1,2]`},
		{raw: `{"x":1}`, want: `{"x":1}`},
	}
	for _, tc := range cases {
		if got := string(unwrapRPCResult(json.RawMessage(tc.raw))); got != tc.want {
			t.Fatalf("unwrap(%s) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestContactFieldsKeepsOnlyPresentIdentityFields(t *testing.T) {
	t.Parallel()

	got := contactFields(map[string]string{
		"email":   " ana@example.com ",
		"name":    "Ana",
		"phone":   "   ",
		"address": "ignored",
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %#v", got)
	}
	if got[0] != [2]string{"name", "Ana"} || got[1] != [2]string{"email", "ana@example.com"} {
		t.Fatalf("unexpected fields: %#v", got)
	}
	if len(contactFields(nil)) != 0 {
		t.Fatal("nil fields must produce no update")
	}
}

func TestTurnRowDefaults(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &PostgresStore{
		now:   func() time.Time { return fixed },
		newID: func() string { return "turn-1" },
	}

	row := s.turnRow(contractx.TurnRecord{
		ContactID:      "c1",
		CompanyID:      "co1",
		UserMessage:    "hola",
		AssistantReply: "¡Hola!",
		AgentType:      contractx.AgentTypeRouter,
	})
	if row.ID != "turn-1" || !row.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected defaults: %#v", row)
	}
	if row.AgentType != "router" || row.Metadata == nil {
		t.Fatalf("unexpected row: %#v", row)
	}
}
