package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

const (
	contextRPC = "get_agent_context"
	memoryRPC  = "upsert_user_memory"

	contactsTable = "contacts"
)

// Identity columns the contact update may touch.
var contactColumns = []string{"name", "email", "phone"}

var rpcNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type Option func(*PostgresStore)

func WithClock(now func() time.Time) Option {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *PostgresStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// PostgresStore is the relational + RPC backend of the router.
type PostgresStore struct {
	db    bun.IDB
	now   func() time.Time
	newID func() string
}

func NewPostgresStore(db bun.IDB, opts ...Option) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres store requires a database")
	}
	s := &PostgresStore{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// FetchSnapshot returns the raw get_agent_context payload; nil when the backend has nothing.
func (s *PostgresStore) FetchSnapshot(ctx context.Context, contactID, companyID string) ([]byte, error) {
	var raw sql.NullString
	err := s.db.NewRaw(
		"SELECT ?(p_contact_id => ?, p_company_id => ?)::text",
		bun.Ident(contextRPC), contactID, companyID,
	).Scan(ctx, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", contextRPC, err)
	}
	if !raw.Valid {
		return nil, nil
	}
	return []byte(raw.String), nil
}

// CallRPC invokes a stored function with named arguments and returns its rows as JSON.
// Single-row results are unwrapped to the row value.
func (s *PostgresStore) CallRPC(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	query, qargs, err := buildRPCQuery(name, args)
	if err != nil {
		return nil, err
	}

	var raw string
	if err := s.db.NewRaw(query, qargs...).Scan(ctx, &raw); err != nil {
		return nil, fmt.Errorf("rpc %s: %w", name, err)
	}
	return unwrapRPCResult(json.RawMessage(raw)), nil
}

func buildRPCQuery(name string, args map[string]any) (string, []any, error) {
	name = strings.TrimSpace(name)
	if !rpcNamePattern.MatchString(name) {
		return "", nil, fmt.Errorf("%w: %q", contractx.ErrInvalidRemoteMethod, name)
	}

	keys := slices.Sorted(maps.Keys(args))
	placeholders := make([]string, 0, len(keys))
	qargs := make([]any, 0, 1+2*len(keys))
	qargs = append(qargs, bun.Ident(name))
	for _, k := range keys {
		if !rpcNamePattern.MatchString(k) {
			return "", nil, fmt.Errorf("%w: argument %q", contractx.ErrInvalidRemoteMethod, k)
		}
		v, err := rpcValue(args[k])
		if err != nil {
			return "", nil, fmt.Errorf("%w: argument %s: %v", contractx.ErrValidation, k, err)
		}
		placeholders = append(placeholders, "? => ?")
		qargs = append(qargs, bun.Ident(k), v)
	}

	query := "SELECT coalesce(jsonb_agg(to_jsonb(r)), '[]'::jsonb)::text FROM ?(" +
		strings.Join(placeholders, ", ") + ") AS r"
	return query, qargs, nil
}

// Composite values travel as JSON text and are coerced by the function signature.
func rpcValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, []string, []map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func unwrapRPCResult(raw json.RawMessage) json.RawMessage {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return raw
	}
	switch len(rows) {
	case 0:
		return json.RawMessage("null")
	case 1:
		return rows[0]
	default:
		return raw
	}
}

// UpdateContact writes only the present identity fields; other keys are ignored.
func (s *PostgresStore) UpdateContact(ctx context.Context, contactID, companyID string, fields map[string]string) error {
	q := s.contactUpdate(contactID, companyID, fields)
	if q == nil {
		return nil
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("update contact %s: %w", contactID, err)
	}
	return nil
}

func (s *PostgresStore) contactUpdate(contactID, companyID string, fields map[string]string) *bun.UpdateQuery {
	cols := contactFields(fields)
	if len(cols) == 0 {
		return nil
	}
	q := s.db.NewUpdate().Table(contactsTable)
	for _, col := range cols {
		q = q.Set("? = ?", bun.Ident(col[0]), col[1])
	}
	return q.
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", contactID).
		Where("company_id = ?", companyID)
}

// contactFields keeps the non-blank identity fields as ordered column/value pairs.
func contactFields(fields map[string]string) [][2]string {
	var out [][2]string
	for _, col := range contactColumns {
		v := strings.TrimSpace(fields[col])
		if v == "" {
			continue
		}
		out = append(out, [2]string{col, v})
	}
	return out
}

func (s *PostgresStore) UpsertFacts(ctx context.Context, contactID, companyID string, facts map[string]any) error {
	if len(facts) == 0 {
		return nil
	}
	_, err := s.CallRPC(ctx, memoryRPC, map[string]any{
		"p_contact_id": contactID,
		"p_company_id": companyID,
		"p_facts":      facts,
	})
	return err
}

type turnRow struct {
	bun.BaseModel `bun:"table:conversation_turns"`

	ID             string         `bun:"id,pk"`
	ContactID      string         `bun:"contact_id"`
	CompanyID      string         `bun:"company_id"`
	UserMessage    string         `bun:"user_message"`
	AssistantReply string         `bun:"assistant_reply"`
	AgentType      string         `bun:"agent_type"`
	Metadata       map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt      time.Time      `bun:"created_at"`
}

func (s *PostgresStore) AppendTurn(ctx context.Context, rec contractx.TurnRecord) error {
	row := s.turnRow(rec)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert turn: %v", contractx.ErrPersist, err)
	}
	return nil
}

func (s *PostgresStore) turnRow(rec contractx.TurnRecord) *turnRow {
	row := &turnRow{
		ID:             rec.ID,
		ContactID:      rec.ContactID,
		CompanyID:      rec.CompanyID,
		UserMessage:    rec.UserMessage,
		AssistantReply: rec.AssistantReply,
		AgentType:      string(rec.AgentType),
		Metadata:       rec.Metadata,
		CreatedAt:      rec.CreatedAt,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now().UTC()
	}
	if row.Metadata == nil {
		row.Metadata = map[string]any{}
	}
	return row
}

type usageRow struct {
	bun.BaseModel `bun:"table:ai_usage_logs"`

	ID            string    `bun:"id,pk"`
	CompanyID     string    `bun:"company_id"`
	ContactID     string    `bun:"contact_id,nullzero"`
	AgentType     string    `bun:"agent_type"`
	Provider      string    `bun:"provider"`
	Model         string    `bun:"model"`
	InputTokens   int64     `bun:"input_tokens"`
	OutputTokens  int64     `bun:"output_tokens"`
	EstimatedCost float64   `bun:"estimated_cost"`
	LatencyMs     int64     `bun:"latency_ms"`
	Success       bool      `bun:"success"`
	Error         string    `bun:"error,nullzero"`
	CreatedAt     time.Time `bun:"created_at"`
}

func (s *PostgresStore) RecordUsage(ctx context.Context, rec contractx.TelemetryRecord) error {
	row := &usageRow{
		ID:            s.newID(),
		CompanyID:     rec.CompanyID,
		ContactID:     rec.ContactID,
		AgentType:     string(rec.AgentType),
		Provider:      rec.Provider,
		Model:         rec.Model,
		InputTokens:   rec.InputTokens,
		OutputTokens:  rec.OutputTokens,
		EstimatedCost: rec.EstimatedCost,
		LatencyMs:     rec.LatencyMs,
		Success:       rec.Success,
		Error:         rec.Error,
		CreatedAt:     rec.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now().UTC()
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

var (
	_ statex.SnapshotSource   = (*PostgresStore)(nil)
	_ contractx.RemoteCaller  = (*PostgresStore)(nil)
	_ contractx.ContactStore  = (*PostgresStore)(nil)
	_ contractx.MemoryStore   = (*PostgresStore)(nil)
	_ contractx.TurnStore     = (*PostgresStore)(nil)
	_ contractx.TelemetrySink = (*PostgresStore)(nil)
)
