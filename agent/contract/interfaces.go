package contract

import (
	"context"
	"encoding/json"

	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

type Agent interface {
	Execute(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Registry interface {
	Agent(agentType AgentType) (Agent, error)
}

type Router interface {
	Decide(message string, snapshot *statex.Snapshot) Decision
}

type Preprocessor interface {
	Process(ctx context.Context, kind MediaKind, data []byte, mimeType string) (MediaResult, error)
}

type ContextStore interface {
	FetchContext(ctx context.Context, contactID, companyID string) (*statex.Snapshot, error)
}

type ToolExecutor interface {
	Execute(ctx context.Context, ops []Operation, contactID, companyID string) []ToolResult
}

type TurnStore interface {
	AppendTurn(ctx context.Context, rec TurnRecord) error
}

type TelemetrySink interface {
	RecordUsage(ctx context.Context, rec TelemetryRecord) error
}

// ContactStore applies narrow identity-field updates to the live contact record.
type ContactStore interface {
	UpdateContact(ctx context.Context, contactID, companyID string, fields map[string]string) error
}

// RemoteCaller invokes a named backend procedure with keyword arguments.
type RemoteCaller interface {
	CallRPC(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
}

// MemoryStore upserts profile facts into the semantic memory store.
type MemoryStore interface {
	UpsertFacts(ctx context.Context, contactID, companyID string, facts map[string]any) error
}
