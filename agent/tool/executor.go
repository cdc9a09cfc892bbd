package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// HintWriter is the write side of the sticky agent hint store.
type HintWriter interface {
	SaveHint(ctx context.Context, contactID string, hint string) error
	ClearHint(ctx context.Context, contactID string) error
}

var identityFields = []string{"name", "email", "phone"}

// Executor applies agent-requested operations. It is the only writer of contact, memory
// and hint state. Operations run sequentially with no rollback; each is safe to replay.
type Executor struct {
	contacts contractx.ContactStore
	memory   contractx.MemoryStore
	hints    HintWriter
}

func NewExecutor(contacts contractx.ContactStore, memory contractx.MemoryStore, hints HintWriter) *Executor {
	return &Executor{contacts: contacts, memory: memory, hints: hints}
}

func (e *Executor) Execute(ctx context.Context, ops []contractx.Operation, contactID, companyID string) []contractx.ToolResult {
	results := make([]contractx.ToolResult, 0, len(ops))
	for _, op := range ops {
		logger := log.Ctx(ctx).With().
			Str("path", string(op.Path)).
			Str("contact_id", contactID).
			Str("company_id", companyID).
			Logger()

		if !strings.EqualFold(strings.TrimSpace(op.Kind), contractx.OperationCall) {
			logger.Warn().Str("kind", op.Kind).Msg("skipping operation with unsupported kind")
			continue
		}

		var res contractx.ToolResult
		switch op.Path {
		case contractx.ToolUpdateUserContext:
			res = e.updateUserContext(ctx, op.Args, contactID, companyID)
		case contractx.ToolSetAgentHint:
			res = e.setAgentHint(ctx, op.Args, contactID)
		default:
			logger.Warn().Msg("skipping operation with unknown path")
			continue
		}

		if res.Error != "" {
			logger.Warn().Str("error", res.Error).Msg("operation failed")
		} else {
			logger.Debug().Msg("operation applied")
		}
		results = append(results, res)
	}
	return results
}

// updateUserContext performs two independent writes: identity fields on the contact and
// every other argument as a profile fact.
func (e *Executor) updateUserContext(ctx context.Context, args map[string]any, contactID, companyID string) contractx.ToolResult {
	res := contractx.ToolResult{Tool: string(contractx.ToolUpdateUserContext)}
	fields, facts := splitUserContext(args)
	out := map[string]any{"contact_updated": false, "facts_upserted": 0}
	var errs []error

	if len(fields) > 0 {
		switch {
		case e.contacts == nil:
			errs = append(errs, errors.New("contact store unavailable"))
		default:
			if err := e.contacts.UpdateContact(ctx, contactID, companyID, fields); err != nil {
				errs = append(errs, fmt.Errorf("contact update: %w", err))
			} else {
				out["contact_updated"] = true
			}
		}
	}

	if len(facts) > 0 {
		switch {
		case e.memory == nil:
			errs = append(errs, errors.New("memory store unavailable"))
		default:
			if err := e.memory.UpsertFacts(ctx, contactID, companyID, facts); err != nil {
				errs = append(errs, fmt.Errorf("memory upsert: %w", err))
			} else {
				out["facts_upserted"] = len(facts)
			}
		}
	}

	res.Result = out
	if err := errors.Join(errs...); err != nil {
		res.Error = err.Error()
	}
	return res
}

func splitUserContext(args map[string]any) (map[string]string, map[string]any) {
	fields := map[string]string{}
	facts := map[string]any{}

	for _, k := range identityFields {
		if s, ok := args[k].(string); ok && strings.TrimSpace(s) != "" {
			fields[k] = strings.TrimSpace(s)
		}
	}
	if nested, ok := args["facts"].(map[string]any); ok {
		for k, v := range nested {
			facts[k] = v
		}
	}
	for k, v := range args {
		if k == "facts" || isIdentityField(k) || v == nil {
			continue
		}
		facts[k] = v
	}
	return fields, facts
}

func isIdentityField(k string) bool {
	for _, f := range identityFields {
		if f == k {
			return true
		}
	}
	return false
}

func (e *Executor) setAgentHint(ctx context.Context, args map[string]any, contactID string) contractx.ToolResult {
	res := contractx.ToolResult{Tool: string(contractx.ToolSetAgentHint)}
	if e.hints == nil {
		res.Error = "hint store unavailable"
		return res
	}

	raw, _ := args["agent"].(string)
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(contractx.AgentTypeDefault) {
		if err := e.hints.ClearHint(ctx, contactID); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Result = map[string]any{"agent": string(contractx.AgentTypeDefault)}
		return res
	}

	agent, ok := contractx.ParseAgentType(raw)
	if !ok {
		res.Error = fmt.Sprintf("%v: %q", contractx.ErrUnsupportedAgent, raw)
		return res
	}
	if err := e.hints.SaveHint(ctx, contactID, string(agent)); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Result = map[string]any{"agent": string(agent)}
	return res
}

var _ contractx.ToolExecutor = (*Executor)(nil)
