package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
	llmx "github.com/tanpawarit/Chative-Agent-Router/agent/llm"
)

// LocalFunc runs in-process; the returned value is sent back to the model as JSON.
type LocalFunc func(ctx context.Context, args map[string]any) (any, error)

// Tenant keys are never taken from the model; they are injected from the turn.
var tenantKeys = []string{
	"company_id", "p_company_id",
	"contact_id", "p_contact_id",
	"user_id", "p_user_id",
	"tenant_id", "p_tenant_id",
}

const (
	injectedCompanyKey = "p_company_id"
	injectedContactKey = "p_contact_id"
)

type DispatcherOption func(*Dispatcher)

func WithLocalTool(decl llmx.FunctionDecl, fn LocalFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if fn == nil || strings.TrimSpace(decl.Name) == "" {
			return
		}
		d.local[decl.Name] = fn
		d.decls = append(d.decls, decl)
	}
}

func WithRemoteFunctions(decls ...llmx.FunctionDecl) DispatcherOption {
	return func(d *Dispatcher) {
		for _, decl := range decls {
			if strings.TrimSpace(decl.Name) == "" {
				continue
			}
			d.remote[decl.Name] = struct{}{}
			d.decls = append(d.decls, decl)
		}
	}
}

// Dispatcher executes model function calls: local tools first, then the backend RPC bridge.
type Dispatcher struct {
	caller contractx.RemoteCaller
	local  map[string]LocalFunc
	remote map[string]struct{}
	decls  []llmx.FunctionDecl
}

// NewDispatcher registers calculate and the finance RPC catalog by default.
func NewDispatcher(caller contractx.RemoteCaller, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		caller: caller,
		local:  map[string]LocalFunc{},
		remote: map[string]struct{}{},
	}
	defaults := []DispatcherOption{
		WithLocalTool(calculateDecl, calculate),
		WithRemoteFunctions(FinanceFunctions()...),
	}
	for _, opt := range append(defaults, opts...) {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) Declarations() []llmx.FunctionDecl {
	return append([]llmx.FunctionDecl(nil), d.decls...)
}

// Dispatch never fails: errors are returned in-band as {"error": msg}.
func (d *Dispatcher) Dispatch(ctx context.Context, call llmx.FunctionCall, contactID, companyID string) map[string]any {
	logger := log.Ctx(ctx).With().
		Str("function", call.Name).
		Str("contact_id", contactID).
		Str("company_id", companyID).
		Logger()

	if fn, ok := d.local[call.Name]; ok {
		out, err := fn(ctx, call.Args)
		if err != nil {
			logger.Warn().Err(err).Msg("local tool failed")
			return errorResult(err)
		}
		return resultMap(out)
	}

	if _, ok := d.remote[call.Name]; !ok {
		logger.Warn().Msg("model requested an unknown function")
		return errorResult(fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name))
	}
	if d.caller == nil {
		return errorResult(fmt.Errorf("remote functions are unavailable"))
	}

	raw, err := d.caller.CallRPC(ctx, call.Name, TenantArgs(call.Args, contactID, companyID))
	if err != nil {
		logger.Warn().Err(err).Msg("remote function failed")
		return errorResult(err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errorResult(fmt.Errorf("decode %s result: %w", call.Name, err))
	}
	return resultMap(decoded)
}

// TenantArgs strips tenant identifiers supplied by the model and injects the turn's own.
func TenantArgs(args map[string]any, contactID, companyID string) map[string]any {
	out := make(map[string]any, len(args)+2)
	for k, v := range args {
		out[k] = v
	}
	for _, k := range tenantKeys {
		delete(out, k)
	}
	out[injectedCompanyKey] = companyID
	out[injectedContactKey] = contactID
	return out
}

func errorResult(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// resultMap shapes any value as a function-result object.
func resultMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case nil:
		return map[string]any{"result": nil}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"result": fmt.Sprint(v)}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err == nil && m != nil {
		return m
	}
	var generic any
	_ = json.Unmarshal(b, &generic)
	return map[string]any{"result": generic}
}
