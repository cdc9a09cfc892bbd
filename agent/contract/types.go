package contract

import (
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

type AgentType string

const (
	AgentTypeOnboarding AgentType = "onboarding"
	AgentTypeGoals      AgentType = "goals"
	AgentTypeBusiness   AgentType = "business"
	AgentTypeFinance    AgentType = "finance"

	// AgentTypeRouter tags turns answered directly by the router.
	AgentTypeRouter AgentType = "router"
	// AgentTypeDefault is the stored hint value meaning "no sticky agent".
	AgentTypeDefault AgentType = "default"
)

// AgentTypes lists the specialist agents in routing precedence order.
func AgentTypes() []AgentType {
	return []AgentType{
		AgentTypeOnboarding,
		AgentTypeGoals,
		AgentTypeBusiness,
		AgentTypeFinance,
	}
}

func (a AgentType) String() string {
	return string(a)
}

func (a AgentType) IsSpecialist() bool {
	switch a {
	case AgentTypeOnboarding, AgentTypeGoals, AgentTypeBusiness, AgentTypeFinance:
		return true
	default:
		return false
	}
}

// ParseAgentType accepts only specialist agents; router/default/unknown values report false.
func ParseAgentType(raw string) (AgentType, bool) {
	t := AgentType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsSpecialist() {
		return "", false
	}
	return t, true
}

type DecisionKind int

const (
	DecisionRespond DecisionKind = iota + 1
	DecisionRoute
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionRespond:
		return "respond"
	case DecisionRoute:
		return "route"
	default:
		return "unknown"
	}
}

// Decision is the router outcome: either a terminal reply or a target agent.
type Decision struct {
	Kind   DecisionKind
	Text   string
	Agent  AgentType
	Reason string
}

func Respond(text, reason string) Decision {
	return Decision{Kind: DecisionRespond, Text: text, Reason: reason}
}

func Route(agent AgentType, reason string) Decision {
	return Decision{Kind: DecisionRoute, Agent: agent, Reason: reason}
}

func (d Decision) IsRespond() bool {
	return d.Kind == DecisionRespond
}

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// MediaKindFor maps a declared type or MIME type onto a media kind.
func MediaKindFor(declared, mimeType string) MediaKind {
	probe := strings.ToLower(strings.TrimSpace(declared))
	if probe == "" {
		probe = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case strings.HasPrefix(probe, "image"):
		return MediaImage
	case strings.HasPrefix(probe, "audio"), probe == "voice":
		return MediaAudio
	default:
		return MediaDocument
	}
}

// Media is an inline attachment as delivered by the ingestion layer.
type Media struct {
	Type     string `json:"type"`
	MIMEType string `json:"mime"`
	Base64   string `json:"data"`
}

func (m Media) Kind() MediaKind {
	return MediaKindFor(m.Type, m.MIMEType)
}

func (m Media) Decode() ([]byte, error) {
	raw := strings.TrimSpace(m.Base64)
	if i := strings.Index(raw, ";base64,"); i >= 0 {
		raw = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode media payload: %v", ErrValidation, err)
	}
	return data, nil
}

// MediaResult is what the multimodal preprocessor extracted from an attachment.
type MediaResult struct {
	Kind       MediaKind      `json:"kind"`
	Extraction map[string]any `json:"extraction,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	IntentHint AgentType      `json:"intent_hint,omitempty"`
	Usage      *Usage         `json:"-"`
}

// Summary renders the extraction as text that can be appended to the user message.
func (r MediaResult) Summary() string {
	if t := strings.TrimSpace(r.Transcript); t != "" {
		return t
	}
	if len(r.Extraction) == 0 {
		return ""
	}
	if raw, ok := r.Extraction["text_extraction"].(string); ok && len(r.Extraction) == 1 {
		return strings.TrimSpace(raw)
	}
	parts := make([]string, 0, len(r.Extraction))
	for _, k := range sortedKeys(r.Extraction) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, r.Extraction[k]))
	}
	return strings.Join(parts, "; ")
}

const OperationCall = "call"

type ToolPath string

const (
	ToolUpdateUserContext ToolPath = "update_user_context"
	ToolSetAgentHint      ToolPath = "set_agent_hint"
)

func ToolPaths() []ToolPath {
	return []ToolPath{ToolUpdateUserContext, ToolSetAgentHint}
}

// Operation is a declarative, agent-emitted call executed only by the tool executor.
type Operation struct {
	Kind string         `json:"kind"`
	Path ToolPath       `json:"path"`
	Args map[string]any `json:"args,omitempty"`
}

type Usage struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
}

// Add accumulates token counts of multi-call turns; provider/model follow the latest call.
func (u *Usage) Add(other *Usage) {
	if u == nil || other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Latency += other.Latency
	if other.Provider != "" {
		u.Provider = other.Provider
	}
	if other.Model != "" {
		u.Model = other.Model
	}
}

type FinanceExtraction struct {
	DetectedAmount    *float64 `json:"detected_amount,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	SuggestedCategory string   `json:"suggested_category,omitempty"`
	TransactionType   string   `json:"transaction_type,omitempty"`
	Description       string   `json:"description,omitempty"`
	Date              string   `json:"date,omitempty"`
}

type GoalPatch struct {
	Title        string   `json:"title,omitempty"`
	Category     string   `json:"category,omitempty"`
	TargetAmount *float64 `json:"target_amount,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
	Status       string   `json:"status,omitempty"`
}

type BusinessInsight struct {
	Stage    string `json:"stage,omitempty"`
	Industry string `json:"industry,omitempty"`
	NextStep string `json:"next_step,omitempty"`
}

type ProfilePatch struct {
	MissingFields []string `json:"missing_fields,omitempty"`
	NextQuestion  string   `json:"next_question,omitempty"`
}

// AgentResponse is the structured reply every agent produces.
type AgentResponse struct {
	AssistantReply string      `json:"assistant_reply"`
	Intent         AgentType   `json:"intent"`
	Ops            []Operation `json:"ops"`

	Finance  *FinanceExtraction `json:"finance,omitempty"`
	Goal     *GoalPatch         `json:"goal,omitempty"`
	Business *BusinessInsight   `json:"business,omitempty"`
	Profile  *ProfilePatch      `json:"profile,omitempty"`

	Usage    *Usage `json:"-"`
	Fallback bool   `json:"-"`
}

// Metadata flattens the agent-specific fields for turn persistence.
func (r AgentResponse) Metadata() map[string]any {
	meta := map[string]any{
		"intent":   r.Intent,
		"ops":      r.Ops,
		"fallback": r.Fallback,
	}
	if r.Finance != nil {
		meta["finance"] = r.Finance
	}
	if r.Goal != nil {
		meta["goal"] = r.Goal
	}
	if r.Business != nil {
		meta["business"] = r.Business
	}
	if r.Profile != nil {
		meta["profile"] = r.Profile
	}
	if r.Usage != nil {
		meta["provider"] = r.Usage.Provider
		meta["model"] = r.Usage.Model
		meta["input_tokens"] = r.Usage.InputTokens
		meta["output_tokens"] = r.Usage.OutputTokens
	}
	return meta
}

type AgentRequest struct {
	ContactID string
	CompanyID string
	Message   string
	Snapshot  *statex.Snapshot
	Media     *Media
	MediaURL  string
	// Extraction carries the preprocessor result of the current attachment, if any.
	Extraction *MediaResult
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type TurnRecord struct {
	ID             string
	ContactID      string
	CompanyID      string
	UserMessage    string
	AssistantReply string
	AgentType      AgentType
	Metadata       map[string]any
	CreatedAt      time.Time
}

type TelemetryRecord struct {
	CompanyID     string    `json:"company_id"`
	ContactID     string    `json:"contact_id,omitempty"`
	AgentType     AgentType `json:"agent_type"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	InputTokens   int64     `json:"input_tokens"`
	OutputTokens  int64     `json:"output_tokens"`
	EstimatedCost float64   `json:"estimated_cost"`
	LatencyMs     int64     `json:"latency_ms"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
