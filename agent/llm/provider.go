package llm

import (
	"context"
	"encoding/base64"
	"strings"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// Provider is one LLM backend speaking the shared function-calling protocol.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (Response, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool carries function results back to the model.
	RoleTool Role = "tool"
)

// Part is one piece of message content: text or inline binary data.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

func (p Part) IsBlob() bool {
	return len(p.Data) > 0
}

// DataURL renders a blob part as a data: URL.
func (p Part) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResult struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type Message struct {
	Role            Role
	Parts           []Part
	FunctionCalls   []FunctionCall
	FunctionResults []FunctionResult
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart(text)}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
)

type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// FunctionDecl describes a callable function offered to the model.
type FunctionDecl struct {
	Name        string
	Description string
	Params      []Param
}

// JSONSchema renders the parameters as a JSON-schema object.
func (f FunctionDecl) JSONSchema() map[string]any {
	props := make(map[string]any, len(f.Params))
	required := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		props[p.Name] = map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []FunctionDecl
	// JSON asks the provider to return a bare JSON object.
	JSON        bool
	Temperature *float32
}

type Response struct {
	Text          string
	FunctionCalls []FunctionCall
	Usage         contractx.Usage
}

func (r Response) HasFunctionCall() bool {
	return len(r.FunctionCalls) > 0
}
