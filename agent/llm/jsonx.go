package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// StripCodeFence removes a surrounding markdown code fence (``` or ```json).
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string (json, JSON, ...).
		if !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the JSON object contained in a model reply.
func ExtractJSONObject(raw string) (string, bool) {
	s := StripCodeFence(raw)
	if s == "" {
		return "", false
	}
	if gjson.Valid(s) && gjson.Parse(s).IsObject() {
		return s, true
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}

// DecodeJSON coerces a model reply into v.
func DecodeJSON(raw string, v any) error {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return fmt.Errorf("%w: no json object in model output", contractx.ErrSchemaViolation)
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	return nil
}
