package contract

import (
	"errors"

	statex "github.com/tanpawarit/Chative-Agent-Router/agent/state"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrContextFetch        = statex.ErrContextFetch
	ErrPersist             = errors.New("turn persistence failed")
	ErrProviderOverloaded  = errors.New("provider overloaded")
	ErrAllProvidersFailed  = errors.New("all providers failed")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrUnsupportedAgent    = errors.New("unsupported agent type")
	ErrAttachmentFetch     = errors.New("attachment fetch failed")
	ErrAttachmentTooLarge  = errors.New("attachment exceeds size limit")
	ErrInvalidRemoteMethod = errors.New("invalid remote procedure name")
)
