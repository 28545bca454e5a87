// Package apperrors defines the sentinel error values and typed error
// wrappers shared across the orchestration core.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors classified per the error-handling design: configuration,
// input, upstream, timeout, and internal. Callers use errors.Is to branch.
var (
	// ErrNoDataset is returned by any operation that requires a bound
	// dataset when the session has none.
	ErrNoDataset = errors.New("no dataset bound to session")

	// ErrUnknownAgent is returned when an agent_spec names a template
	// that does not resolve to a loaded agent.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrNoAgentsAvailable is the configuration-kind error surfaced as
	// the planner's no_agents_available plan value.
	ErrNoAgentsAvailable = errors.New("no agents available")

	// ErrInvalidUser is returned for malformed user/chat identifiers.
	ErrInvalidUser = errors.New("invalid user or chat identifier")

	// ErrTimeout is distinct from a generic upstream failure; it is
	// surfaced with a "simplify your query" remediation hint.
	ErrTimeout = errors.New("operation timed out; try simplifying your query")

	// ErrUpstream wraps language-model or retriever provider failures.
	ErrUpstream = errors.New("upstream provider failure")

	// ErrNotFound is returned by the store for missing rows.
	ErrNotFound = errors.New("not found")

	// ErrCancelled marks a deep analysis terminated by cancellation.
	ErrCancelled = errors.New("cancelled")
)

// ValidationError carries field-level detail for input-kind errors, the
// way a 400 response needs it (e.g. the available-agents list for an
// unknown agent name).
type ValidationError struct {
	Field   string
	Message string
	Detail  any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with optional structured
// detail (e.g. a list of available agent names).
func NewValidationError(field, message string, detail any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Detail: detail}
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether err is (or wraps) ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
