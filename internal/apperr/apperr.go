// Package apperr defines the error taxonomy surfaced to callers of the core
// services. Kind and status strings are part of the external contract and
// must stay stable for downstream compatibility.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies an error category.
type Kind string

// Error kinds.
const (
	KindAgentNotFound          Kind = "AgentNotFound"
	KindInvalidPayload         Kind = "InvalidPayload"
	KindIdempotencyKeyConflict Kind = "IdempotencyKeyConflict"
	KindInternalError          Kind = "InternalError"
)

// Error is a caller-facing error with a stable kind, an HTTP-like status,
// and optional diagnostic details.
type Error struct {
	Kind    Kind              `json:"kind"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AgentNotFound reports a missing agent.
func AgentNotFound(agentID string) *Error {
	return &Error{
		Kind:    KindAgentNotFound,
		Status:  404,
		Message: fmt.Sprintf("agent %s not found", agentID),
		Details: map[string]string{"agent_id": agentID},
	}
}

// InvalidPayload reports a validation failure before intent creation.
func InvalidPayload(msg string) *Error {
	return &Error{Kind: KindInvalidPayload, Status: 400, Message: msg}
}

// IdempotencyConflict reports a reused key with a different payload,
// naming the key and the intent it originally produced.
func IdempotencyConflict(key, intentID string) *Error {
	return &Error{
		Kind:    KindIdempotencyKeyConflict,
		Status:  409,
		Message: fmt.Sprintf("idempotency key %q was already used with a different payload (intent %s)", key, intentID),
		Details: map[string]string{"idempotency_key": key, "intent_id": intentID},
	}
}

// Internal reports a consistency violation or genuine bug. Never used for
// expected admission or accounting failures.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternalError, Status: 500, Message: msg}
}

// KindOf extracts the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
