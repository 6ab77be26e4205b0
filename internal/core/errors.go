package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidMessage    = "invalid_message"
	ErrCodePersistenceFailed = "persistence_failed"
	ErrCodeNotFound          = "not_found"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeNotInRoom         = "not_in_room"
)

var (
	ErrNotJoined     = errors.New("session not joined")
	ErrBadAddressing = errors.New("message must have exactly one of room or receiver")
	ErrEmptyContent  = errors.New("message content is empty")
)

// CoreError wraps a code and human-readable message for the wire.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
