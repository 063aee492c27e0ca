// Package server defines the error taxonomy reported back to clients on
// event acknowledgements.
package server

// ErrorKind classifies an application error so callers can distinguish bad
// input from name conflicts and policy rejections without string matching.
type ErrorKind int

// The three error kinds that can travel back on an acknowledgement. None of
// them close the connection.
const (
	KindValidation ErrorKind = iota
	KindConflict
	KindPolicy
)

// ChatError is an application-level error surfaced to the originating
// connection via its acknowledgement. The message is intended to be shown to
// the end user as-is.
type ChatError struct {
	Kind    ErrorKind
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

// Is reports whether target is a ChatError of the same kind, so tests and
// callers can match with errors.Is against the sentinel values below.
func (e *ChatError) Is(target error) bool {
	other, ok := target.(*ChatError)
	return ok && other.Kind == e.Kind
}

// Sentinel values for errors.Is matching. The concrete errors returned by the
// registry and gateway carry user-facing messages.
var (
	ErrValidation = &ChatError{Kind: KindValidation}
	ErrConflict   = &ChatError{Kind: KindConflict}
	ErrPolicy     = &ChatError{Kind: KindPolicy}
)

func validationError(msg string) error {
	return &ChatError{Kind: KindValidation, Message: msg}
}

func conflictError(msg string) error {
	return &ChatError{Kind: KindConflict, Message: msg}
}

func policyError(msg string) error {
	return &ChatError{Kind: KindPolicy, Message: msg}
}
