package ops

import (
	"errors"
	"fmt"
)

// Stable error codes returned by every mutating operation. Transport layers
// map these onto status codes; the CLI prints them verbatim.
const (
	CodeValidation         = "validation"
	CodeStateConflict      = "state_conflict"
	CodeNotFound           = "not_found"
	CodeProcessNotAllowed  = "process_not_allowed"
	CodeRetryLimitReached  = "retry_limit_reached"
	CodeExportRenderFailed = "export_render_failed"
	CodeDataCorruption     = "data_corruption"
	CodeInternal           = "internal"
)

// Error carries a stable code alongside the human-readable message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a coded operation error.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Errorf builds a coded operation error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from an error chain. Unknown errors report
// the internal code.
func CodeOf(err error) string {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	return CodeInternal
}
