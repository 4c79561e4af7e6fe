package models

import "fmt"

// Error codes used in internal error handling. They never appear on the
// wire; the query handler maps each code to an HTTP status and responds
// with a plain ErrorResponse body.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUpstreamTimeout   = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamHTTP      = "UPSTREAM_HTTP"
	ErrCodeUpstreamTransport = "UPSTREAM_TRANSPORT"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// QueryError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type QueryError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new QueryError.
func NewQueryError(code, message string, err error) *QueryError {
	return &QueryError{Code: code, Message: message, Err: err}
}
