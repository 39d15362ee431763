// Package apperr defines the error taxonomy shared by the upstream client
// and the search orchestrator. Every error that can reach the transport
// layer carries a code and the HTTP status it maps to.
package apperr

import "fmt"

const (
	CodeValidation          = "validation"
	CodeConfiguration       = "configuration"
	CodeNotFound            = "not_found"
	CodeUpstreamAuth        = "upstream_auth"
	CodeUpstreamRateLimited = "upstream_rate_limited"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeInternal            = "internal"
)

type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeUpstreamAuth:
		return 403
	case CodeNotFound:
		return 404
	case CodeUpstreamRateLimited:
		return 429
	case CodeUpstreamUnavailable:
		return 503
	case CodeUpstreamTimeout:
		return 504
	default:
		return 500
	}
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code)}
}

func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithStatus overrides the default status for the code. Used for
// pass-through of upstream status codes and for the configurable
// zero-results policy.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func Configuration(message string) *Error {
	return New(CodeConfiguration, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}
