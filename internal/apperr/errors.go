package apperr

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrSessionExpired         = errors.New("session expired or missing")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrNotFound               = errors.New("not found")
	ErrSlugCollisionExhausted = errors.New("slug collision retries exhausted")
	ErrAuditUnavailable       = errors.New("audit trail unavailable")
)

type ValidationError struct {
	Message string
	Err     error
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

func NewFieldValidation(msg string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

// MediaError rejects an upload. Reason is safe to show to the uploader.
type MediaError struct {
	Reason string
	Err    error
}

func (e *MediaError) Error() string {
	if e.Err != nil {
		return "rejected media: " + e.Reason + ": " + e.Err.Error()
	}
	return "rejected media: " + e.Reason
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

func NewRejectedMedia(reason string) *MediaError {
	return &MediaError{Reason: reason}
}

func NewRejectedMediaWrap(reason string, err error) *MediaError {
	return &MediaError{Reason: reason, Err: err}
}
