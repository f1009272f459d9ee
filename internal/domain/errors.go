package domain

import "errors"

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrKeyNotFound      = errors.New("key not found")
	ErrLoginInFlight    = errors.New("login already in progress")
	ErrAuthRequired     = errors.New("authentication required")
	ErrRoleNotPermitted = errors.New("operation not permitted for role")
	ErrStaleResponse    = errors.New("response superseded by a later session change")
	ErrEmptyPayload     = errors.New("empty response payload")
)

// RequestError is a DomainError outcome surfaced to a view.
type RequestError struct {
	Status    int
	Message   string
	Transport bool
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}
