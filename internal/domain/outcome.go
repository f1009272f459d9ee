package domain

import (
	"encoding/json"
	"fmt"
)

type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeDomainError OutcomeKind = "domain_error"
	OutcomeAuthError   OutcomeKind = "auth_error"
)

const NetworkErrorMessage = "network error: could not reach server"

// Outcome is the classified result of one call to the remote API.
type Outcome struct {
	Kind    OutcomeKind
	Payload json.RawMessage
	Message string
	// Status is the HTTP status code, zero when no response arrived.
	Status int
	// Transport marks a DomainError produced without any server response.
	Transport bool
}

func Success(payload json.RawMessage) Outcome {
	return Outcome{Kind: OutcomeSuccess, Payload: payload}
}

func DomainError(message string) Outcome {
	return Outcome{Kind: OutcomeDomainError, Message: message}
}

func TransportError() Outcome {
	return Outcome{Kind: OutcomeDomainError, Message: NetworkErrorMessage, Transport: true}
}

func AuthError(message string) Outcome {
	return Outcome{Kind: OutcomeAuthError, Message: message}
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Err converts a failed outcome into an error for views. It returns nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeAuthError:
		if o.Message == "" {
			return ErrAuthRequired
		}
		return fmt.Errorf("%w: %s", ErrAuthRequired, o.Message)
	default:
		return &RequestError{Status: o.Status, Message: o.Message, Transport: o.Transport}
	}
}

func (o Outcome) Decode(target any) error {
	if !o.OK() {
		return o.Err()
	}
	if len(o.Payload) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(o.Payload, target); err != nil {
		return fmt.Errorf("decode response payload: %w", err)
	}
	return nil
}
