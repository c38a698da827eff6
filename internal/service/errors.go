package service

import (
	"fmt"
)

// GatewayError wraps a failed call to the payment gateway
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// SignatureError reports an HMAC mismatch on payment verification or a webhook
type SignatureError struct {
	Kind string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid %s signature", e.Kind)
}

// InvalidStateError is returned when an operation is not allowed from the current status
type InvalidStateError struct {
	Op     string
	Status string
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("cannot %s payment in status %s", e.Op, e.Status)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
