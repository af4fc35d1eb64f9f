package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProduct       = errors.New("unknown product")
	ErrMissingEmail         = errors.New("session has no email")
	ErrGatewayNotConfigured = errors.New("payment gateway secret not configured")
	ErrMissingReference     = errors.New("missing transaction reference")
	// ErrGatewayUnavailable covers transport failures and 5xx answers.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMalformedResponse  = errors.New("malformed gateway response")
	ErrAlreadyProcessed   = errors.New("transaction already processed")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAmountMismatch     = errors.New("paid amount below expected amount")
	ErrInvalidCredits     = errors.New("invalid credit amount")
)

// GatewayError is a failure the gateway reported explicitly (status false).
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return "gateway error"
	}
	return "gateway error: " + e.Message
}

// PaymentFailedError means the gateway answered but the payment did not succeed.
type PaymentFailedError struct {
	Reference string
	Status    string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment %s failed: %s", e.Reference, e.Status)
}
