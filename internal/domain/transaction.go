package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// CreditsField is the custom_fields variable name carrying the credit amount.
	CreditsField = "credits_to_add"

	TransactionSuccess = "success"

	// FallbackCreditsPerUnit converts a paid major unit into credits when the
	// metadata is missing. It is an approximation, not a catalog lookup.
	FallbackCreditsPerUnit = 100
)

type CustomField struct {
	DisplayName  string
	VariableName string
	Value        string
}

// VerifiedTransaction is the gateway's answer to a verify-by-reference call.
type VerifiedTransaction struct {
	Reference       string
	Status          string
	GatewayResponse string
	Amount          int64
	CustomerEmail   string
	CustomFields    []CustomField
}

func (t VerifiedTransaction) Succeeded() bool {
	return t.Status == TransactionSuccess
}

// StatusMessage is the human readable outcome shown to the purchaser.
func (t VerifiedTransaction) StatusMessage() string {
	if t.GatewayResponse != "" {
		return t.GatewayResponse
	}
	return t.Status
}

// MetadataCredits returns the credits recorded at initiation, or 0 when the
// field is absent.
func (t VerifiedTransaction) MetadataCredits() (int64, error) {
	for _, f := range t.CustomFields {
		if f.VariableName != CreditsField {
			continue
		}
		raw := strings.TrimSpace(f.Value)
		if raw == "" {
			return 0, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCredits, raw)
		}
		if d.IsNegative() {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCredits, raw)
		}
		return d.IntPart(), nil
	}
	return 0, nil
}

// FallbackCredits is floor(paidSubunit / 100 * 100).
func FallbackCredits(paidSubunit int64) int64 {
	return decimal.NewFromInt(paidSubunit).
		Div(subunitsPerUnit).
		Mul(decimal.NewFromInt(FallbackCreditsPerUnit)).
		Floor().
		IntPart()
}

// ResolveCredits prefers the metadata value and falls back to the paid
// amount when it resolves to zero.
func ResolveCredits(t VerifiedTransaction) (credits int64, fromMetadata bool, err error) {
	credits, err = t.MetadataCredits()
	if err != nil {
		return 0, false, err
	}
	if credits > 0 {
		return credits, true, nil
	}
	return FallbackCredits(t.Amount), false, nil
}
