package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreditsFromMetadata(t *testing.T) {
	tx := VerifiedTransaction{
		Status: "success",
		Amount: 1000,
		CustomFields: []CustomField{
			{DisplayName: "Note", VariableName: "note", Value: "hello"},
			{DisplayName: "Credits", VariableName: CreditsField, Value: "1200"},
		},
	}

	credits, fromMeta, err := ResolveCredits(tx)
	require.NoError(t, err)
	assert.True(t, fromMeta)
	assert.Equal(t, int64(1200), credits)
}

func TestResolveCreditsFallback(t *testing.T) {
	tests := []struct {
		name   string
		fields []CustomField
		amount int64
		want   int64
	}{
		{name: "no_metadata", amount: 500, want: 500},
		{name: "zero_value", fields: []CustomField{{VariableName: CreditsField, Value: "0"}}, amount: 2000, want: 2000},
		{name: "empty_value", fields: []CustomField{{VariableName: CreditsField, Value: ""}}, amount: 1999, want: 1999},
		{name: "other_fields_only", fields: []CustomField{{VariableName: "x", Value: "9"}}, amount: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credits, fromMeta, err := ResolveCredits(VerifiedTransaction{Amount: tt.amount, CustomFields: tt.fields})
			require.NoError(t, err)
			assert.False(t, fromMeta)
			assert.Equal(t, tt.want, credits)
		})
	}
}

func TestFallbackCredits(t *testing.T) {
	// floor(paid / 100 * 100)
	assert.Equal(t, int64(0), FallbackCredits(0))
	assert.Equal(t, int64(1), FallbackCredits(1))
	assert.Equal(t, int64(1050), FallbackCredits(1050))
	assert.Equal(t, int64(250000), FallbackCredits(250000))
}

func TestMetadataCreditsInvalid(t *testing.T) {
	for _, v := range []string{"lots", "-5"} {
		tx := VerifiedTransaction{CustomFields: []CustomField{{VariableName: CreditsField, Value: v}}}
		_, err := tx.MetadataCredits()
		assert.ErrorIs(t, err, ErrInvalidCredits, v)
	}
}

func TestMetadataCreditsTruncatesDecimals(t *testing.T) {
	tx := VerifiedTransaction{CustomFields: []CustomField{{VariableName: CreditsField, Value: "500.0"}}}
	credits, err := tx.MetadataCredits()
	require.NoError(t, err)
	assert.Equal(t, int64(500), credits)
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "Declined", VerifiedTransaction{Status: "failed", GatewayResponse: "Declined"}.StatusMessage())
	assert.Equal(t, "abandoned", VerifiedTransaction{Status: "abandoned"}.StatusMessage())
}
