package payment

import (
	"context"
	"net/url"
	"testing"

	"credit-checkout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxFlow(t *testing.T) {
	ctx := context.Background()
	g := NewSandboxGateway("http://localhost:8080/", "/sandbox/pay")

	res, err := g.Initialize(ctx, "sk", InitializeRequest{
		Email:       "jane@example.com",
		Amount:      1000,
		CallbackURL: "http://localhost:8080/success",
		Reference:   "CREDIT-JANE-2-0000000001",
		Credits:     1200,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/sandbox/pay/CREDIT-JANE-2-0000000001", res.AuthorizationURL)

	tx, err := g.Verify(ctx, "sk", "CREDIT-JANE-2-0000000001")
	require.NoError(t, err)
	assert.False(t, tx.Succeeded())

	callback, ok := g.Complete("CREDIT-JANE-2-0000000001")
	require.True(t, ok)
	u, err := url.Parse(callback)
	require.NoError(t, err)
	assert.Equal(t, "/success", u.Path)
	assert.Equal(t, "CREDIT-JANE-2-0000000001", u.Query().Get("reference"))

	tx, err = g.Verify(ctx, "sk", "CREDIT-JANE-2-0000000001")
	require.NoError(t, err)
	assert.True(t, tx.Succeeded())
	assert.Equal(t, int64(1000), tx.Amount)
	credits, err := tx.MetadataCredits()
	require.NoError(t, err)
	assert.Equal(t, int64(1200), credits)
}

func TestSandboxRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	g := NewSandboxGateway("http://localhost", "/sandbox/pay")

	var gwErr *domain.GatewayError
	_, err := g.Initialize(ctx, "", InitializeRequest{Reference: "A"})
	require.ErrorAs(t, err, &gwErr)

	_, err = g.Initialize(ctx, "sk", InitializeRequest{Reference: "A"})
	require.NoError(t, err)
	_, err = g.Initialize(ctx, "sk", InitializeRequest{Reference: "A"})
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "Duplicate Transaction Reference", gwErr.Message)

	_, err = g.Verify(ctx, "sk", "missing")
	require.ErrorAs(t, err, &gwErr)

	_, ok := g.Complete("missing")
	assert.False(t, ok)
}
