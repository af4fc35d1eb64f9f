package payment

import (
	"context"

	"credit-checkout/internal/domain"
)

//go:generate mockgen -source=gateway.go -destination=mock/gateway_mock.go -package=mock

// Gateway is the hosted-checkout payment provider.
//
// Explicit failures reported by the provider come back as *domain.GatewayError,
// transport problems wrap domain.ErrGatewayUnavailable and unusable payloads
// wrap domain.ErrMalformedResponse.
type Gateway interface {
	Initialize(ctx context.Context, secretKey string, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, secretKey, reference string) (*domain.VerifiedTransaction, error)
}

type InitializeRequest struct {
	Email       string
	Amount      int64
	CallbackURL string
	Reference   string
	Credits     int64
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}
