// Package ledger stores purchase records and applies credits exactly once
// per transaction reference.
package ledger

import (
	"context"
	"time"

	"credit-checkout/internal/domain"
)

type Store interface {
	CreatePending(ctx context.Context, purchase *domain.Purchase) error
	// FindPurchase returns nil, nil when the reference is unknown.
	FindPurchase(ctx context.Context, reference string) (*domain.Purchase, error)
	// CreditOnce marks the reference succeeded and adds the credits in one
	// atomic step. A reference that already succeeded yields
	// domain.ErrAlreadyProcessed and changes nothing.
	CreditOnce(ctx context.Context, credit domain.Credit) error
	MarkFailed(ctx context.Context, reference, gatewayStatus string) error
	AbandonStale(ctx context.Context, before time.Time) (int64, error)
	Balance(ctx context.Context, email string) (int64, error)
	AppendLog(ctx context.Context, entry domain.LogEntry) error
	Health(ctx context.Context) map[string]string
	Close() error
}
