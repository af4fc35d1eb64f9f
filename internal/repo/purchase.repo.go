package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"credit-checkout/internal/domain"

	"github.com/google/uuid"
)

type PurchaseRepo interface {
	CreatePending(ctx context.Context, tx *sql.Tx, purchase *domain.Purchase) error
	FindByReference(ctx context.Context, reference string) (*domain.Purchase, error)
	// MarkSucceeded records the reference as credited. It returns false when
	// the reference had already succeeded.
	MarkSucceeded(ctx context.Context, tx *sql.Tx, credit domain.Credit) (bool, error)
	MarkFailed(ctx context.Context, tx *sql.Tx, reference, gatewayStatus string) error
	MarkAbandonedBefore(ctx context.Context, tx *sql.Tx, before time.Time) (int64, error)
}

type purchaseRepo struct {
	db *sql.DB
}

func NewPurchaseRepo(db *sql.DB) PurchaseRepo {
	return &purchaseRepo{db: db}
}

const purchaseColumns = `id, reference, email, product_id, amount, credits, status, gateway_status, created_at, updated_at`

func (r *purchaseRepo) CreatePending(ctx context.Context, tx *sql.Tx, p *domain.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reference) DO NOTHING
	`
	_, err := tx.ExecContext(
		ctx, query,
		p.ID, p.Reference, p.Email, p.ProductID, p.Amount, p.Credits, p.Status, p.GatewayStatus, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *purchaseRepo) FindByReference(ctx context.Context, reference string) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE reference = $1`
	var p domain.Purchase
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&p.ID,
		&p.Reference,
		&p.Email,
		&p.ProductID,
		&p.Amount,
		&p.Credits,
		&p.Status,
		&p.GatewayStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepo) MarkSucceeded(ctx context.Context, tx *sql.Tx, c domain.Credit) (bool, error) {
	// Concurrent callers serialize on the row lock; the loser sees SUCCEEDED
	// and gets no row back.
	query := `
		INSERT INTO purchases (id, reference, email, amount, credits, status, gateway_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (reference) DO UPDATE
		SET email = EXCLUDED.email,
		    amount = EXCLUDED.amount,
		    credits = EXCLUDED.credits,
		    status = EXCLUDED.status,
		    gateway_status = EXCLUDED.gateway_status,
		    updated_at = now()
		WHERE purchases.status <> $6
		RETURNING id
	`
	var id uuid.UUID
	err := tx.QueryRowContext(
		ctx, query,
		uuid.New(), c.Reference, c.Email, c.Amount, c.Credits, domain.PurchaseSucceeded, c.GatewayStatus,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *purchaseRepo) MarkFailed(ctx context.Context, tx *sql.Tx, reference, gatewayStatus string) error {
	query := `
		UPDATE purchases
		SET status = $2,
		    gateway_status = $3,
		    updated_at = now()
		WHERE reference = $1 AND status = $4
	`
	_, err := tx.ExecContext(ctx, query, reference, domain.PurchaseFailed, gatewayStatus, domain.PurchasePending)
	return err
}

func (r *purchaseRepo) MarkAbandonedBefore(ctx context.Context, tx *sql.Tx, before time.Time) (int64, error) {
	query := `
		UPDATE purchases
		SET status = $1,
		    updated_at = now()
		WHERE status = $2 AND created_at < $3
	`
	res, err := tx.ExecContext(ctx, query, domain.PurchaseAbandoned, domain.PurchasePending, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
