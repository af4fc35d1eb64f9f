package repo

import (
	"context"
	"database/sql"
	"errors"

	"credit-checkout/internal/domain"
)

// AccountRepo reads and updates credit balances on the users table, which is
// owned by the user service.
type AccountRepo interface {
	AddCredits(ctx context.Context, tx *sql.Tx, email string, credits int64) error
	Balance(ctx context.Context, email string) (int64, error)
}

type accountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

func (r *accountRepo) AddCredits(ctx context.Context, tx *sql.Tx, email string, credits int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credits = credits + $1, updated_at = now() WHERE lower(email) = lower($2)",
		credits, email,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) Balance(ctx context.Context, email string) (int64, error) {
	var credits int64
	err := r.db.QueryRowContext(ctx, "SELECT credits FROM users WHERE lower(email) = lower($1)", email).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}
