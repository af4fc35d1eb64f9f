package ledger

import (
	"context"
	"database/sql"
	"time"

	"credit-checkout/internal/database"
	"credit-checkout/internal/domain"
	"credit-checkout/internal/repo"
)

type postgresStore struct {
	db        *sql.DB
	purchases repo.PurchaseRepo
	accounts  repo.AccountRepo
	logs      repo.LogRepo
}

func NewPostgres(db *sql.DB) Store {
	return &postgresStore{
		db:        db,
		purchases: repo.NewPurchaseRepo(db),
		accounts:  repo.NewAccountRepo(db),
		logs:      repo.NewLogRepo(db),
	}
}

func (s *postgresStore) CreatePending(ctx context.Context, p *domain.Purchase) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.purchases.CreatePending(ctx, tx, p)
	})
}

func (s *postgresStore) FindPurchase(ctx context.Context, reference string) (*domain.Purchase, error) {
	return s.purchases.FindByReference(ctx, reference)
}

func (s *postgresStore) CreditOnce(ctx context.Context, c domain.Credit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		marked, err := s.purchases.MarkSucceeded(ctx, tx, c)
		if err != nil {
			return err
		}
		if !marked {
			return domain.ErrAlreadyProcessed
		}
		return s.accounts.AddCredits(ctx, tx, c.Email, c.Credits)
	})
}

func (s *postgresStore) MarkFailed(ctx context.Context, reference, gatewayStatus string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.purchases.MarkFailed(ctx, tx, reference, gatewayStatus)
	})
}

func (s *postgresStore) AbandonStale(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.purchases.MarkAbandonedBefore(ctx, tx, before)
		return err
	})
	return n, err
}

func (s *postgresStore) Balance(ctx context.Context, email string) (int64, error) {
	return s.accounts.Balance(ctx, email)
}

func (s *postgresStore) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	return s.logs.Append(ctx, entry)
}

func (s *postgresStore) Health(ctx context.Context) map[string]string {
	return database.Health(ctx, s.db)
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func (s *postgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
