package repo

import (
	"context"
	"database/sql"

	"credit-checkout/internal/domain"
)

type LogRepo interface {
	Append(ctx context.Context, entry domain.LogEntry) error
}

type logRepo struct {
	db *sql.DB
}

func NewLogRepo(db *sql.DB) LogRepo {
	return &logRepo{db: db}
}

func (r *logRepo) Append(ctx context.Context, e domain.LogEntry) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO operation_logs (id, level, message, created_at) VALUES ($1, $2, $3, $4)",
		e.ID, e.Level, e.Message, e.CreatedAt,
	)
	return err
}
