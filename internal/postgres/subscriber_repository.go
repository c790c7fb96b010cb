package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// SubscriberRepo implements domain.SubscriberRepository backed by PostgreSQL.
type SubscriberRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriberRepo creates a SubscriberRepo from the shared connection pool.
func NewSubscriberRepo(pool *pgxpool.Pool) *SubscriberRepo {
	return &SubscriberRepo{pool: pool}
}

func (r *SubscriberRepo) Insert(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscribers (email)
		VALUES ($1)
	`, email)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrDuplicateSubscriber
	}
	if err != nil {
		return fmt.Errorf("failed to insert subscriber: %w", err)
	}
	return nil
}
