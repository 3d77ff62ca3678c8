// Package store is the content store: repository-per-entity access to the
// relational database, composed behind a single Store facade. All writes that
// touch multiple tables happen inside one transaction via WithTx.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// letting every repository run against the pool or a transaction unchanged.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store composes the entity repositories over one connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   Querier

	Cities      *CityRepo
	Committees  *CommitteeRepo
	Members     *MemberRepo
	Meetings    *MeetingRepo
	Items       *ItemRepo
	Matters     *MatterRepo
	Appearances *AppearanceRepo
}

// New creates a Store over the given pool.
func New(pool *pgxpool.Pool) *Store {
	return bind(pool, pool)
}

func bind(pool *pgxpool.Pool, db Querier) *Store {
	return &Store{
		pool:        pool,
		db:          db,
		Cities:      &CityRepo{db: db},
		Committees:  &CommitteeRepo{db: db},
		Members:     &MemberRepo{db: db},
		Meetings:    &MeetingRepo{db: db},
		Items:       &ItemRepo{db: db},
		Matters:     &MatterRepo{db: db},
		Appearances: &AppearanceRepo{db: db},
	}
}

// WithTx runs fn against a transaction-bound Store. The transaction commits
// if fn returns nil and rolls back otherwise; nothing partially commits.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(bind(s.pool, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for health checks and the queue.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// DB exposes the Store's current binding: the pool, or inside WithTx the
// transaction, so sibling components can join the same transaction.
func (s *Store) DB() Querier {
	return s.db
}
