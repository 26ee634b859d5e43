// Package store persists imports and collapsed order-file entities in
// PostgreSQL.
//
// Entity writes are natural-key upserts, never insert-only: replaying a
// file converges on the same rows, which is what makes the retrying job
// runner safe without a cross-entity transaction.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
