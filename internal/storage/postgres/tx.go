// Package postgres implements the client and order stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// applyBalanceChanges writes each balance only if its version still matches.
// Rows are locked in id order so two commits touching the same pair of
// clients cannot deadlock.
func applyBalanceChanges(ctx context.Context, q querier, changes []domain.BalanceChange) error {
	sorted := slices.Clone(changes)
	slices.SortFunc(sorted, func(a, b domain.BalanceChange) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})

	const stmt = `
UPDATE clients
SET profit = $2::numeric, version = version + 1
WHERE id = $1 AND version = $3`

	for _, ch := range sorted {
		tag, err := q.Exec(ctx, stmt, ch.ClientID, ch.Profit.StringFixed(domain.MoneyScale), ch.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("update balance of %s: %w", ch.ClientID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505"
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == "23514"
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func isInvalidUUID(err error) bool {
	return pgErrorCode(err) == "22P02"
}

// isRetryable covers deadlocks and serialization failures. The ledger does
// not retry; callers see them as version conflicts.
func isRetryable(err error) bool {
	switch pgErrorCode(err) {
	case "40001", "40P01":
		return true
	}
	return false
}

func commitError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return domain.ErrVersionConflict
	}
	return err
}
