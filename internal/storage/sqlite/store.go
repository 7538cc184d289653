// Package sqlite implements the client and order stores on an embedded
// SQLite database through the pure-Go modernc driver. Money is kept as
// integer cents and timestamps as fixed-width RFC3339 text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/shopspring/decimal"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id            TEXT    PRIMARY KEY,
	name          TEXT    NOT NULL,
	last_name     TEXT    NOT NULL,
	email         TEXT    NOT NULL,
	address       TEXT    NOT NULL DEFAULT '',
	phone         TEXT,
	active        INTEGER NOT NULL DEFAULT 1,
	inactive_at   TEXT,
	profit_cents  INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 1,
	state_version INTEGER NOT NULL DEFAULT 1,
	created_at    TEXT    NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS clients_email_key ON clients (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS clients_phone_key ON clients (phone) WHERE phone IS NOT NULL;
CREATE INDEX IF NOT EXISTS clients_profit_idx ON clients (profit_cents);

CREATE TABLE IF NOT EXISTS orders (
	id           TEXT    PRIMARY KEY,
	title        TEXT    NOT NULL,
	supplier_id  TEXT    NOT NULL REFERENCES clients (id),
	consumer_id  TEXT    NOT NULL REFERENCES clients (id),
	price_cents  INTEGER NOT NULL CHECK (price_cents > 0),
	active       INTEGER NOT NULL DEFAULT 1,
	version      INTEGER NOT NULL DEFAULT 1,
	admitted_at  TEXT    NOT NULL,
	processed_at TEXT    NOT NULL,
	committed_at TEXT    NOT NULL,
	CHECK (supplier_id <> consumer_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS orders_business_key ON orders (title, supplier_id, consumer_id);
CREATE INDEX IF NOT EXISTS orders_supplier_idx ON orders (supplier_id);
CREATE INDEX IF NOT EXISTS orders_consumer_idx ON orders (consumer_id);
`

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements both the client and the order repository.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// One connection serializes writers. Code holding a transaction must not
	// touch s.db until it commits.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func applyBalanceChanges(ctx context.Context, q querier, changes []domain.BalanceChange) error {
	sorted := slices.Clone(changes)
	slices.SortFunc(sorted, func(a, b domain.BalanceChange) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})

	const stmt = `UPDATE clients SET profit_cents = ?, version = version + 1 WHERE id = ? AND version = ?`
	for _, ch := range sorted {
		res, err := q.ExecContext(ctx, stmt, toCents(ch.Profit), ch.ClientID, ch.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("sqlite: update balance of %s: %w", ch.ClientID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: update balance of %s: %w", ch.ClientID, err)
		} else if n == 0 {
			return domain.ErrVersionConflict
		}
	}
	return nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(domain.MoneyScale).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -domain.MoneyScale)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// uniqueViolation returns the driver message when err is a UNIQUE or
// PRIMARY KEY constraint failure, and "" otherwise. SQLite names the columns
// of a plain index ("orders.title, ...") and the index of an expression
// index ("index 'clients_email_key'").
func uniqueViolation(err error) string {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return ""
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return se.Error()
	}
	return ""
}

func isCheckViolation(err error) bool {
	var se *moderncsqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK
}
