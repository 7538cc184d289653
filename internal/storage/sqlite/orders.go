package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, title, supplier_id, consumer_id, price_cents, active, version, admitted_at, processed_at, committed_at`

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o                                 domain.Order
		cents                             int64
		admitted, processed, committedRaw string
	)
	err := row.Scan(&o.ID, &o.Title, &o.SupplierID, &o.ConsumerID, &cents, &o.Active, &o.Version,
		&admitted, &processed, &committedRaw)
	if err != nil {
		return domain.Order{}, err
	}
	o.Price = fromCents(cents)
	if o.AdmittedAt, err = parseTime(admitted); err != nil {
		return domain.Order{}, err
	}
	if o.ProcessedAt, err = parseTime(processed); err != nil {
		return domain.Order{}, err
	}
	if o.CommittedAt, err = parseTime(committedRaw); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Store) ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE title = ? AND supplier_id = ? AND consumer_id = ?)`,
		key.Title, key.SupplierID, key.ConsumerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: check business key: %w", err)
	}
	return exists, nil
}

func (s *Store) CommitOrder(ctx context.Context, o domain.Order, changes ...domain.BalanceChange) error {
	const stmt = `
INSERT INTO orders (id, title, supplier_id, consumer_id, price_cents, active, version, admitted_at, processed_at, committed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt, o.ID, o.Title, o.SupplierID, o.ConsumerID, toCents(o.Price),
			o.Active, o.Version, formatTime(o.AdmittedAt), formatTime(o.ProcessedAt), formatTime(o.CommittedAt))
		if err != nil {
			if msg := uniqueViolation(err); strings.Contains(msg, "orders.title") || strings.Contains(msg, "orders_business_key") {
				return domain.ErrDuplicateBusinessKey
			}
			if isCheckViolation(err) && o.SupplierID == o.ConsumerID {
				return domain.NewValidationError("consumer_id", domain.ErrSameParty)
			}
			return fmt.Errorf("sqlite: insert order: %w", err)
		}
		return applyBalanceChanges(ctx, tx, changes)
	})
}

func (s *Store) FindOrder(ctx context.Context, id string) (domain.Order, error) {
	return findOrder(ctx, s.db, id)
}

func findOrder(ctx context.Context, q querier, id string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("sqlite: find order: %w", err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	var where, arg string
	switch {
	case f.ClientID != "":
		where, arg = `(supplier_id = ?1 OR consumer_id = ?1)`, f.ClientID
	case f.SupplierID != "":
		where, arg = `supplier_id = ?1`, f.SupplierID
	case f.ConsumerID != "":
		where, arg = `consumer_id = ?1`, f.ConsumerID
	default:
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE active = 1 AND `+where+` ORDER BY committed_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list orders: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	return out, nil
}

func (s *Store) RepriceOrder(ctx context.Context, id string, price decimal.Decimal, expectedVersion int64, changes ...domain.BalanceChange) error {
	const stmt = `UPDATE orders SET price_cents = ?, version = version + 1 WHERE id = ? AND version = ? AND active = 1`

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, toCents(price), id, expectedVersion)
		if err != nil {
			return fmt.Errorf("sqlite: reprice order: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: reprice order: %w", err)
		} else if n == 0 {
			return missOrConflict(ctx, tx, id)
		}
		return applyBalanceChanges(ctx, tx, changes)
	})
}

func (s *Store) DeactivateOrder(ctx context.Context, id string, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET active = 0, version = version + 1 WHERE id = ? AND version = ? AND active = 1`,
		id, expectedVersion)
	if err != nil {
		return fmt.Errorf("sqlite: deactivate order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deactivate order: %w", err)
	}
	if n == 0 {
		return missOrConflict(ctx, s.db, id)
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete order: %w", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func missOrConflict(ctx context.Context, q querier, id string) error {
	o, err := findOrder(ctx, q, id)
	if err != nil {
		return err
	}
	if !o.Active {
		return domain.ErrOrderNotFound
	}
	return domain.ErrVersionConflict
}
