package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, title, supplier_id, consumer_id, price::text, active, version, admitted_at, processed_at, committed_at`

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var price string
	err := row.Scan(&o.ID, &o.Title, &o.SupplierID, &o.ConsumerID, &price, &o.Active, &o.Version,
		&o.AdmittedAt, &o.ProcessedAt, &o.CommittedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	o.AdmittedAt = o.AdmittedAt.UTC()
	o.ProcessedAt = o.ProcessedAt.UTC()
	o.CommittedAt = o.CommittedAt.UTC()
	return o, nil
}

func (r *OrderRepository) ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM orders
	WHERE title = $1 AND supplier_id = $2::uuid AND consumer_id = $3::uuid
)`
	var exists bool
	if err := db(ctx, r.pool).QueryRow(ctx, query, key.Title, key.SupplierID, key.ConsumerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check business key: %w", err)
	}
	return exists, nil
}

// CommitOrder inserts the order first so that a racing duplicate waits on
// the business key index and then fails with a unique violation.
func (r *OrderRepository) CommitOrder(ctx context.Context, o domain.Order, changes ...domain.BalanceChange) error {
	const stmt = `
INSERT INTO orders (id, title, supplier_id, consumer_id, price, active, version, admitted_at, processed_at, committed_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		q := db(txCtx, r.pool)
		_, err := q.Exec(txCtx, stmt, o.ID, o.Title, o.SupplierID, o.ConsumerID, o.Price.StringFixed(domain.MoneyScale),
			o.Active, o.Version, o.AdmittedAt, o.ProcessedAt, o.CommittedAt)
		if err != nil {
			if isUniqueViolation(err) && constraintName(err) == "orders_business_key" {
				return domain.ErrDuplicateBusinessKey
			}
			if isCheckViolation(err) && constraintName(err) == "orders_distinct_parties" {
				return domain.NewValidationError("consumer_id", domain.ErrSameParty)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return applyBalanceChanges(txCtx, q, changes)
	})
	return commitError(err)
}

func (r *OrderRepository) FindOrder(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	var where string
	var arg string
	switch {
	case f.ClientID != "":
		where, arg = `(supplier_id = $1 OR consumer_id = $1)`, f.ClientID
	case f.SupplierID != "":
		where, arg = `supplier_id = $1`, f.SupplierID
	case f.ConsumerID != "":
		where, arg = `consumer_id = $1`, f.ConsumerID
	default:
		return nil, nil
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE active AND ` + where + ` ORDER BY committed_at, id`
	rows, err := db(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func (r *OrderRepository) RepriceOrder(ctx context.Context, id string, price decimal.Decimal, expectedVersion int64, changes ...domain.BalanceChange) error {
	const stmt = `
UPDATE orders
SET price = $2::numeric, version = version + 1
WHERE id = $1 AND version = $3 AND active`

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		q := db(txCtx, r.pool)
		tag, err := q.Exec(txCtx, stmt, id, price.StringFixed(domain.MoneyScale), expectedVersion)
		if err != nil {
			return fmt.Errorf("reprice order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missOrConflict(txCtx, id)
		}
		return applyBalanceChanges(txCtx, q, changes)
	})
	return commitError(err)
}

func (r *OrderRepository) DeactivateOrder(ctx context.Context, id string, expectedVersion int64) error {
	const stmt = `
UPDATE orders
SET active = FALSE, version = version + 1
WHERE id = $1 AND version = $2 AND active`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, id, expectedVersion)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("deactivate order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	tag, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// missOrConflict explains a conditional update that matched no row.
func (r *OrderRepository) missOrConflict(ctx context.Context, id string) error {
	o, err := r.FindOrder(ctx, id)
	if err != nil {
		return err
	}
	if !o.Active {
		return domain.ErrOrderNotFound
	}
	return domain.ErrVersionConflict
}
