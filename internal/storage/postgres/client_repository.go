package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const clientColumns = `id, name, last_name, email, address, COALESCE(phone, ''), active, inactive_at, profit::text, version, state_version, created_at`

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	var profit string
	var inactiveAt *time.Time
	err := row.Scan(&c.ID, &c.Name, &c.LastName, &c.Email, &c.Address, &c.Phone,
		&c.Active, &inactiveAt, &profit, &c.Version, &c.StateVersion, &c.CreatedAt)
	if err != nil {
		return domain.Client{}, err
	}
	c.Profit, err = decimal.NewFromString(profit)
	if err != nil {
		return domain.Client{}, fmt.Errorf("parse profit %q: %w", profit, err)
	}
	if inactiveAt != nil {
		t := inactiveAt.UTC()
		c.InactiveAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (r *ClientRepository) FindClient(ctx context.Context, id string) (domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Client{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("find client: %w", err)
	}
	return c, nil
}

func (r *ClientRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM clients WHERE lower(email) = lower($1) AND id::text <> $2)`
	var exists bool
	if err := db(ctx, r.pool).QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (r *ClientRepository) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM clients WHERE phone = $1 AND id::text <> $2)`
	var exists bool
	if err := db(ctx, r.pool).QueryRow(ctx, query, phone, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check phone: %w", err)
	}
	return exists, nil
}

func (r *ClientRepository) CreateClient(ctx context.Context, c domain.Client) error {
	const stmt = `
INSERT INTO clients (id, name, last_name, email, address, phone, active, inactive_at, profit, version, state_version, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9::numeric, $10, $11, $12)`

	_, err := db(ctx, r.pool).Exec(ctx, stmt, c.ID, c.Name, c.LastName, c.Email, c.Address, c.Phone,
		c.Active, c.InactiveAt, c.Profit.StringFixed(domain.MoneyScale), c.Version, c.StateVersion, c.CreatedAt)
	if err != nil {
		if mapped := contactConflict(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (r *ClientRepository) UpdateClient(ctx context.Context, c domain.Client, expectedStateVersion int64) error {
	const stmt = `
UPDATE clients
SET name = $2, last_name = $3, email = $4, address = $5, phone = NULLIF($6, ''),
	active = $7, inactive_at = $8, state_version = state_version + 1
WHERE id = $1 AND state_version = $9`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, c.ID, c.Name, c.LastName, c.Email, c.Address, c.Phone,
		c.Active, c.InactiveAt, expectedStateVersion)
	if err != nil {
		if mapped := contactConflict(err); mapped != nil {
			return mapped
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindClient(ctx, c.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func contactConflict(err error) error {
	if !isUniqueViolation(err) {
		return nil
	}
	switch constraintName(err) {
	case "clients_email_key":
		return domain.ErrEmailTaken
	case "clients_phone_key":
		return domain.ErrPhoneTaken
	}
	return nil
}

// likePattern escapes LIKE metacharacters so the keyword matches literally.
func likePattern(keyword string) string {
	return "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keyword) + "%"
}

func (r *ClientRepository) SearchActiveClients(ctx context.Context, keyword string, page domain.Page) ([]domain.Client, error) {
	query := `
SELECT ` + clientColumns + `
FROM clients
WHERE active AND (name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR address ILIKE $1)
ORDER BY created_at, id
LIMIT $2 OFFSET $3`
	return r.list(ctx, "search clients", query, likePattern(keyword), page.Size, page.Offset())
}

func (r *ClientRepository) ListClientsByProfit(ctx context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error) {
	query := `
SELECT ` + clientColumns + `
FROM clients
WHERE profit BETWEEN $1::numeric AND $2::numeric
ORDER BY profit DESC, id
LIMIT $3 OFFSET $4`
	return r.list(ctx, "list clients by profit", query, min.String(), max.String(), page.Size, page.Offset())
}

func (r *ClientRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Client, error) {
	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *ClientRepository) ResetAllProfit(ctx context.Context) (int64, error) {
	tag, err := db(ctx, r.pool).Exec(ctx, `UPDATE clients SET profit = 0, version = version + 1`)
	if err != nil {
		return 0, fmt.Errorf("reset profit: %w", err)
	}
	return tag.RowsAffected(), nil
}
