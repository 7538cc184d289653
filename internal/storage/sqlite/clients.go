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

const clientColumns = `id, name, last_name, email, address, COALESCE(phone, ''), active, inactive_at, profit_cents, version, state_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c          domain.Client
		inactiveAt sql.NullString
		cents      int64
		createdAt  string
	)
	err := row.Scan(&c.ID, &c.Name, &c.LastName, &c.Email, &c.Address, &c.Phone,
		&c.Active, &inactiveAt, &cents, &c.Version, &c.StateVersion, &createdAt)
	if err != nil {
		return domain.Client{}, err
	}
	c.Profit = fromCents(cents)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Client{}, err
	}
	if inactiveAt.Valid {
		t, err := parseTime(inactiveAt.String)
		if err != nil {
			return domain.Client{}, err
		}
		c.InactiveAt = &t
	}
	return c, nil
}

func (s *Store) FindClient(ctx context.Context, id string) (domain.Client, error) {
	return findClient(ctx, s.db, id)
}

func findClient(ctx context.Context, q querier, id string) (domain.Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, domain.ErrClientNotFound
	}
	if err != nil {
		return domain.Client{}, fmt.Errorf("sqlite: find client: %w", err)
	}
	return c, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE lower(email) = lower(?) AND id <> ?)`,
		email, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: check email: %w", err)
	}
	return exists, nil
}

func (s *Store) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE phone = ? AND id <> ?)`,
		phone, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: check phone: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateClient(ctx context.Context, c domain.Client) error {
	const stmt = `
INSERT INTO clients (id, name, last_name, email, address, phone, active, inactive_at, profit_cents, version, state_version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt, c.ID, c.Name, c.LastName, c.Email, c.Address, nullableString(c.Phone),
		c.Active, nullableTime(c.InactiveAt), toCents(c.Profit), c.Version, c.StateVersion, formatTime(c.CreatedAt))
	if err != nil {
		if mapped := contactConflict(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("sqlite: create client: %w", err)
	}
	return nil
}

func (s *Store) UpdateClient(ctx context.Context, c domain.Client, expectedStateVersion int64) error {
	const stmt = `
UPDATE clients
SET name = ?, last_name = ?, email = ?, address = ?, phone = ?, active = ?, inactive_at = ?,
	state_version = state_version + 1
WHERE id = ? AND state_version = ?`

	res, err := s.db.ExecContext(ctx, stmt, c.Name, c.LastName, c.Email, c.Address, nullableString(c.Phone),
		c.Active, nullableTime(c.InactiveAt), c.ID, expectedStateVersion)
	if err != nil {
		if mapped := contactConflict(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("sqlite: update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update client: %w", err)
	}
	if n == 0 {
		if _, err := s.FindClient(ctx, c.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func contactConflict(err error) error {
	msg := uniqueViolation(err)
	switch {
	case msg == "":
		return nil
	case strings.Contains(msg, "clients_email_key"), strings.Contains(msg, "clients.email"):
		return domain.ErrEmailTaken
	case strings.Contains(msg, "clients_phone_key"), strings.Contains(msg, "clients.phone"):
		return domain.ErrPhoneTaken
	}
	return nil
}

func (s *Store) SearchActiveClients(ctx context.Context, keyword string, page domain.Page) ([]domain.Client, error) {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keyword) + "%"
	query := `
SELECT ` + clientColumns + `
FROM clients
WHERE active = 1 AND (
	name LIKE ?1 ESCAPE '\' OR last_name LIKE ?1 ESCAPE '\' OR
	email LIKE ?1 ESCAPE '\' OR address LIKE ?1 ESCAPE '\'
)
ORDER BY created_at, id
LIMIT ?2 OFFSET ?3`
	return s.listClients(ctx, "search clients", query, pattern, page.Size, page.Offset())
}

func (s *Store) ListClientsByProfit(ctx context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error) {
	query := `
SELECT ` + clientColumns + `
FROM clients
WHERE profit_cents BETWEEN ? AND ?
ORDER BY profit_cents DESC, id
LIMIT ? OFFSET ?`
	// Round the bounds inward so the range never widens.
	lo := min.Shift(domain.MoneyScale).Ceil().IntPart()
	hi := max.Shift(domain.MoneyScale).Floor().IntPart()
	return s.listClients(ctx, "list clients by profit", query, lo, hi, page.Size, page.Offset())
}

func (s *Store) listClients(ctx context.Context, op, query string, args ...any) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return out, nil
}

func (s *Store) ResetAllProfit(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE clients SET profit_cents = 0, version = version + 1`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reset profit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reset profit: %w", err)
	}
	return n, nil
}
