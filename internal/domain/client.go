package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a party that supplies or consumes orders and carries a running profit balance.
//
// Version guards the balance: every ledger commit and profit reset is
// conditional on it and increments it. StateVersion guards the profile and
// the active flag and is advanced by updates and lifecycle transitions.
type Client struct {
	ID           string
	Name         string
	LastName     string
	Email        string
	Address      string
	Phone        string
	Active       bool
	InactiveAt   *time.Time
	Profit       decimal.Decimal
	Version      int64
	StateVersion int64
	CreatedAt    time.Time
}

// BalanceChange is the conditional write a ledger commit applies to one client.
type BalanceChange struct {
	ClientID        string
	ExpectedVersion int64
	Profit          decimal.Decimal
}

// Page selects a window of a listing.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return p.Number * p.Size
}
