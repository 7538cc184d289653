package app

import (
	"context"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ClientReader loads point-in-time client snapshots.
type ClientReader interface {
	// FindClient returns domain.ErrClientNotFound when no client has the id.
	FindClient(ctx context.Context, id string) (domain.Client, error)
}

type ClientRepository interface {
	ClientReader
	// ExistsByEmail and ExistsByPhone ignore the client with id excludeID (may be empty).
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error)
	CreateClient(ctx context.Context, client domain.Client) error
	// UpdateClient writes the profile and active state when the stored
	// StateVersion equals expectedStateVersion, advancing it by one. The
	// balance and its Version are left untouched.
	UpdateClient(ctx context.Context, client domain.Client, expectedStateVersion int64) error
	SearchActiveClients(ctx context.Context, keyword string, page domain.Page) ([]domain.Client, error)
	ListClientsByProfit(ctx context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error)
	// ResetAllProfit zeroes every balance and advances every balance Version.
	ResetAllProfit(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	// ExistsByBusinessKey includes deactivated orders.
	ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error)
	// CommitOrder inserts the order and applies every balance change in one
	// transaction. A change whose ExpectedVersion is stale fails the whole
	// commit with domain.ErrVersionConflict; a taken business key fails it
	// with domain.ErrDuplicateBusinessKey.
	CommitOrder(ctx context.Context, order domain.Order, changes ...domain.BalanceChange) error
	FindOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// RepriceOrder sets a new price on an active order at expectedVersion and
	// applies the balance changes in the same transaction.
	RepriceOrder(ctx context.Context, id string, price decimal.Decimal, expectedVersion int64, changes ...domain.BalanceChange) error
	DeactivateOrder(ctx context.Context, id string, expectedVersion int64) error
	DeleteOrder(ctx context.Context, id string) error
}

// OrderCache is an optional read cache for Get. Entries are invalidated by
// every order write; Get re-reads the row after filling an entry so a write
// racing the fill does not leave a stale copy behind.
type OrderCache interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	SetOrder(ctx context.Context, order domain.Order) error
	InvalidateOrder(ctx context.Context, id string) error
}
