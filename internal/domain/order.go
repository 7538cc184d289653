package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed transfer of value from a consumer to a supplier.
// Orders are only persisted once committed; admission and processing are
// in-memory phases of OrderService.Create.
type Order struct {
	ID          string
	Title       string
	SupplierID  string
	ConsumerID  string
	Price       decimal.Decimal
	Active      bool
	Version     int64
	AdmittedAt  time.Time
	ProcessedAt time.Time
	CommittedAt time.Time
}

// BusinessKey identifies an order for duplicate suppression. The key stays
// taken after the order is deactivated.
type BusinessKey struct {
	Title      string
	SupplierID string
	ConsumerID string
}

func (o Order) Key() BusinessKey {
	return BusinessKey{Title: o.Title, SupplierID: o.SupplierID, ConsumerID: o.ConsumerID}
}

// OrderFilter selects active orders by party. Exactly one field is expected to be set;
// ClientID matches either side.
type OrderFilter struct {
	ClientID   string
	SupplierID string
	ConsumerID string
}
