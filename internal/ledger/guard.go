// Package ledger holds the admission rules of the profit ledger: the pure
// balance guard and the business-key uniqueness guard.
package ledger

import (
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Admission is the point-in-time view an order is admitted against.
// Supplier and Consumer are nil when the client does not exist.
type Admission struct {
	SupplierID string
	ConsumerID string
	Supplier   *domain.Client
	Consumer   *domain.Client
	Price      decimal.Decimal
}

// Guard enforces the profit floor and active-party rules. It performs no I/O.
type Guard struct {
	Floor decimal.Decimal
}

func NewGuard() Guard {
	return Guard{Floor: domain.ProfitFloor}
}

// Check runs the admission rules in order and returns the consumer's
// projected profit when the order is allowed.
func (g Guard) Check(a Admission) (decimal.Decimal, error) {
	if a.SupplierID == a.ConsumerID {
		return decimal.Zero, domain.NewValidationError("consumer_id", domain.ErrSameParty)
	}
	if !domain.ValidPrice(a.Price) {
		return decimal.Zero, domain.NewValidationError("price", domain.ErrInvalidPrice)
	}
	if !isActive(a.Supplier) || !isActive(a.Consumer) {
		return decimal.Zero, domain.ErrPartyInactiveOrMissing
	}
	return g.Debit(a.Consumer.Profit, a.Price)
}

// Debit returns balance-amount, or ErrProfitFloorBreached when the result
// would not stay strictly above the floor.
func (g Guard) Debit(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	projected := balance.Sub(amount)
	if !projected.GreaterThan(g.Floor) {
		return decimal.Zero, domain.ErrProfitFloorBreached
	}
	return projected, nil
}

// Reprice returns the supplier and consumer balances after an order's price
// moves from oldPrice to newPrice. Only a raise can breach the floor.
func (g Guard) Reprice(supplier, consumer, oldPrice, newPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !domain.ValidPrice(newPrice) {
		return decimal.Zero, decimal.Zero, domain.NewValidationError("price", domain.ErrInvalidPrice)
	}
	delta := newPrice.Sub(oldPrice)
	if delta.IsPositive() {
		projected, err := g.Debit(consumer, delta)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return supplier.Add(delta), projected, nil
	}
	return supplier.Add(delta), consumer.Sub(delta), nil
}

func isActive(c *domain.Client) bool {
	return c != nil && c.Active
}
