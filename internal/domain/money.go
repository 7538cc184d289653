package domain

import "github.com/shopspring/decimal"

// ProfitFloor is the exclusive lower bound for a consumer's projected profit.
var ProfitFloor = decimal.NewFromInt(-1000)

// MoneyScale is the number of fractional digits stored for prices and balances.
const MoneyScale = 2

// AboveFloor reports whether a projected balance may be committed.
func AboveFloor(projected decimal.Decimal) bool {
	return projected.GreaterThan(ProfitFloor)
}

// ValidPrice reports whether p is positive and representable at MoneyScale.
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.Equal(p.Round(MoneyScale))
}
