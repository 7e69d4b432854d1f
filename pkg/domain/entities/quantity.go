package entities

import "github.com/shopspring/decimal"

const (
	// QuantityPlaces is the persisted precision of stock quantities (kg-equivalent)
	QuantityPlaces int32 = 3
	// MoneyPlaces is the persisted precision of unit and extended costs
	MoneyPlaces int32 = 2
)

// RoundQuantity rounds a quantity half-to-even at QuantityPlaces
func RoundQuantity(value decimal.Decimal) decimal.Decimal {
	return value.RoundBank(QuantityPlaces)
}

// RoundMoney rounds a money amount half-to-even at MoneyPlaces
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.RoundBank(MoneyPlaces)
}

// RoundTo rounds half-to-even at an arbitrary precision
func RoundTo(value decimal.Decimal, places int32) decimal.Decimal {
	return value.RoundBank(places)
}

// DecimalPtr returns a pointer to a copy of d
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
