package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vsinha/costing/pkg/domain/entities"
)

type unitFamily int

const (
	massFamily unitFamily = iota
	volumeFamily
)

type unitDef struct {
	family unitFamily
	// factor converts one unit into the family base (kg or l)
	factor decimal.Decimal
}

var unitTable = map[string]unitDef{
	"kg": {massFamily, decimal.NewFromInt(1)},
	"g":  {massFamily, decimal.RequireFromString("0.001")},
	"mg": {massFamily, decimal.RequireFromString("0.000001")},
	"t":  {massFamily, decimal.NewFromInt(1000)},
	"lb": {massFamily, decimal.RequireFromString("0.45359237")},
	"oz": {massFamily, decimal.RequireFromString("0.028349523125")},

	"l":     {volumeFamily, decimal.NewFromInt(1)},
	"ml":    {volumeFamily, decimal.RequireFromString("0.001")},
	"m3":    {volumeFamily, decimal.NewFromInt(1000)},
	"gal":   {volumeFamily, decimal.RequireFromString("3.785411784")},
	"fl_oz": {volumeFamily, decimal.RequireFromString("0.0295735295625")},
}

var unitAliases = map[string]string{
	"kilogram": "kg", "kilograms": "kg", "kgs": "kg",
	"gram": "g", "grams": "g",
	"milligram": "mg",
	"tonne": "t", "ton": "t",
	"lbs": "lb", "pound": "lb", "pounds": "lb",
	"ounce": "oz",
	"liter": "l", "litre": "l", "liters": "l", "litres": "l", "lt": "l",
	"milliliter": "ml", "millilitre": "ml",
	"gallon": "gal", "gallons": "gal",
	"floz": "fl_oz", "fl oz": "fl_oz",
}

func lookupUnit(unit string) (unitDef, bool) {
	key := strings.ToLower(strings.TrimSpace(unit))
	if alias, ok := unitAliases[key]; ok {
		key = alias
	}
	def, ok := unitTable[key]
	return def, ok
}

// ConvertUnits converts quantity between mass and volume units.
// Volume/mass conversions need densityKgPerL; the result is quantity-rounded.
func ConvertUnits(quantity decimal.Decimal, fromUnit, toUnit string, densityKgPerL *decimal.Decimal) (decimal.Decimal, error) {
	from, ok := lookupUnit(fromUnit)
	if !ok {
		return decimal.Zero, &entities.UnsupportedUnitError{Unit: fromUnit}
	}
	to, ok := lookupUnit(toUnit)
	if !ok {
		return decimal.Zero, &entities.UnsupportedUnitError{Unit: toUnit}
	}

	base := quantity.Mul(from.factor)
	if from.family != to.family {
		if densityKgPerL == nil {
			return decimal.Zero, &entities.MissingDensityError{From: fromUnit, To: toUnit}
		}
		if !densityKgPerL.IsPositive() {
			return decimal.Zero, &entities.InvalidArgumentError{Field: "density", Reason: "must be positive"}
		}
		if from.family == volumeFamily {
			base = base.Mul(*densityKgPerL)
		} else {
			base = base.Div(*densityKgPerL)
		}
	}

	return entities.RoundQuantity(base.Div(to.factor)), nil
}

// IsSupportedUnit reports whether unit belongs to the known unit set
func IsSupportedUnit(unit string) bool {
	_, ok := lookupUnit(unit)
	return ok
}

// CanonicalUnit is the unit lot quantities are stored in
const CanonicalUnit = "kg"

// ToCanonical restates a quantity and its per-unit cost in kilograms.
// The cost keeps the extended value of the original quantity.
func ToCanonical(quantity, unitCost decimal.Decimal, unit string, densityKgPerL *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if unit == "" {
		unit = CanonicalUnit
	}
	kg, err := ConvertUnits(quantity, unit, CanonicalUnit, densityKgPerL)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !kg.IsPositive() {
		return decimal.Zero, decimal.Zero, &entities.InvalidArgumentError{Field: "quantity", Reason: "must be positive, got " + quantity.String() + " " + unit}
	}
	return kg, entities.RoundMoney(quantity.Mul(unitCost).Div(kg)), nil
}
