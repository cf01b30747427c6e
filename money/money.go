/*
Package money provides currency-unit rounding for billing amounts.

PURPOSE:
  Every amount the engine computes or redistributes is rounded to the
  tenant's money unit (cents by default). The Rounder is the single
  authority for that unit: schedule distribution, leveling and
  carry-forward all count "odd cents" in terms of Rounder.Unit.

PRECISION:
  Amounts are decimal.Decimal throughout - never float64 - so that
  per-charge totals reconcile exactly across installments.

ROUNDING RULE:
  Halves round toward +infinity (round(−12.5 cents) == −12 cents),
  matching the billing platform's historical behavior.

SEE ALSO:
  - schedule/generator.go: weighted distribution and reconciliation
  - schedule/adjust.go: leveling odd-cent handling
*/
package money

import "github.com/shopspring/decimal"

// Unit names the magnitude amounts are rounded to.
type Unit string

const (
	UnitCents  Unit = "cents"  // 0.01 (default)
	UnitWhole  Unit = "whole"  // 1
	UnitMills  Unit = "mills"  // 0.001
	UnitTenths Unit = "tenths" // 0.1
	UnitTens   Unit = "tens"   // 10
)

var half = decimal.New(5, -1)

// Rounder rounds amounts to a configured money unit.
type Rounder struct {
	unit decimal.Decimal
}

// NewRounder returns a Rounder for the given unit. Unknown unit names
// fall back to cents.
func NewRounder(u Unit) Rounder {
	switch u {
	case UnitWhole:
		return Rounder{unit: decimal.New(1, 0)}
	case UnitMills:
		return Rounder{unit: decimal.New(1, -3)}
	case UnitTenths:
		return Rounder{unit: decimal.New(1, -1)}
	case UnitTens:
		return Rounder{unit: decimal.New(1, 1)}
	default:
		return Rounder{unit: decimal.New(1, -2)}
	}
}

// Round rounds d to the nearest money unit, halves toward +infinity.
func (r Rounder) Round(d decimal.Decimal) decimal.Decimal {
	return d.Div(r.unit).Add(half).Floor().Mul(r.unit)
}

// Unit returns the magnitude of one money unit.
func (r Rounder) Unit() decimal.Decimal {
	return r.unit
}

// UnitsIn reports how many whole money units d contains, rounded.
// Used to express rounding slop and leveling residue as an integer
// count of correction steps.
func (r Rounder) UnitsIn(d decimal.Decimal) int64 {
	return r.Round(d).Div(r.unit).IntPart()
}
