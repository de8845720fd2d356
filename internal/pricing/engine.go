package pricing

import "github.com/shopspring/decimal"

// TaxRate is the flat sales tax applied to every cart (12.5%).
var TaxRate = decimal.RequireFromString("0.125")

var hundred = decimal.NewFromInt(100)

// Line describes a priced line item used for totals calculation.
type Line struct {
	UnitPrice decimal.Decimal
	Qty       int
}

// Summary aggregates computed totals. Values are already rounded for display.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// RoundUp lifts x to the next whole cent. Exact cents are left untouched.
func RoundUp(x decimal.Decimal) decimal.Decimal {
	return x.Mul(hundred).Ceil().Div(hundred)
}

// RoundCents rounds x to two decimal places, halves away from zero.
func RoundCents(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// Compute calculates cart totals.
//
// The subtotal is reported with ordinary cent rounding while tax and total are
// always rounded up. Total is derived from the unrounded subtotal plus the
// already rounded tax.
func Compute(lines []Line) Summary {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	tax := RoundUp(subtotal.Mul(TaxRate))
	total := RoundUp(subtotal.Add(tax))
	return Summary{
		Subtotal: RoundCents(subtotal),
		Tax:      tax,
		Total:    total,
	}
}
