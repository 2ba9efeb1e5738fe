package match

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PctDiff returns |invoiceAmount - other| / invoiceAmount * 100.
// The second result is false when invoiceAmount is zero or negative, in which
// case no percentage exists.
func PctDiff(invoiceAmount, other decimal.Decimal) (decimal.Decimal, bool) {
	if !invoiceAmount.IsPositive() {
		return decimal.Zero, false
	}
	return invoiceAmount.Sub(other).Abs().Mul(hundred).Div(invoiceAmount), true
}

// DaysBetween returns the absolute number of whole days between a and b.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int(d / (24 * time.Hour))
}
