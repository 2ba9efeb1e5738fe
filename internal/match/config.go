// Package match implements the cascading invoice-to-ledger match strategies
// and the deduplication that picks one winner per invoice.
package match

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tunable match tolerances.
type Config struct {
	AmountTolerancePct  decimal.Decimal // tolerance stage, percent of invoice amount
	FuzzyPctTolerance   decimal.Decimal // fuzzy stage, percent of invoice amount
	FuzzyDateWindowDays int
}

// DefaultConfig returns the standard tolerances: 0.5%, 2.0% and 7 days.
func DefaultConfig() Config {
	return Config{
		AmountTolerancePct:  decimal.RequireFromString("0.5"),
		FuzzyPctTolerance:   decimal.RequireFromString("2.0"),
		FuzzyDateWindowDays: 7,
	}
}

// Validate rejects negative tolerances.
func (c Config) Validate() error {
	if c.AmountTolerancePct.IsNegative() {
		return fmt.Errorf("amount tolerance %s%% is negative", c.AmountTolerancePct)
	}
	if c.FuzzyPctTolerance.IsNegative() {
		return fmt.Errorf("fuzzy tolerance %s%% is negative", c.FuzzyPctTolerance)
	}
	if c.FuzzyDateWindowDays < 0 {
		return fmt.Errorf("fuzzy date window %d is negative", c.FuzzyDateWindowDays)
	}
	return nil
}
