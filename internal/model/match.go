package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchType identifies the strategy that produced a match candidate.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchAmountTolerance MatchType = "amount_tolerance"
	MatchFuzzy           MatchType = "fuzzy"
)

var (
	scoreExact     = decimal.RequireFromString("1.0")
	scoreTolerance = decimal.RequireFromString("0.9")
	scoreFuzzy     = decimal.RequireFromString("0.6")
)

// Score returns the fixed confidence of the strategy.
func (t MatchType) Score() decimal.Decimal {
	switch t {
	case MatchExact:
		return scoreExact
	case MatchAmountTolerance:
		return scoreTolerance
	case MatchFuzzy:
		return scoreFuzzy
	default:
		return decimal.Zero
	}
}

// Priority returns the stage index in [exact, amount_tolerance, fuzzy].
// Lower wins. Unknown types sort last.
func (t MatchType) Priority() int {
	switch t {
	case MatchExact:
		return 0
	case MatchAmountTolerance:
		return 1
	case MatchFuzzy:
		return 2
	default:
		return 3
	}
}

// MatchCandidate is one proposed pairing of an invoice with posting(s).
type MatchCandidate struct {
	InvoiceID    string
	PostingIDs   []string
	Type         MatchType
	Score        decimal.Decimal
	GLAmount     decimal.Decimal // posting amount, or the aggregate for tolerance matches
	PostingCount int
	PctDiff      decimal.Decimal // zero for exact matches
	DateDiffDays int             // fuzzy only
	Seq          int             // production order within the stage
}

// ReconciledRecord is the single surviving match for an invoice.
type ReconciledRecord struct {
	MatchCandidate
	InvoiceDate    time.Time
	InvoiceAmount  decimal.Decimal
	Vendor         string
	ApprovalStatus string
}
