package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a single accounts-payable invoice row.
type Invoice struct {
	ID             string // trimmed
	Date           time.Time
	Amount         decimal.Decimal
	ApprovalStatus string
	Vendor         string
	Row            int // 1-based source row, 0 if unknown
}

// Matchable reports whether the invoice amount can anchor a percentage
// comparison. Zero and negative amounts cannot.
func (inv Invoice) Matchable() bool {
	return inv.Amount.IsPositive()
}

// Key returns the normalized join key for the invoice.
func (inv Invoice) Key() string {
	return NormalizeKey(inv.ID)
}

// Posting is a general-ledger posting row.
type Posting struct {
	ID           string
	LedgerDate   time.Time
	RefInvoiceID string // trimmed, may be blank
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Amount       decimal.Decimal // abs(Debit - Credit)
	Row          int
}

// NewPosting builds a Posting and derives Amount from the debit and credit sides.
func NewPosting(id string, ledgerDate time.Time, ref string, debit, credit decimal.Decimal) Posting {
	return Posting{
		ID:           strings.TrimSpace(id),
		LedgerDate:   ledgerDate,
		RefInvoiceID: strings.TrimSpace(ref),
		Debit:        debit,
		Credit:       credit,
		Amount:       debit.Sub(credit).Abs(),
	}
}

// Key returns the normalized reference key, or "" for unreferenced postings.
func (p Posting) Key() string {
	return NormalizeKey(p.RefInvoiceID)
}

// TaxRecord is the recorded and expected tax for one invoice.
type TaxRecord struct {
	InvoiceID         string
	TaxAmount         decimal.Decimal
	ComputedTaxAmount decimal.Decimal
	Row               int
}

// Diff returns |TaxAmount - ComputedTaxAmount|.
func (t TaxRecord) Diff() decimal.Decimal {
	return t.TaxAmount.Sub(t.ComputedTaxAmount).Abs()
}

// NormalizeKey trims whitespace and upper-cases an invoice reference.
// " inv-001 " -> "INV-001"
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
