// Package source loads invoices, postings and tax records into an
// engine.Input from CSV files or a SQLite database.
package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

// Column names shared by every source.
const (
	colInvoiceID      = "invoice_id"
	colInvoiceDate    = "invoice_date"
	colInvoiceAmount  = "invoice_amount"
	colApprovalStatus = "approval_status"
	colVendor         = "vendor"

	colPostingID    = "posting_id"
	colLedgerDate   = "ledger_date"
	colRefInvoiceID = "ref_invoice_id"
	colDebit        = "debit"
	colCredit       = "credit"

	colTaxAmount         = "tax_amount"
	colComputedTaxAmount = "computed_tax_amount"
)

var (
	invoiceColumns = []string{colInvoiceID, colInvoiceDate, colInvoiceAmount, colApprovalStatus, colVendor}
	postingColumns = []string{colPostingID, colLedgerDate, colRefInvoiceID, colDebit, colCredit}
	taxColumns     = []string{colInvoiceID, colTaxAmount, colComputedTaxAmount}
)

// FieldError identifies the record and field that failed to parse.
type FieldError struct {
	Source string
	Row    int
	Field  string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s row %d: %s %q: %v", e.Source, e.Row, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errBlank = errors.New("value is required")

// record reads one named field of a row. Values are already trimmed.
type record func(field string) string

// parser turns records from one source into model values, tagging failures
// with the source name and row.
type parser struct {
	source string
	layout string
}

func (p parser) fail(row int, field, value string, err error) error {
	return &FieldError{Source: p.source, Row: row, Field: field, Value: value, Err: err}
}

func (p parser) required(rec record, row int, field string) (string, error) {
	v := rec(field)
	if v == "" {
		return "", p.fail(row, field, v, errBlank)
	}
	return v, nil
}

func (p parser) date(rec record, row int, field string) (time.Time, error) {
	v, err := p.required(rec, row, field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(p.layout, v)
	if err != nil {
		return time.Time{}, p.fail(row, field, v, err)
	}
	return t, nil
}

func (p parser) amount(rec record, row int, field string) (decimal.Decimal, error) {
	v, err := p.required(rec, row, field)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return p.decimal(row, field, v)
}

// optionalAmount treats a blank value as zero.
func (p parser) optionalAmount(rec record, row int, field string) (decimal.Decimal, error) {
	v := rec(field)
	if v == "" {
		return decimal.Zero, nil
	}
	return p.decimal(row, field, v)
}

func (p parser) decimal(row int, field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return decimal.Decimal{}, p.fail(row, field, v, err)
	}
	return d, nil
}

func (p parser) invoice(rec record, row int) (model.Invoice, error) {
	id, err := p.required(rec, row, colInvoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	date, err := p.date(rec, row, colInvoiceDate)
	if err != nil {
		return model.Invoice{}, err
	}
	amount, err := p.amount(rec, row, colInvoiceAmount)
	if err != nil {
		return model.Invoice{}, err
	}
	return model.Invoice{
		ID:             id,
		Date:           date,
		Amount:         amount,
		ApprovalStatus: rec(colApprovalStatus),
		Vendor:         rec(colVendor),
		Row:            row,
	}, nil
}

func (p parser) posting(rec record, row int) (model.Posting, error) {
	id, err := p.required(rec, row, colPostingID)
	if err != nil {
		return model.Posting{}, err
	}
	date, err := p.date(rec, row, colLedgerDate)
	if err != nil {
		return model.Posting{}, err
	}
	debit, err := p.optionalAmount(rec, row, colDebit)
	if err != nil {
		return model.Posting{}, err
	}
	credit, err := p.optionalAmount(rec, row, colCredit)
	if err != nil {
		return model.Posting{}, err
	}
	posting := model.NewPosting(id, date, rec(colRefInvoiceID), debit, credit)
	posting.Row = row
	return posting, nil
}

func (p parser) tax(rec record, row int) (model.TaxRecord, error) {
	id, err := p.required(rec, row, colInvoiceID)
	if err != nil {
		return model.TaxRecord{}, err
	}
	recorded, err := p.amount(rec, row, colTaxAmount)
	if err != nil {
		return model.TaxRecord{}, err
	}
	computed, err := p.amount(rec, row, colComputedTaxAmount)
	if err != nil {
		return model.TaxRecord{}, err
	}
	return model.TaxRecord{
		InvoiceID:         id,
		TaxAmount:         recorded,
		ComputedTaxAmount: computed,
		Row:               row,
	}, nil
}
