// Package compliance evaluates invoice-level rules that are independent of
// whether an invoice reconciled.
package compliance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

// Config holds the rule thresholds.
type Config struct {
	TaxMismatchThreshold decimal.Decimal // flag when |recorded - computed| exceeds this
	HighSeverityTaxDiff  decimal.Decimal // tax mismatches above this are high severity
	HighValueThreshold   decimal.Decimal // invoices above this need approval
	ApprovedStatus       string
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TaxMismatchThreshold: decimal.RequireFromString("100.00"),
		HighSeverityTaxDiff:  decimal.NewFromInt(1000),
		HighValueThreshold:   decimal.RequireFromString("100000.00"),
		ApprovedStatus:       "Approved",
	}
}

// Validate rejects negative thresholds and an empty approval status.
func (c Config) Validate() error {
	if c.TaxMismatchThreshold.IsNegative() {
		return fmt.Errorf("tax mismatch threshold %s is negative", c.TaxMismatchThreshold)
	}
	if c.HighSeverityTaxDiff.LessThan(c.TaxMismatchThreshold) {
		return fmt.Errorf("high severity tax diff %s is below mismatch threshold %s",
			c.HighSeverityTaxDiff, c.TaxMismatchThreshold)
	}
	if c.HighValueThreshold.IsNegative() {
		return fmt.Errorf("high value threshold %s is negative", c.HighValueThreshold)
	}
	if strings.TrimSpace(c.ApprovedStatus) == "" {
		return errors.New("approved status is empty")
	}
	return nil
}

// Check runs every rule over the invoices. Tax findings come first, then
// approval findings, each in invoice order. An invoice may appear under
// both rules.
func Check(cfg Config, invoices []model.Invoice, taxes []model.TaxRecord) []model.ComplianceIssue {
	issues := TaxMismatches(cfg, invoices, taxes)
	return append(issues, MissingApprovals(cfg, invoices)...)
}

// TaxMismatches flags invoices whose recorded tax differs from the computed
// tax by more than the threshold. Invoices without a tax record are not
// flagged.
func TaxMismatches(cfg Config, invoices []model.Invoice, taxes []model.TaxRecord) []model.ComplianceIssue {
	byInvoice := make(map[string][]model.TaxRecord, len(taxes))
	for _, tr := range taxes {
		byInvoice[tr.InvoiceID] = append(byInvoice[tr.InvoiceID], tr)
	}

	var issues []model.ComplianceIssue
	for _, inv := range invoices {
		for _, tr := range byInvoice[inv.ID] {
			diff := tr.Diff()
			if !diff.GreaterThan(cfg.TaxMismatchThreshold) {
				continue
			}
			severity := model.SeverityMedium
			if diff.GreaterThan(cfg.HighSeverityTaxDiff) {
				severity = model.SeverityHigh
			}
			issues = append(issues, model.ComplianceIssue{
				InvoiceID: inv.ID,
				IssueType: model.IssueTaxMismatch,
				Severity:  severity,
				Description: fmt.Sprintf("Tax recorded %s vs computed %s",
					tr.TaxAmount.StringFixed(2), tr.ComputedTaxAmount.StringFixed(2)),
			})
		}
	}
	return issues
}

// MissingApprovals flags high-value invoices that are not approved.
func MissingApprovals(cfg Config, invoices []model.Invoice) []model.ComplianceIssue {
	var issues []model.ComplianceIssue
	for _, inv := range invoices {
		if !inv.Amount.GreaterThan(cfg.HighValueThreshold) {
			continue
		}
		if strings.TrimSpace(inv.ApprovalStatus) == cfg.ApprovedStatus {
			continue
		}
		issues = append(issues, model.ComplianceIssue{
			InvoiceID:   inv.ID,
			IssueType:   model.IssueMissingApproval,
			Severity:    model.SeverityHigh,
			Description: fmt.Sprintf("High value invoice %s missing approval", inv.Amount.StringFixed(2)),
		})
	}
	return issues
}
