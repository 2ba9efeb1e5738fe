package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExceptionIssue classifies an invoice that did not reconcile.
type ExceptionIssue string

const (
	IssueUnmatchedInvoice  ExceptionIssue = "unmatched_invoice"
	IssueNonPositiveAmount ExceptionIssue = "non_positive_amount"
)

// Exception is an invoice with no surviving match candidate.
type Exception struct {
	InvoiceID      string
	Issue          ExceptionIssue
	InvoiceDate    time.Time
	InvoiceAmount  decimal.Decimal
	Vendor         string
	ApprovalStatus string
}

// ComplianceIssueType names the rule that raised a finding.
type ComplianceIssueType string

const (
	IssueTaxMismatch     ComplianceIssueType = "tax_mismatch"
	IssueMissingApproval ComplianceIssueType = "missing_approval"
)

// Severity ranks a compliance finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// ComplianceIssue is a rule-based finding on one invoice. It is independent
// of the invoice's match outcome.
type ComplianceIssue struct {
	InvoiceID   string
	IssueType   ComplianceIssueType
	Severity    Severity
	Description string
}
