package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func inv(id, amount, status string, d time.Time) model.Invoice {
	return model.Invoice{ID: id, Date: d, Amount: dec(amount), ApprovalStatus: status, Vendor: "Vendor " + id}
}

func post(id, ref, debit, credit string, d time.Time) model.Posting {
	return model.NewPosting(id, d, ref, dec(debit), dec(credit))
}

// sampleInput covers every outcome: exact, tolerance-only (exact ref but the
// invoice key differs in case), fuzzy-only, unmatched, and a zero amount.
func sampleInput() Input {
	return Input{
		Invoices: []model.Invoice{
			inv("INV-100", "1000.00", "Approved", date(2025, 1, 5)),
			inv("INV-200", "150000.00", "Pending", date(2025, 1, 6)),
			inv("INV-300", "750.00", "Approved", date(2025, 1, 7)),
			inv("INV-400", "42.00", "Approved", date(2025, 1, 8)),
			inv("INV-500", "0", "Approved", date(2025, 1, 9)),
		},
		Postings: []model.Posting{
			post("GL-1", "INV-100", "1000.00", "0", date(2025, 1, 5)),
			post("GL-2", "INV-200", "100000.00", "0", date(2025, 1, 6)),
			post("GL-3", "INV-200", "50000.00", "0", date(2025, 1, 6)),
			post("GL-4", "", "0", "760.00", date(2025, 1, 12)),
			post("GL-5", "", "999.00", "0", date(2025, 1, 6)),
		},
		Taxes: []model.TaxRecord{
			{InvoiceID: "INV-100", TaxAmount: dec("500"), ComputedTaxAmount: dec("300")},
			{InvoiceID: "INV-300", TaxAmount: dec("2000"), ComputedTaxAmount: dec("300")},
		},
	}
}

func newTestEngine() (*Engine, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(DefaultOptions(), logger), hook
}

func TestRun_Outcomes(t *testing.T) {
	eng, hook := newTestEngine()
	res, err := eng.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	byID := make(map[string]model.ReconciledRecord)
	for _, r := range res.Reconciled {
		byID[r.InvoiceID] = r
	}
	require.Len(t, byID, 3)

	// Exact beats the fuzzy candidate GL-5 offers for INV-100.
	assert.Equal(t, model.MatchExact, byID["INV-100"].Type)
	assert.Equal(t, []string{"GL-1"}, byID["INV-100"].PostingIDs)

	// Two exact candidates: the first posting wins.
	assert.Equal(t, model.MatchExact, byID["INV-200"].Type)
	assert.Equal(t, []string{"GL-2"}, byID["INV-200"].PostingIDs)

	assert.Equal(t, model.MatchFuzzy, byID["INV-300"].Type)
	assert.Equal(t, []string{"GL-4"}, byID["INV-300"].PostingIDs)
	assert.Equal(t, 5, byID["INV-300"].DateDiffDays)

	require.Len(t, res.Exceptions, 2)
	assert.Equal(t, "INV-400", res.Exceptions[0].InvoiceID)
	assert.Equal(t, model.IssueUnmatchedInvoice, res.Exceptions[0].Issue)
	assert.Equal(t, "INV-500", res.Exceptions[1].InvoiceID)
	assert.Equal(t, model.IssueNonPositiveAmount, res.Exceptions[1].Issue)

	require.Len(t, res.Issues, 3)
	assert.Equal(t, model.ComplianceIssue{
		InvoiceID:   "INV-100",
		IssueType:   model.IssueTaxMismatch,
		Severity:    model.SeverityMedium,
		Description: "Tax recorded 500.00 vs computed 300.00",
	}, res.Issues[0])
	assert.Equal(t, model.SeverityHigh, res.Issues[1].Severity)
	assert.Equal(t, model.IssueMissingApproval, res.Issues[2].IssueType)
	assert.Equal(t, "INV-200", res.Issues[2].InvoiceID)

	assert.Equal(t, 5, res.Summary.Invoices)
	assert.Equal(t, 2, res.Summary.ByMatchType[model.MatchExact])
	assert.Equal(t, 1, res.Summary.ByMatchType[model.MatchFuzzy])
	assert.Equal(t, 1, res.Summary.ByException[model.IssueNonPositiveAmount])
	assert.Equal(t, 2, res.Summary.ByIssueType[model.IssueTaxMismatch])
	assert.Equal(t, 2, res.Summary.BySeverity[model.SeverityHigh])

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "reconciliation finished", hook.LastEntry().Message)
	assert.Equal(t, res.RunID, hook.LastEntry().Data["run_id"])
}

func TestRun_Completeness(t *testing.T) {
	eng, _ := newTestEngine()
	in := sampleInput()
	res, err := eng.Run(context.Background(), in)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, r := range res.Reconciled {
		seen[r.InvoiceID]++
	}
	for _, e := range res.Exceptions {
		seen[e.InvoiceID]++
	}
	for _, i := range in.Invoices {
		assert.Equal(t, 1, seen[i.ID], "invoice %s", i.ID)
	}
	assert.Len(t, seen, len(in.Invoices))
}

func TestRun_Idempotent(t *testing.T) {
	eng, _ := newTestEngine()
	first, err := eng.Run(context.Background(), sampleInput())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := eng.Run(context.Background(), sampleInput())
		require.NoError(t, err)
		assert.Equal(t, first.Reconciled, again.Reconciled)
		assert.Equal(t, first.Exceptions, again.Exceptions)
		assert.Equal(t, first.Issues, again.Issues)
		assert.NotEqual(t, first.RunID, again.RunID)
	}
}

func TestRun_ExactOutranksTolerance(t *testing.T) {
	// Both postings reference INV-1, so tolerance also proposes the pair.
	eng, _ := newTestEngine()
	in := Input{
		Invoices: []model.Invoice{inv("INV-1", "1000.00", "Approved", date(2025, 2, 1))},
		Postings: []model.Posting{
			post("GL-A", "inv-1", "600.00", "0", date(2025, 2, 1)),
			post("GL-B", "INV-1", "405.00", "0", date(2025, 2, 1)),
		},
	}
	res, err := eng.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Reconciled, 1)
	assert.Equal(t, model.MatchExact, res.Reconciled[0].Type)
	assert.Equal(t, []string{"GL-A"}, res.Reconciled[0].PostingIDs)
}

func TestRun_ValidationErrors(t *testing.T) {
	eng, _ := newTestEngine()

	_, err := eng.Run(context.Background(), Input{Invoices: []model.Invoice{{ID: "", Date: date(2025, 1, 1), Row: 7}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice 7: invoice_id is blank")

	_, err = eng.Run(context.Background(), Input{Invoices: []model.Invoice{{ID: "INV-1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice_date is missing")

	_, err = eng.Run(context.Background(), Input{Postings: []model.Posting{{ID: "GL-1"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger_date is missing")
}

func TestRun_BadOptions(t *testing.T) {
	logger, _ := test.NewNullLogger()
	opts := DefaultOptions()
	opts.Match.FuzzyDateWindowDays = -1
	_, err := New(opts, logger).Run(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match config")
}

func TestRun_Canceled(t *testing.T) {
	eng, _ := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Run(ctx, sampleInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Empty(t *testing.T) {
	eng, _ := newTestEngine()
	res, err := eng.Run(context.Background(), Input{})
	require.NoError(t, err)
	assert.Empty(t, res.Reconciled)
	assert.Empty(t, res.Exceptions)
	assert.Empty(t, res.Issues)
}

func TestCompliance(t *testing.T) {
	eng, _ := newTestEngine()
	issues, err := eng.Compliance(sampleInput())
	require.NoError(t, err)
	assert.Len(t, issues, 3)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Matching.AmountTolerancePct = 0.25
	cfg.Compliance.ApprovedStatus = "OK"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "0.25", opts.Match.AmountTolerancePct.String())
	assert.Equal(t, "2", opts.Match.FuzzyPctTolerance.String())
	assert.Equal(t, 7, opts.Match.FuzzyDateWindowDays)
	assert.Equal(t, "100", opts.Compliance.TaxMismatchThreshold.String())
	assert.Equal(t, "100000", opts.Compliance.HighValueThreshold.String())
	assert.Equal(t, "OK", opts.Compliance.ApprovedStatus)
}
