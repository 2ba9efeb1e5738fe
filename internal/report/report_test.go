package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/recon/internal/engine"
	"github.com/cleared-dev/recon/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleResult() *engine.Result {
	d := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	res := &engine.Result{
		RunID:     "run-1",
		StartedAt: d,
		Reconciled: []model.ReconciledRecord{
			{
				MatchCandidate: model.MatchCandidate{
					InvoiceID: "INV-1", PostingIDs: []string{"GL-1", "GL-2"}, Type: model.MatchAmountTolerance,
					Score: model.MatchAmountTolerance.Score(), GLAmount: dec("1003"), PostingCount: 2, PctDiff: dec("0.3"),
				},
				InvoiceDate: d, InvoiceAmount: dec("1000"), Vendor: "Acme, Inc.", ApprovalStatus: "Approved",
			},
			{
				MatchCandidate: model.MatchCandidate{
					InvoiceID: "INV-2", PostingIDs: []string{"GL-9"}, Type: model.MatchFuzzy,
					Score: model.MatchFuzzy.Score(), GLAmount: dec("1020"), PostingCount: 1, PctDiff: dec("2"), DateDiffDays: 7,
				},
				InvoiceDate: d, InvoiceAmount: dec("1000"), Vendor: "Globex", ApprovalStatus: "Approved",
			},
			{
				MatchCandidate: model.MatchCandidate{
					InvoiceID: "INV-3", PostingIDs: []string{"GL-3"}, Type: model.MatchExact,
					Score: model.MatchExact.Score(), GLAmount: dec("5"), PostingCount: 1,
				},
				InvoiceDate: d, InvoiceAmount: dec("5"), Vendor: "Initech", ApprovalStatus: "Approved",
			},
		},
		Exceptions: []model.Exception{
			{InvoiceID: "INV-4", Issue: model.IssueUnmatchedInvoice, InvoiceDate: d, InvoiceAmount: dec("42"), Vendor: "Hooli"},
		},
		Issues: []model.ComplianceIssue{
			{InvoiceID: "INV-1", IssueType: model.IssueTaxMismatch, Severity: model.SeverityMedium, Description: "Tax recorded 500.00 vs computed 300.00"},
		},
	}
	res.Summary = engine.Summarize(engine.Input{Invoices: make([]model.Invoice, 4)}, res)
	return res
}

func readAll(t *testing.T, data string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteReconciled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReconciled(&buf, sampleResult().Reconciled))

	rows := readAll(t, buf.String())
	require.Len(t, rows, 4)
	assert.Equal(t, strings.Split(ReconciledHeader, ","), rows[0])
	assert.Equal(t, []string{
		"INV-1", "amount_tolerance", "0.9", "GL-1;GL-2", "1003.00", "2", "0.3000", "",
		"2025-01-05", "1000.00", "Acme, Inc.", "Approved",
	}, rows[1])
	assert.Equal(t, "7", rows[2][7])
	assert.Equal(t, "0.6", rows[2][2])
	assert.Equal(t, "1.0", rows[3][2])
	assert.Equal(t, "", rows[3][6])
}

func TestWriteExceptionsAndIssues(t *testing.T) {
	res := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, WriteExceptions(&buf, res.Exceptions))
	rows := readAll(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"INV-4", "unmatched_invoice", "2025-01-05", "42.00", "Hooli", ""}, rows[1])

	buf.Reset()
	require.NoError(t, WriteIssues(&buf, res.Issues))
	rows = readAll(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"INV-1", "tax_mismatch", "medium", "Tax recorded 500.00 vs computed 300.00"}, rows[1])
}

func TestWriteEmptyHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssues(&buf, nil))
	assert.Equal(t, IssuesHeader+"\n", buf.String())
}

func TestCSVWriter_Write(t *testing.T) {
	dir := t.TempDir()
	paths, err := (&CSVWriter{}).Write(dir, sampleResult())
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, name := range []string{ReconciledFile, ExceptionsFile, IssuesFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestXLSXWriter_Write(t *testing.T) {
	dir := t.TempDir()
	paths, err := (&XLSXWriter{}).Write(dir, sampleResult())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, WorkbookFile)}, paths)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetReconciled, SheetExceptions, SheetCompliance}, f.GetSheetList())

	rows, err := f.GetRows(SheetReconciled)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "invoice_id", rows[0][0])
	assert.Equal(t, "INV-1", rows[1][0])
	assert.Equal(t, "GL-1;GL-2", rows[1][3])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Contains(t, summary, []string{"run_id", "run-1"})
	assert.Contains(t, summary, []string{"match_type:fuzzy", "1"})
	assert.Contains(t, summary, []string{"invoices", "4"})
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("CSV"))
	assert.NotNil(t, r.Get(" xlsx "))
	assert.Nil(t, r.Get("pdf"))
	assert.Panics(t, func() { r.Register(&CSVWriter{}) })
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := DefaultRegistry().WriteAll(dir, []string{"csv", "xlsx"}, sampleResult())
	require.NoError(t, err)
	assert.Len(t, paths, 4)

	_, err = DefaultRegistry().WriteAll(filepath.Join(t.TempDir(), "never"), []string{"csv", "pdf"}, sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown report format "pdf"`)
}
