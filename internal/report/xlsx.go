package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/recon/internal/engine"
)

// WorkbookFile is the name of the xlsx report.
const WorkbookFile = "reconciliation.xlsx"

// Sheet names in the workbook.
const (
	SheetSummary    = "Summary"
	SheetReconciled = "Reconciled"
	SheetExceptions = "Exceptions"
	SheetCompliance = "Compliance"
)

// XLSXWriter writes a single workbook with a summary sheet and one sheet per
// result collection.
type XLSXWriter struct{}

// Format returns the writer name.
func (w *XLSXWriter) Format() string { return "xlsx" }

// Write creates reconciliation.xlsx in dir.
func (w *XLSXWriter) Write(dir string, res *engine.Result) ([]string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeSheet(f, SheetSummary, []string{"metric", "value"}, summaryRows(res)); err != nil {
		return nil, err
	}

	reconciled := make([][]any, len(res.Reconciled))
	for i, r := range res.Reconciled {
		reconciled[i] = []any{
			r.InvoiceID,
			string(r.Type),
			r.Score.InexactFloat64(),
			strings.Join(r.PostingIDs, idSep),
			r.GLAmount.InexactFloat64(),
			r.PostingCount,
			r.PctDiff.InexactFloat64(),
			r.DateDiffDays,
			r.InvoiceDate.Format(dateFormat),
			r.InvoiceAmount.InexactFloat64(),
			r.Vendor,
			r.ApprovalStatus,
		}
	}
	exceptions := make([][]any, len(res.Exceptions))
	for i, e := range res.Exceptions {
		exceptions[i] = []any{
			e.InvoiceID,
			string(e.Issue),
			e.InvoiceDate.Format(dateFormat),
			e.InvoiceAmount.InexactFloat64(),
			e.Vendor,
			e.ApprovalStatus,
		}
	}
	issues := make([][]any, len(res.Issues))
	for i, is := range res.Issues {
		issues[i] = []any{is.InvoiceID, string(is.IssueType), string(is.Severity), is.Description}
	}

	sheets := []struct {
		name   string
		header string
		rows   [][]any
	}{
		{SheetReconciled, ReconciledHeader, reconciled},
		{SheetExceptions, ExceptionsHeader, exceptions},
		{SheetCompliance, IssuesHeader, issues},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, strings.Split(s.header, ","), s.rows); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(dir, WorkbookFile)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("saving %s: %w", path, err)
	}
	return []string{path}, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func summaryRows(res *engine.Result) [][]any {
	s := res.Summary
	rows := [][]any{
		{"run_id", res.RunID},
		{"started_at", res.StartedAt.UTC().Format("2006-01-02T15:04:05Z")},
		{"invoices", s.Invoices},
		{"postings", s.Postings},
		{"tax_records", s.TaxRecords},
		{"reconciled", len(res.Reconciled)},
		{"exceptions", len(res.Exceptions)},
		{"compliance_issues", len(res.Issues)},
	}
	rows = append(rows, countRows("match_type", s.ByMatchType)...)
	rows = append(rows, countRows("exception", s.ByException)...)
	rows = append(rows, countRows("issue_type", s.ByIssueType)...)
	rows = append(rows, countRows("severity", s.BySeverity)...)
	return rows
}

// countRows renders a tally as "prefix:key" rows in key order.
func countRows[K ~string](prefix string, counts map[K]int) [][]any {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{prefix + ":" + k, counts[K(k)]}
	}
	return rows
}
