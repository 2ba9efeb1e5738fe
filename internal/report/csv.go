package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleared-dev/recon/internal/engine"
	"github.com/cleared-dev/recon/internal/model"
)

// Output file names.
const (
	ReconciledFile = "reconciled_results.csv"
	ExceptionsFile = "exceptions.csv"
	IssuesFile     = "compliance_issues.csv"
)

// CSV headers.
const (
	ReconciledHeader = "invoice_id,match_type,match_score,matched_posting_ids,gl_amount,posting_count,pct_diff,date_diff_days,invoice_date,invoice_amount,vendor,approval_status"
	ExceptionsHeader = "invoice_id,issue,invoice_date,invoice_amount,vendor,approval_status"
	IssuesHeader     = "invoice_id,issue_type,severity,description"
)

const (
	dateFormat = "2006-01-02"
	idSep      = ";"
)

// CSVWriter writes one CSV file per result collection.
type CSVWriter struct{}

// Format returns the writer name.
func (w *CSVWriter) Format() string { return "csv" }

// Write creates the three CSV files in dir.
func (w *CSVWriter) Write(dir string, res *engine.Result) ([]string, error) {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ReconciledFile, func(out io.Writer) error { return WriteReconciled(out, res.Reconciled) }},
		{ExceptionsFile, func(out io.Writer) error { return WriteExceptions(out, res.Exceptions) }},
		{IssuesFile, func(out io.Writer) error { return WriteIssues(out, res.Issues) }},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteReconciled writes reconciled records (including header).
func WriteReconciled(w io.Writer, recs []model.ReconciledRecord) error {
	return writeRows(w, ReconciledHeader, len(recs), func(i int) []string { return MarshalReconciled(recs[i]) })
}

// WriteExceptions writes exceptions (including header).
func WriteExceptions(w io.Writer, excs []model.Exception) error {
	return writeRows(w, ExceptionsHeader, len(excs), func(i int) []string { return MarshalException(excs[i]) })
}

// WriteIssues writes compliance issues (including header).
func WriteIssues(w io.Writer, issues []model.ComplianceIssue) error {
	return writeRows(w, IssuesHeader, len(issues), func(i int) []string { return MarshalIssue(issues[i]) })
}

func writeRows(w io.Writer, header string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalReconciled converts a ReconciledRecord to a CSV row.
func MarshalReconciled(r model.ReconciledRecord) []string {
	row := []string{
		r.InvoiceID,
		string(r.Type),
		r.Score.StringFixed(1),
		strings.Join(r.PostingIDs, idSep),
		r.GLAmount.StringFixed(2),
		strconv.Itoa(r.PostingCount),
		"",
		"",
		r.InvoiceDate.Format(dateFormat),
		r.InvoiceAmount.StringFixed(2),
		r.Vendor,
		r.ApprovalStatus,
	}
	if r.Type != model.MatchExact {
		row[6] = r.PctDiff.StringFixed(4)
	}
	if r.Type == model.MatchFuzzy {
		row[7] = strconv.Itoa(r.DateDiffDays)
	}
	return row
}

// MarshalException converts an Exception to a CSV row.
func MarshalException(e model.Exception) []string {
	return []string{
		e.InvoiceID,
		string(e.Issue),
		e.InvoiceDate.Format(dateFormat),
		e.InvoiceAmount.StringFixed(2),
		e.Vendor,
		e.ApprovalStatus,
	}
}

// MarshalIssue converts a ComplianceIssue to a CSV row.
func MarshalIssue(is model.ComplianceIssue) []string {
	return []string{is.InvoiceID, string(is.IssueType), string(is.Severity), is.Description}
}
