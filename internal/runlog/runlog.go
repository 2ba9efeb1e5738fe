// Package runlog keeps an append-only CSV history of reconciliation runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/recon/internal/engine"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp        time.Time
	RunID            string
	Invoices         int
	Postings         int
	TaxRecords       int
	Reconciled       int
	Exceptions       int
	ComplianceIssues int
}

// Dir is the run log directory relative to the project root.
const Dir = "logs"

// Header is the CSV header for run-log.csv.
const Header = "timestamp,run_id,invoices,postings,tax_records,reconciled,exceptions,compliance_issues"

const (
	numFields     = 8
	logFile       = "logs/run-log.csv"
	colTimestamp  = 0
	colRunID      = 1
	colInvoices   = 2
	colPostings   = 3
	colTaxRecords = 4
	colReconciled = 5
	colExceptions = 6
	colCompliance = 7
)

// FromResult summarizes a run result as a log entry.
func FromResult(res *engine.Result) Entry {
	return Entry{
		Timestamp:        res.StartedAt,
		RunID:            res.RunID,
		Invoices:         res.Summary.Invoices,
		Postings:         res.Summary.Postings,
		TaxRecords:       res.Summary.TaxRecords,
		Reconciled:       len(res.Reconciled),
		Exceptions:       len(res.Exceptions),
		ComplianceIssues: len(res.Issues),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colInvoices] = strconv.Itoa(e.Invoices)
	row[colPostings] = strconv.Itoa(e.Postings)
	row[colTaxRecords] = strconv.Itoa(e.TaxRecords)
	row[colReconciled] = strconv.Itoa(e.Reconciled)
	row[colExceptions] = strconv.Itoa(e.Exceptions)
	row[colCompliance] = strconv.Itoa(e.ComplianceIssues)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 0, numFields-colInvoices)
	for col := colInvoices; col < numFields; col++ {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts = append(counts, n)
	}

	return Entry{
		Timestamp:        ts,
		RunID:            record[colRunID],
		Invoices:         counts[0],
		Postings:         counts[1],
		TaxRecords:       counts[2],
		Reconciled:       counts[3],
		Exceptions:       counts[4],
		ComplianceIssues: counts[5],
	}, nil
}

// Append writes entries to <root>/logs/run-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/run-log.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
