package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/recon/internal/model"
)

// DefaultDateFormat is the date layout used when none is configured.
const DefaultDateFormat = "2006-01-02"

// ReadInvoices reads an AP invoice CSV. Columns are located by header name;
// extra columns are ignored.
func ReadInvoices(r io.Reader, name, layout string) ([]model.Invoice, error) {
	p := parser{source: name, layout: layout}
	return readCSV(r, name, invoiceColumns, p.invoice)
}

// ReadPostings reads a GL posting CSV. Blank debit or credit cells count as zero.
func ReadPostings(r io.Reader, name, layout string) ([]model.Posting, error) {
	p := parser{source: name, layout: layout}
	return readCSV(r, name, postingColumns, p.posting)
}

// ReadTaxRecords reads a tax register CSV.
func ReadTaxRecords(r io.Reader, name string) ([]model.TaxRecord, error) {
	p := parser{source: name}
	return readCSV(r, name, taxColumns, p.tax)
}

func readCSV[T any](r io.Reader, name string, columns []string, parse func(record, int) (T, error)) ([]T, error) {
	cr := csv.NewReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index, err := headerIndex(records[0], columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	// Skip header row.
	var out []T
	for i, rec := range records[1:] {
		row := i + 2
		v, err := parse(func(field string) string {
			return strings.TrimSpace(rec[index[field]])
		}, row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// headerIndex maps the required column names to their positions.
func headerIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, c := range required {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}
