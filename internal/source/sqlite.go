package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/engine"
)

// Table names read by SQLLoader.
const (
	InvoiceTable = "ap_invoices"
	PostingTable = "gl_postings"
	TaxTable     = "tax_register"
)

// OpenSQLite opens a SQLite database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	return db, nil
}

// SQLLoader reads the inputs from the ap_invoices, gl_postings and
// tax_register tables. When DB is nil the loader opens DSN for the duration
// of Load.
type SQLLoader struct {
	DB         *sql.DB
	DSN        string
	DateFormat string
}

func newSQLiteLoader(cfg config.InputConfig, baseDir string) (Loader, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, ":") {
		dsn = resolve(baseDir, dsn)
	}
	return &SQLLoader{DSN: dsn, DateFormat: cfg.DateFormat}, nil
}

// Load queries all three tables in rowid order.
func (l *SQLLoader) Load(ctx context.Context) (engine.Input, error) {
	db := l.DB
	if db == nil {
		var err error
		if db, err = OpenSQLite(l.DSN); err != nil {
			return engine.Input{}, err
		}
		defer db.Close()
	}

	layout := l.DateFormat
	if layout == "" {
		layout = DefaultDateFormat
	}

	var in engine.Input
	var err error
	p := parser{source: InvoiceTable, layout: layout}
	if in.Invoices, err = queryTable(ctx, db, InvoiceTable, invoiceColumns, layout, p.invoice); err != nil {
		return engine.Input{}, err
	}
	p.source = PostingTable
	if in.Postings, err = queryTable(ctx, db, PostingTable, postingColumns, layout, p.posting); err != nil {
		return engine.Input{}, err
	}
	p.source = TaxTable
	if in.Taxes, err = queryTable(ctx, db, TaxTable, taxColumns, layout, p.tax); err != nil {
		return engine.Input{}, err
	}
	return in, nil
}

func queryTable[T any](ctx context.Context, db *sql.DB, table string, columns []string, layout string, parse func(record, int) (T, error)) ([]T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(columns, ", "), table)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	var out []T
	vals := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for row := 1; rows.Next(); row++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s row %d: %w", table, row, err)
		}
		v, err := parse(func(field string) string {
			return strings.TrimSpace(cellString(vals[index[field]], layout))
		}, row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	return out, nil
}

// cellString renders a scanned column value as the text a CSV cell would hold.
// REAL and INTEGER columns come back typed, as do DATE columns the driver
// recognizes.
func cellString(v any, layout string) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return decimal.NewFromFloat(v).String()
	case time.Time:
		return v.Format(layout)
	default:
		return fmt.Sprint(v)
	}
}
