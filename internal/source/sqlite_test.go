package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/config"
)

const schema = `
CREATE TABLE ap_invoices (invoice_id TEXT, invoice_date TEXT, invoice_amount TEXT, approval_status TEXT, vendor TEXT);
CREATE TABLE gl_postings (posting_id TEXT, ledger_date TEXT, ref_invoice_id TEXT, debit TEXT, credit TEXT);
CREATE TABLE tax_register (invoice_id TEXT, tax_amount TEXT, computed_tax_amount TEXT);
`

func seedDB(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

func TestSQLLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recon.db")
	seedDB(t, path,
		`INSERT INTO ap_invoices VALUES ('INV-2', '2025-01-04', '200.00', 'Pending', 'Globex')`,
		`INSERT INTO ap_invoices VALUES (' INV-1 ', '2025-01-03', '100.00', 'Approved', NULL)`,
		`INSERT INTO gl_postings VALUES ('GL-1', '2025-01-03', 'INV-1', '100.00', NULL)`,
		`INSERT INTO gl_postings VALUES ('GL-2', '2025-01-05', NULL, NULL, '75.25')`,
		`INSERT INTO tax_register VALUES ('INV-1', '10.00', '12.00')`,
	)

	cfg := config.InputConfig{Driver: "sqlite", DSN: "recon.db", DateFormat: DefaultDateFormat}
	loader, err := DefaultRegistry().New(cfg, filepath.Dir(path))
	require.NoError(t, err)

	in, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, in.Invoices, 2)
	assert.Equal(t, "INV-2", in.Invoices[0].ID)
	assert.Equal(t, "INV-1", in.Invoices[1].ID)
	assert.Equal(t, "", in.Invoices[1].Vendor)
	assert.Equal(t, 2, in.Invoices[1].Row)

	require.Len(t, in.Postings, 2)
	assert.Equal(t, "", in.Postings[1].RefInvoiceID)
	assert.Equal(t, "75.25", in.Postings[1].Amount.StringFixed(2))

	require.Len(t, in.Taxes, 1)
	assert.Equal(t, "2.00", in.Taxes[0].Diff().StringFixed(2))
}

func TestSQLLoader_BadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recon.db")
	seedDB(t, path, `INSERT INTO ap_invoices VALUES ('INV-1', 'yesterday', '100.00', 'Approved', 'Acme')`)

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = (&SQLLoader{DB: db}).Load(context.Background())
	require.Error(t, err)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, InvoiceTable, fe.Source)
	assert.Equal(t, 1, fe.Row)
	assert.Equal(t, "invoice_date", fe.Field)
}

func TestSQLLoader_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	_, err := (&SQLLoader{DSN: path}).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying ap_invoices")
}

func TestSQLLoader_TypedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typed.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
CREATE TABLE ap_invoices (invoice_id TEXT, invoice_date TEXT, invoice_amount REAL, approval_status TEXT, vendor TEXT);
CREATE TABLE gl_postings (posting_id TEXT, ledger_date TEXT, ref_invoice_id TEXT, debit INTEGER, credit REAL);
CREATE TABLE tax_register (invoice_id TEXT, tax_amount REAL, computed_tax_amount REAL);
INSERT INTO ap_invoices VALUES ('INV-1', '2025-01-03', 1000000.5, 'Approved', 'Acme');
INSERT INTO gl_postings VALUES ('GL-1', '2025-01-03', 'INV-1', 1000000, NULL);
`)
	require.NoError(t, err)

	in, err := (&SQLLoader{DB: db}).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, in.Invoices, 1)
	assert.Equal(t, "1000000.50", in.Invoices[0].Amount.StringFixed(2))
	require.Len(t, in.Postings, 1)
	assert.Equal(t, "1000000.00", in.Postings[0].Amount.StringFixed(2))
	assert.Empty(t, in.Taxes)
}

func TestCellString(t *testing.T) {
	d := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"INV-1", "INV-1"},
		{[]byte("GL-1"), "GL-1"},
		{int64(42), "42"},
		{float64(1e6), "1000000"},
		{d, "2025-03-09"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellString(tt.in, DefaultDateFormat), "cellString(%v)", tt.in)
	}
}
