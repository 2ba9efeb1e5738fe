package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/engine"
	"github.com/cleared-dev/recon/internal/model"
)

// Loader produces the input for one reconciliation run.
type Loader interface {
	Load(ctx context.Context) (engine.Input, error)
}

// Factory builds a Loader from the input config. Relative paths resolve
// against baseDir.
type Factory func(cfg config.InputConfig, baseDir string) (Loader, error)

// Registry holds loader factories keyed by driver name.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Panics on a duplicate driver.
func (r *Registry) Register(driver string, f Factory) {
	key := strings.ToLower(driver)
	if _, ok := r.factories[key]; ok {
		panic("duplicate source driver: " + key)
	}
	r.factories[key] = f
}

// Get returns the factory for driver, or nil.
func (r *Registry) Get(driver string) Factory {
	return r.factories[strings.ToLower(driver)]
}

// New builds the loader named by cfg.Driver.
func (r *Registry) New(cfg config.InputConfig, baseDir string) (Loader, error) {
	f := r.Get(cfg.Driver)
	if f == nil {
		return nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
	return f(cfg, baseDir)
}

// DefaultRegistry returns a registry with the csv and sqlite drivers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("csv", newCSVLoader)
	r.Register("sqlite", newSQLiteLoader)
	return r
}

// CSVLoader reads the three inputs from CSV files in Dir. An empty Tax name
// means there is no tax register.
type CSVLoader struct {
	Dir        string
	Invoices   string
	Postings   string
	Tax        string
	DateFormat string
}

func newCSVLoader(cfg config.InputConfig, baseDir string) (Loader, error) {
	return &CSVLoader{
		Dir:        resolve(baseDir, cfg.Dir),
		Invoices:   cfg.Invoices,
		Postings:   cfg.Postings,
		Tax:        cfg.Tax,
		DateFormat: cfg.DateFormat,
	}, nil
}

// Load reads every file. The first malformed field aborts the load.
func (l *CSVLoader) Load(ctx context.Context) (engine.Input, error) {
	layout := l.DateFormat
	if layout == "" {
		layout = DefaultDateFormat
	}

	var in engine.Input
	var err error

	if in.Invoices, err = readFile(l.Dir, l.Invoices, func(f *os.File) ([]model.Invoice, error) {
		return ReadInvoices(f, l.Invoices, layout)
	}); err != nil {
		return engine.Input{}, err
	}
	if err := ctx.Err(); err != nil {
		return engine.Input{}, err
	}

	if in.Postings, err = readFile(l.Dir, l.Postings, func(f *os.File) ([]model.Posting, error) {
		return ReadPostings(f, l.Postings, layout)
	}); err != nil {
		return engine.Input{}, err
	}
	if err := ctx.Err(); err != nil {
		return engine.Input{}, err
	}

	if l.Tax != "" {
		if in.Taxes, err = readFile(l.Dir, l.Tax, func(f *os.File) ([]model.TaxRecord, error) {
			return ReadTaxRecords(f, l.Tax)
		}); err != nil {
			return engine.Input{}, err
		}
	}
	return in, nil
}

func readFile[T any](dir, name string, read func(*os.File) ([]T, error)) ([]T, error) {
	path := resolve(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
