// Package report writes reconciliation results for downstream review.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/cleared-dev/recon/internal/engine"
)

// Writer persists a run result into a directory.
type Writer interface {
	Write(dir string, res *engine.Result) ([]string, error) // returns the paths written
	Format() string
}

// Registry holds named writers.
type Registry struct {
	writers map[string]Writer
}

// NewRegistry creates an empty writer registry.
func NewRegistry() *Registry {
	return &Registry{writers: make(map[string]Writer)}
}

// Register adds a writer. Panics on duplicate format.
func (r *Registry) Register(w Writer) {
	key := strings.ToLower(w.Format())
	if _, ok := r.writers[key]; ok {
		panic("duplicate report format: " + key)
	}
	r.writers[key] = w
}

// Get returns the writer for format, or nil.
func (r *Registry) Get(format string) Writer {
	return r.writers[strings.ToLower(strings.TrimSpace(format))]
}

// DefaultRegistry returns a registry with the csv and xlsx writers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVWriter{})
	r.Register(&XLSXWriter{})
	return r
}

// WriteAll writes res in every requested format, creating dir if needed.
// Unknown formats fail before anything is written.
func (r *Registry) WriteAll(dir string, formats []string, res *engine.Result) ([]string, error) {
	writers := make([]Writer, 0, len(formats))
	for _, f := range formats {
		w := r.Get(f)
		if w == nil {
			return nil, fmt.Errorf("unknown report format %q", f)
		}
		writers = append(writers, w)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var paths []string
	for _, w := range writers {
		p, err := w.Write(dir, res)
		if err != nil {
			return paths, fmt.Errorf("writing %s report: %w", w.Format(), err)
		}
		paths = append(paths, p...)
	}
	return paths, nil
}
