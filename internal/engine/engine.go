// Package engine runs one reconciliation pass: the three match stages and the
// compliance rules over the same inputs, followed by deduplication.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/recon/internal/compliance"
	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/match"
	"github.com/cleared-dev/recon/internal/model"
)

// ErrInvariant is returned when the reconciled and exception sets do not
// partition the invoices.
var ErrInvariant = errors.New("reconciliation invariant violated")

// Options configures an Engine.
type Options struct {
	Match      match.Config
	Compliance compliance.Config
}

// DefaultOptions returns the standard tolerances and thresholds.
func DefaultOptions() Options {
	return Options{Match: match.DefaultConfig(), Compliance: compliance.DefaultConfig()}
}

// OptionsFromConfig converts the file configuration into engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Match: match.Config{
			AmountTolerancePct:  decimal.NewFromFloat(cfg.Matching.AmountTolerancePct),
			FuzzyPctTolerance:   decimal.NewFromFloat(cfg.Matching.FuzzyPctTolerance),
			FuzzyDateWindowDays: cfg.Matching.FuzzyDateWindowDays,
		},
		Compliance: compliance.Config{
			TaxMismatchThreshold: decimal.NewFromFloat(cfg.Compliance.TaxMismatchThreshold),
			HighSeverityTaxDiff:  decimal.NewFromFloat(cfg.Compliance.HighSeverityTaxDiff),
			HighValueThreshold:   decimal.NewFromFloat(cfg.Compliance.HighValueThreshold),
			ApprovedStatus:       cfg.Compliance.ApprovedStatus,
		},
	}
}

// Input is the fully materialized data for one run.
type Input struct {
	Invoices []model.Invoice
	Postings []model.Posting
	Taxes    []model.TaxRecord
}

// Validate rejects records the match stages cannot key on.
func (in Input) Validate() error {
	for i, inv := range in.Invoices {
		if inv.ID == "" {
			return fmt.Errorf("invoice %d: invoice_id is blank", recordRow(inv.Row, i))
		}
		if inv.Date.IsZero() {
			return fmt.Errorf("invoice %q: invoice_date is missing", inv.ID)
		}
	}
	for i, p := range in.Postings {
		if p.LedgerDate.IsZero() {
			return fmt.Errorf("posting %d (%q): ledger_date is missing", recordRow(p.Row, i), p.ID)
		}
		if p.Amount.IsNegative() {
			return fmt.Errorf("posting %d (%q): amount %s is negative", recordRow(p.Row, i), p.ID, p.Amount)
		}
	}
	for i, tr := range in.Taxes {
		if tr.InvoiceID == "" {
			return fmt.Errorf("tax record %d: invoice_id is blank", recordRow(tr.Row, i))
		}
	}
	return nil
}

// recordRow prefers the source row number, falling back to the slice position.
func recordRow(row, index int) int {
	if row > 0 {
		return row
	}
	return index + 1
}

// Result is the output of one run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	Reconciled []model.ReconciledRecord
	Exceptions []model.Exception
	Issues     []model.ComplianceIssue
	Summary    Summary
}

// Engine runs reconciliation passes. It holds no state between runs.
type Engine struct {
	opts Options
	log  logrus.FieldLogger
	now  func() time.Time
}

// New creates an Engine.
func New(opts Options, log logrus.FieldLogger) *Engine {
	return &Engine{opts: opts, log: log, now: time.Now}
}

// Run reconciles the input. Any validation failure or invariant violation
// aborts the run with no partial result.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if err := e.opts.Match.Validate(); err != nil {
		return nil, fmt.Errorf("match config: %w", err)
	}
	if err := e.opts.Compliance.Validate(); err != nil {
		return nil, fmt.Errorf("compliance config: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validating input: %w", err)
	}

	res := &Result{RunID: uuid.NewString(), StartedAt: e.now()}
	log := e.log.WithField("run_id", res.RunID)
	log.WithFields(logrus.Fields{
		"invoices":    len(in.Invoices),
		"postings":    len(in.Postings),
		"tax_records": len(in.Taxes),
	}).Info("reconciliation started")

	var exact, tolerance, fuzzy []model.MatchCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(e.stage(gctx, log, "exact", func() int {
		exact = match.Exact(in.Invoices, in.Postings)
		return len(exact)
	}))
	g.Go(e.stage(gctx, log, "amount_tolerance", func() int {
		tolerance = match.Tolerance(e.opts.Match, in.Invoices, in.Postings)
		return len(tolerance)
	}))
	g.Go(e.stage(gctx, log, "fuzzy", func() int {
		fuzzy = match.Fuzzy(e.opts.Match, in.Invoices, in.Postings)
		return len(fuzzy)
	}))
	g.Go(e.stage(gctx, log, "compliance", func() int {
		res.Issues = compliance.Check(e.opts.Compliance, in.Invoices, in.Taxes)
		return len(res.Issues)
	}))
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("running stages: %w", err)
	}

	res.Reconciled, res.Exceptions = match.Dedup(in.Invoices, exact, tolerance, fuzzy)
	if err := match.CheckCompleteness(in.Invoices, res.Reconciled, res.Exceptions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	res.Summary = Summarize(in, res)
	log.WithFields(logrus.Fields{
		"reconciled":        len(res.Reconciled),
		"exceptions":        len(res.Exceptions),
		"compliance_issues": len(res.Issues),
	}).Info("reconciliation finished")
	return res, nil
}

// Compliance evaluates only the compliance rules.
func (e *Engine) Compliance(in Input) ([]model.ComplianceIssue, error) {
	if err := e.opts.Compliance.Validate(); err != nil {
		return nil, fmt.Errorf("compliance config: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("validating input: %w", err)
	}
	return compliance.Check(e.opts.Compliance, in.Invoices, in.Taxes), nil
}

// stage wraps a pure stage for the errgroup. The stage itself never blocks;
// cancellation is observed once it returns.
func (e *Engine) stage(ctx context.Context, log logrus.FieldLogger, name string, fn func() int) func() error {
	return func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := e.now()
		n := fn()
		log.WithFields(logrus.Fields{
			"stage":   name,
			"results": n,
			"elapsed": e.now().Sub(start).String(),
		}).Debug("stage finished")
		return ctx.Err()
	}
}
