package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/buildinfo"
	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/engine"
	"github.com/cleared-dev/recon/internal/gitops"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/report"
	"github.com/cleared-dev/recon/internal/runlog"
)

func newRunCommand() *cobra.Command {
	var flags projectFlags
	var formats []string
	var commit bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile invoices and postings and write the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if len(formats) > 0 {
				p.cfg.Output.Formats = formats
			}
			if commit {
				p.cfg.Audit.Commit = true
			}
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), p)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&formats, "format", nil, "output formats, e.g. csv,xlsx (default from config)")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit outputs and run log to the project's git repository")

	return cmd
}

func runReconcile(ctx context.Context, out io.Writer, p *project) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if p.cfg.Audit.Commit && !gitops.IsRepo(p.dir) {
		return fmt.Errorf("%s is not a git repository (run recon init --git)", p.dir)
	}

	in, err := p.loadInput(ctx)
	if err != nil {
		return err
	}

	res, err := p.engine().Run(ctx, in)
	if err != nil {
		return err
	}

	paths, err := report.DefaultRegistry().WriteAll(p.path(p.cfg.Output.Dir), p.cfg.Output.Formats, res)
	if err != nil {
		return err
	}

	if p.cfg.Output.RunLog {
		if err := runlog.Append(p.dir, []runlog.Entry{runlog.FromResult(res)}); err != nil {
			p.logger.WithFields(logrus.Fields{"run_id": res.RunID}).WithError(err).Warn("failed to write run log")
		}
	}

	printSummary(out, res)
	for _, path := range paths {
		fmt.Fprintf(out, "  wrote %s\n", path)
	}

	if p.cfg.Audit.Commit {
		return commitRun(out, p, res)
	}
	return nil
}

// commitRun records the config, outputs and run log of res in git.
func commitRun(out io.Writer, p *project, res *engine.Result) error {
	var paths []string
	for _, rel := range []string{config.FileName, p.cfg.Output.Dir, runlog.Dir} {
		if _, err := os.Stat(p.path(rel)); err == nil {
			paths = append(paths, rel)
		}
	}

	msg := fmt.Sprintf("recon: run %s\n\nreconciled %d, exceptions %d, compliance issues %d\n\nRecon-Version: %s",
		res.RunID, len(res.Reconciled), len(res.Exceptions), len(res.Issues), buildinfo.String())
	author := gitops.Author{Name: p.cfg.Audit.AuthorName, Email: p.cfg.Audit.AuthorEmail}

	hash, err := gitops.CommitPaths(p.dir, msg, author, paths...)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		fmt.Fprintln(out, "  nothing to commit")
		return nil
	}
	if err != nil {
		return fmt.Errorf("committing run %s: %w", res.RunID, err)
	}
	p.logger.WithFields(logrus.Fields{"run_id": res.RunID, "commit": hash}).Info("committed run outputs")
	fmt.Fprintf(out, "  committed %s\n", hash)
	return nil
}

func printSummary(out io.Writer, res *engine.Result) {
	s := res.Summary
	fmt.Fprintf(out, "Run %s: reconciled %d of %d invoices (exact %d, amount_tolerance %d, fuzzy %d)\n",
		res.RunID, len(res.Reconciled), s.Invoices,
		s.ByMatchType[model.MatchExact], s.ByMatchType[model.MatchAmountTolerance], s.ByMatchType[model.MatchFuzzy])
	fmt.Fprintf(out, "  exceptions: %d (unmatched %d, non-positive amount %d)\n",
		len(res.Exceptions), s.ByException[model.IssueUnmatchedInvoice], s.ByException[model.IssueNonPositiveAmount])
	fmt.Fprintf(out, "  compliance issues: %d (high %d, medium %d)\n",
		len(res.Issues), s.BySeverity[model.SeverityHigh], s.BySeverity[model.SeverityMedium])
}
