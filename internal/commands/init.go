package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/gitops"
	"github.com/cleared-dev/recon/internal/runlog"
)

func newInitCommand() *cobra.Command {
	var force, initGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reconciliation project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, force, initGit)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing "+config.FileName)
	cmd.Flags().BoolVar(&initGit, "git", false, "initialize a git repository and commit each run's outputs")

	return cmd
}

func runInit(out io.Writer, dir string, force, initGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default()
	cfg.Audit.Commit = initGit

	// Create directory structure.
	for _, d := range []string{cfg.Input.Dir, cfg.Output.Dir, runlog.Dir} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Outputs are tracked when they form the audit trail.
	gitignore := ".env\n"
	if !initGit {
		gitignore = cfg.Output.Dir + "/\n" + gitignore
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, cfg.Input.Dir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	// Reinitializing an existing repository is harmless.
	if initGit {
		if err := gitops.Init(dir); err != nil {
			return fmt.Errorf("initializing git: %w", err)
		}
	}

	fmt.Fprintf(out, "Initialized recon project at %s\n", dir)
	fmt.Fprintf(out, "Place %s, %s and %s in %s\n",
		cfg.Input.Invoices, cfg.Input.Postings, cfg.Input.Tax, filepath.Join(dir, cfg.Input.Dir))
	return nil
}
