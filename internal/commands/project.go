package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/engine"
	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/source"
)

// projectFlags are shared by commands that operate on an initialized project.
type projectFlags struct {
	dir        string
	configPath string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", ".", "project directory")
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default <dir>/"+config.FileName+")")
}

// project is a loaded config plus the logger built from it.
type project struct {
	dir    string
	cfg    *config.Config
	logger *logrus.Logger
}

// openProject loads the config, applies RECON_* overrides from the process
// environment and <dir>/.env (process environment wins), and validates it.
func openProject(f projectFlags, logOut io.Writer) (*project, error) {
	dir, err := filepath.Abs(f.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfgPath := f.configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}
	return &project{dir: dir, cfg: cfg, logger: logger}, nil
}

// loadInput reads the configured sources.
func (p *project) loadInput(ctx context.Context) (engine.Input, error) {
	loader, err := source.DefaultRegistry().New(p.cfg.Input, p.dir)
	if err != nil {
		return engine.Input{}, err
	}
	in, err := loader.Load(ctx)
	if err != nil {
		return engine.Input{}, fmt.Errorf("loading input: %w", err)
	}
	return in, nil
}

func (p *project) engine() *engine.Engine {
	return engine.New(engine.OptionsFromConfig(p.cfg), p.logger)
}

func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.dir, rel)
}
