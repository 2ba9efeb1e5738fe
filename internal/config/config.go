package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional config file name in a project directory.
const FileName = "recon.yaml"

// Config represents the top-level recon.yaml configuration.
type Config struct {
	Matching   MatchingConfig   `yaml:"matching"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Audit      AuditConfig      `yaml:"audit"`
}

// MatchingConfig controls the match tolerances.
type MatchingConfig struct {
	AmountTolerancePct  float64 `yaml:"amount_tolerance_pct"`
	FuzzyDateWindowDays int     `yaml:"fuzzy_date_window_days"`
	FuzzyPctTolerance   float64 `yaml:"fuzzy_pct_tolerance"`
}

// ComplianceConfig controls the compliance rule thresholds.
type ComplianceConfig struct {
	TaxMismatchThreshold float64 `yaml:"tax_mismatch_threshold"`
	HighSeverityTaxDiff  float64 `yaml:"high_severity_tax_diff"`
	HighValueThreshold   float64 `yaml:"high_value_threshold"`
	ApprovedStatus       string  `yaml:"approved_status"`
}

// InputConfig locates the invoice, posting and tax sources.
type InputConfig struct {
	Driver     string `yaml:"driver"` // "csv" or "sqlite"
	Dir        string `yaml:"dir,omitempty"`
	DSN        string `yaml:"dsn,omitempty"`
	Invoices   string `yaml:"invoices"`
	Postings   string `yaml:"postings"`
	Tax        string `yaml:"tax"`
	DateFormat string `yaml:"date_format"` // Go layout, e.g. "2006-01-02"
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
	RunLog  bool     `yaml:"run_log"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// AuditConfig controls committing each run's outputs to the project's git
// repository.
type AuditConfig struct {
	Commit      bool   `yaml:"commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a recon.yaml file from disk. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the standard thresholds and file names.
func Default() *Config {
	return &Config{
		Matching: MatchingConfig{
			AmountTolerancePct:  0.5,
			FuzzyDateWindowDays: 7,
			FuzzyPctTolerance:   2.0,
		},
		Compliance: ComplianceConfig{
			TaxMismatchThreshold: 100.00,
			HighSeverityTaxDiff:  1000,
			HighValueThreshold:   100000.00,
			ApprovedStatus:       "Approved",
		},
		Input: InputConfig{
			Driver:     "csv",
			Dir:        "input",
			Invoices:   "AP_Invoices.csv",
			Postings:   "GL_Postings.csv",
			Tax:        "Tax_Register.csv",
			DateFormat: "2006-01-02",
		},
		Output: OutputConfig{
			Dir:     "out",
			Formats: []string{"csv"},
			RunLog:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			AuthorName:  "recon",
			AuthorEmail: "recon@localhost",
		},
	}
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Matching.AmountTolerancePct < 0 {
		problems = append(problems, "matching.amount_tolerance_pct must not be negative")
	}
	if c.Matching.FuzzyPctTolerance < 0 {
		problems = append(problems, "matching.fuzzy_pct_tolerance must not be negative")
	}
	if c.Matching.FuzzyDateWindowDays < 0 {
		problems = append(problems, "matching.fuzzy_date_window_days must not be negative")
	}
	if c.Compliance.TaxMismatchThreshold < 0 {
		problems = append(problems, "compliance.tax_mismatch_threshold must not be negative")
	}
	if c.Compliance.HighSeverityTaxDiff < c.Compliance.TaxMismatchThreshold {
		problems = append(problems, "compliance.high_severity_tax_diff must be at least tax_mismatch_threshold")
	}
	if c.Compliance.HighValueThreshold < 0 {
		problems = append(problems, "compliance.high_value_threshold must not be negative")
	}
	if strings.TrimSpace(c.Compliance.ApprovedStatus) == "" {
		problems = append(problems, "compliance.approved_status is required")
	}
	if c.Input.DateFormat == "" {
		problems = append(problems, "input.date_format is required")
	}
	switch strings.ToLower(c.Input.Driver) {
	case "csv":
		if c.Input.Invoices == "" || c.Input.Postings == "" {
			problems = append(problems, "input.invoices and input.postings are required for csv")
		}
	case "sqlite":
		if c.Input.DSN == "" {
			problems = append(problems, "input.dsn is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("input.driver %q is not supported", c.Input.Driver))
	}
	if c.Audit.Commit && (c.Audit.AuthorName == "" || c.Audit.AuthorEmail == "") {
		problems = append(problems, "audit.author_name and audit.author_email are required when audit.commit is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// envPrefix is prepended to every environment override.
const envPrefix = "RECON_"

// ApplyEnv overrides config values from RECON_* environment variables, e.g.
// RECON_AMOUNT_TOLERANCE_PCT=0.25 or RECON_LOG_LEVEL=debug.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	floats := map[string]*float64{
		"AMOUNT_TOLERANCE_PCT":   &c.Matching.AmountTolerancePct,
		"FUZZY_PCT_TOLERANCE":    &c.Matching.FuzzyPctTolerance,
		"TAX_MISMATCH_THRESHOLD": &c.Compliance.TaxMismatchThreshold,
		"HIGH_SEVERITY_TAX_DIFF": &c.Compliance.HighSeverityTaxDiff,
		"HIGH_VALUE_THRESHOLD":   &c.Compliance.HighValueThreshold,
	}
	for name, dst := range floats {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("parsing %s%s %q: %w", envPrefix, name, v, err)
		}
		*dst = f
	}

	if v, ok := lookup(envPrefix + "FUZZY_DATE_WINDOW_DAYS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing %sFUZZY_DATE_WINDOW_DAYS %q: %w", envPrefix, v, err)
		}
		c.Matching.FuzzyDateWindowDays = n
	}

	if v, ok := lookup(envPrefix + "AUDIT_COMMIT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing %sAUDIT_COMMIT %q: %w", envPrefix, v, err)
		}
		c.Audit.Commit = b
	}

	strs := map[string]*string{
		"APPROVED_STATUS": &c.Compliance.ApprovedStatus,
		"INPUT_DRIVER":    &c.Input.Driver,
		"INPUT_DIR":       &c.Input.Dir,
		"INPUT_DSN":       &c.Input.DSN,
		"OUTPUT_DIR":      &c.Output.Dir,
		"LOG_LEVEL":       &c.Logging.Level,
		"LOG_FORMAT":      &c.Logging.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	return nil
}
