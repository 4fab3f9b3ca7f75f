package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jgoulah/usagereport/internal/usage"
)

// PilotStartDate is the first day of the new tracker pilot
const PilotStartDate = "2025-09-29"

// Environment variables that override the config file
const (
	EnvInputDir    = "USAGEREPORT_INPUT_DIR"
	EnvOutputDir   = "USAGEREPORT_OUTPUT_DIR"
	EnvFilePattern = "USAGEREPORT_FILE_PATTERN"
	EnvLogLevel    = "USAGEREPORT_LOG_LEVEL"
)

// Config holds the application configuration
type Config struct {
	InputDir        string           `yaml:"input_dir,omitempty"`
	OutputDir       string           `yaml:"output_dir,omitempty"`
	FilePattern     string           `yaml:"file_pattern,omitempty"`     // Substring input file names must contain
	PilotStartDate  string           `yaml:"pilot_start_date,omitempty"` // Default --start-date
	OutputPrefix    string           `yaml:"output_prefix,omitempty"`
	Categories      []usage.Category `yaml:"categories,omitempty"`
	SplitBy         string           `yaml:"split_by,omitempty"`         // category, file or org
	OrgCodePolicy   string           `yaml:"org_code_policy,omitempty"`  // first, last or reject
	DuplicatePolicy string           `yaml:"duplicate_policy,omitempty"` // overwrite or sum
	Strict          bool             `yaml:"strict,omitempty"`
	WriteSummary    *bool            `yaml:"write_summary,omitempty"` // Default: true
	LogLevel        string           `yaml:"log_level,omitempty"`
	LogFormat       string           `yaml:"log_format,omitempty"` // auto, console or json
}

// Default returns a config with every default filled in
func Default() *Config {
	summary := true
	return &Config{
		InputDir:        ".",
		OutputDir:       ".",
		FilePattern:     "cpt_ovn",
		PilotStartDate:  PilotStartDate,
		OutputPrefix:    "usage_report",
		Categories:      usage.DefaultCategories(),
		SplitBy:         string(usage.SplitByCategory),
		OrgCodePolicy:   string(usage.OrgCodeFirst),
		DuplicatePolicy: string(usage.DuplicateOverwrite),
		WriteSummary:    &summary,
		LogLevel:        "info",
		LogFormat:       "auto",
	}
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// LoadEnvFiles loads .env then .env.local into the process environment.
// Variables already set are not overridden. Missing files are ignored.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides config values from USAGEREPORT_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvInputDir); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvFilePattern); v != "" {
		c.FilePattern = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	if _, err := usage.ParseSplitMode(c.SplitBy); err != nil {
		return fmt.Errorf("split_by: %w", err)
	}
	if _, err := usage.ParseOrgCodePolicy(c.OrgCodePolicy); err != nil {
		return fmt.Errorf("org_code_policy: %w", err)
	}
	if _, err := usage.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return fmt.Errorf("duplicate_policy: %w", err)
	}
	if c.PilotStartDate != "" {
		if _, err := usage.ParseDate(c.PilotStartDate); err != nil {
			return fmt.Errorf("pilot_start_date: %w", err)
		}
	}
	names := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" || cat.Match == "" {
			return fmt.Errorf("categories: name and match are required (got %+v)", cat)
		}
		names[cat.Name] = true
	}
	// old_only and new_only read these two categories by name
	if len(c.Categories) > 0 {
		for _, required := range []string{usage.CategoryOld, usage.CategoryNew} {
			if !names[required] {
				return fmt.Errorf("categories: a category named %q is required", required)
			}
		}
	}
	return nil
}

// GetInputDir returns the input directory, defaulting to the working directory
func (c *Config) GetInputDir() string {
	if c.InputDir == "" {
		return "."
	}
	return c.InputDir
}

// GetOutputDir returns the output directory, defaulting to the working directory
func (c *Config) GetOutputDir() string {
	if c.OutputDir == "" {
		return "."
	}
	return c.OutputDir
}

// GetFilePattern returns the input file name substring (default: cpt_ovn)
func (c *Config) GetFilePattern() string {
	if c.FilePattern == "" {
		return "cpt_ovn"
	}
	return c.FilePattern
}

// GetPilotStartDate returns the default report start date
func (c *Config) GetPilotStartDate() string {
	if c.PilotStartDate == "" {
		return PilotStartDate
	}
	return c.PilotStartDate
}

// GetOutputPrefix returns the report file name prefix
func (c *Config) GetOutputPrefix() string {
	if c.OutputPrefix == "" {
		return "usage_report"
	}
	return c.OutputPrefix
}

// GetCategories returns the tracker categories, falling back to old/new
func (c *Config) GetCategories() []usage.Category {
	if len(c.Categories) == 0 {
		return usage.DefaultCategories()
	}
	return c.Categories
}

// GetSplitBy returns the separate-output split mode
func (c *Config) GetSplitBy() usage.SplitMode {
	mode, err := usage.ParseSplitMode(c.SplitBy)
	if err != nil {
		return usage.SplitByCategory
	}
	return mode
}

// GetPolicy returns the merge policy for usage tables
func (c *Config) GetPolicy() usage.Policy {
	org, err := usage.ParseOrgCodePolicy(c.OrgCodePolicy)
	if err != nil {
		org = usage.OrgCodeFirst
	}
	dup, err := usage.ParseDuplicatePolicy(c.DuplicatePolicy)
	if err != nil {
		dup = usage.DuplicateOverwrite
	}
	return usage.Policy{OrgCode: org, Duplicates: dup}
}

// GetWriteSummary reports whether a JSON run summary is written (default true)
func (c *Config) GetWriteSummary() bool {
	if c.WriteSummary == nil {
		return true
	}
	return *c.WriteSummary
}

// GetLogLevel returns the log level (default: info)
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}
