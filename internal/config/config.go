// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/jd-annotator/internal/engine"
	"github.com/jonathan/jd-annotator/internal/highlight"
	"github.com/jonathan/jd-annotator/internal/scoring"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Job
	JobID   string `json:"job_id,omitempty" yaml:"job_id,omitempty"`     // Job whose annotations are edited
	JobURL  string `json:"job_url,omitempty" yaml:"job_url,omitempty"`   // URL to fetch the job description from
	JobFile string `json:"job_file,omitempty" yaml:"job_file,omitempty"` // Path to a saved job description HTML file

	// Persistence
	BackendURL  string `json:"backend_url,omitempty" yaml:"backend_url,omitempty"`   // Annotation backend base URL
	LocalStore  string `json:"local_store,omitempty" yaml:"local_store,omitempty"`   // SQLite file used instead of a backend
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL for serve

	// Editor. Durations are in milliseconds.
	DebounceMS           int                     `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`
	MaxHistory           int                     `json:"max_history,omitempty" yaml:"max_history,omitempty"`
	FeedbackBaseDelayMS  int                     `json:"feedback_base_delay_ms,omitempty" yaml:"feedback_base_delay_ms,omitempty"`
	SectionTargets       []scoring.SectionTarget `json:"section_targets,omitempty" yaml:"section_targets,omitempty"`
	ExcludeSelector      string                  `json:"exclude_selector,omitempty" yaml:"exclude_selector,omitempty"`
	CaptureManualCreates bool                    `json:"capture_manual_creates,omitempty" yaml:"capture_manual_creates,omitempty"`

	// Behavior
	UseBrowser bool `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Use headless browser for SPA sites
	Verbose    bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`         // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DebounceMS:          1000,
		MaxHistory:          50,
		FeedbackBaseDelayMS: 1000,
		SectionTargets:      scoring.DefaultSectionTargets(),
		ExcludeSelector:     highlight.DefaultExcludeSelector,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate mutually exclusive fields
	if c.JobFile != "" && c.JobURL != "" {
		return fmt.Errorf("config error: 'job_file' and 'job_url' are mutually exclusive")
	}
	if c.BackendURL != "" && c.LocalStore != "" {
		return fmt.Errorf("config error: 'backend_url' and 'local_store' are mutually exclusive")
	}

	// Validate numeric ranges
	if c.DebounceMS < 0 {
		return fmt.Errorf("config error: 'debounce_ms' must be non-negative")
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("config error: 'max_history' must be non-negative")
	}
	if c.FeedbackBaseDelayMS < 0 {
		return fmt.Errorf("config error: 'feedback_base_delay_ms' must be non-negative")
	}

	seen := make(map[string]bool, len(c.SectionTargets))
	for _, t := range c.SectionTargets {
		if t.Section == "" {
			return fmt.Errorf("config error: section target has no section")
		}
		if seen[t.Section] {
			return fmt.Errorf("config error: duplicate section target %q", t.Section)
		}
		seen[t.Section] = true
		if t.Target < 0 {
			return fmt.Errorf("config error: section target %q must be non-negative", t.Section)
		}
	}

	if c.BackendURL != "" && !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("config error: 'backend_url' must be an http(s) URL")
	}

	// Validate file paths exist (if specified)
	if c.JobFile != "" {
		if _, err := os.Stat(c.JobFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: job file not found: %s", c.JobFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.JobID == "" {
		result.JobID = defaults.JobID
	}
	if result.JobURL == "" {
		result.JobURL = defaults.JobURL
	}
	if result.JobFile == "" {
		result.JobFile = defaults.JobFile
	}
	if result.BackendURL == "" {
		result.BackendURL = defaults.BackendURL
	}
	if result.LocalStore == "" {
		result.LocalStore = defaults.LocalStore
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ExcludeSelector == "" {
		result.ExcludeSelector = defaults.ExcludeSelector
	}

	// Int fields: use default if zero
	if result.DebounceMS == 0 {
		result.DebounceMS = defaults.DebounceMS
	}
	if result.MaxHistory == 0 {
		result.MaxHistory = defaults.MaxHistory
	}
	if result.FeedbackBaseDelayMS == 0 {
		result.FeedbackBaseDelayMS = defaults.FeedbackBaseDelayMS
	}

	if len(result.SectionTargets) == 0 {
		result.SectionTargets = append([]scoring.SectionTarget(nil), defaults.SectionTargets...)
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Engine converts the configuration into engine settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		JobID:                c.JobID,
		Debounce:             time.Duration(c.DebounceMS) * time.Millisecond,
		MaxHistory:           c.MaxHistory,
		FeedbackBaseDelay:    time.Duration(c.FeedbackBaseDelayMS) * time.Millisecond,
		SectionTargets:       c.SectionTargets,
		CaptureManualCreates: c.CaptureManualCreates,
	}
}
