package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"discourse/issuegraph/internal/graph"
)

// FileName is the config file looked for when walking up from the working directory
const FileName = ".issuegraph.yaml"

// Config holds all issuegraph configuration.
type Config struct {
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Links     LinksConfig     `yaml:"links"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Identities maps aliases (emails, nicknames, old spellings) to the
	// canonical researcher name.
	Identities map[string]string `yaml:"identities"`
}

// ReconcileConfig configures the export merge.
type ReconcileConfig struct {
	MinMatchRate float64 `yaml:"min_match_rate"`
}

// LinksConfig configures result linking.
type LinksConfig struct {
	MinDescriptionLength int `yaml:"min_description_length"`
}

// MetricsConfig configures the metrics engine.
type MetricsConfig struct {
	CountActiveQuestions bool `yaml:"count_active_questions"`
	TopN                 int  `yaml:"top_n"`
}

// StoreConfig configures the run store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"console", "json"}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Reconcile: ReconcileConfig{MinMatchRate: 0.5},
		Links:     LinksConfig{MinDescriptionLength: graph.DefaultMinDescriptionLength},
		Metrics:   MetricsConfig{TopN: 10},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Identities: map[string]string{},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if level := os.Getenv("ISSUEGRAPH_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if raw := os.Getenv("ISSUEGRAPH_MIN_MATCH_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("ISSUEGRAPH_MIN_MATCH_RATE: %w", err)
		}
		c.Reconcile.MinMatchRate = rate
	}
	if path := os.Getenv("ISSUEGRAPH_DB"); path != "" {
		c.Store.Path = path
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Reconcile.MinMatchRate < 0 || c.Reconcile.MinMatchRate > 1 {
		return fmt.Errorf("reconcile.min_match_rate must be between 0 and 1, got %v", c.Reconcile.MinMatchRate)
	}
	if c.Links.MinDescriptionLength < 1 {
		return fmt.Errorf("links.min_description_length must be positive, got %d", c.Links.MinDescriptionLength)
	}
	if c.Metrics.TopN < 0 {
		return fmt.Errorf("metrics.top_n must not be negative, got %d", c.Metrics.TopN)
	}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	if !contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("invalid logging.format: %s (valid: %v)", c.Logging.Format, validFormats)
	}
	for alias, canonical := range c.Identities {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(canonical) == "" {
			return fmt.Errorf("identities: empty alias or name in %q -> %q", alias, canonical)
		}
	}
	return nil
}

// AnalyzerConfig translates the file settings into analysis parameters.
func (c *Config) AnalyzerConfig() *graph.AnalyzerConfig {
	ac := graph.DefaultConfig()
	ac.Aliases = graph.NewAliases(c.Identities)
	ac.MinMatchRate = c.Reconcile.MinMatchRate
	ac.MinDescriptionLength = c.Links.MinDescriptionLength
	ac.CountActiveQuestions = c.Metrics.CountActiveQuestions
	ac.TopN = c.Metrics.TopN
	return ac
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
