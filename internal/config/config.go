// Package config loads engine configuration from an optional YAML file and
// environment variables. Precedence: defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sundog-ai/chronicle/internal/event"
)

// CategoryConfig controls one event category.
type CategoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // minimum level written, e.g. "INFO"
}

// MinLevel parses the configured level threshold.
func (cc CategoryConfig) MinLevel() (event.Level, error) {
	return event.ParseLevel(cc.Level)
}

// Config holds all logging-engine configuration.
type Config struct {
	LogDir        string `yaml:"log_dir"`
	RetentionDays int    `yaml:"retention_days"`

	Interactions CategoryConfig `yaml:"interactions"`
	Agents       CategoryConfig `yaml:"agents"`
	Workflows    CategoryConfig `yaml:"workflows"`
	Tools        CategoryConfig `yaml:"tools"`
	System       CategoryConfig `yaml:"system"`
	Performance  CategoryConfig `yaml:"performance"`
	Security     CategoryConfig `yaml:"security"`
}

// Default returns the configuration used when nothing is set: every category
// enabled at INFO, 30-day retention, logs under ./logs.
func Default() *Config {
	on := CategoryConfig{Enabled: true, Level: "INFO"}
	return &Config{
		LogDir:        "logs",
		RetentionDays: 30,
		Interactions:  on,
		Agents:        on,
		Workflows:     on,
		Tools:         on,
		System:        on,
		Performance:   on,
		Security:      on,
	}
}

// Category returns the settings for one category.
func (c *Config) Category(cat event.Category) CategoryConfig {
	switch cat {
	case event.CategoryInteraction:
		return c.Interactions
	case event.CategoryAgent:
		return c.Agents
	case event.CategoryWorkflow:
		return c.Workflows
	case event.CategoryTool:
		return c.Tools
	case event.CategorySystem:
		return c.System
	case event.CategoryPerformance:
		return c.Performance
	case event.CategorySecurity:
		return c.Security
	default:
		return CategoryConfig{}
	}
}

// Load reads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML config file, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.LoadFile: parsing %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogDir = getEnv("CHRONICLE_LOG_DIR", c.LogDir)

	// CHRONICLE_MAX_LOG_FILES is the historical name for the same window;
	// CHRONICLE_RETENTION_DAYS wins when both are set.
	retention, err := getEnvInt("CHRONICLE_MAX_LOG_FILES", c.RetentionDays)
	if err != nil {
		return err
	}
	retention, err = getEnvInt("CHRONICLE_RETENTION_DAYS", retention)
	if err != nil {
		return err
	}
	c.RetentionDays = retention

	for _, cc := range []struct {
		enableKey string
		levelKey  string
		target    *CategoryConfig
	}{
		{"CHRONICLE_LOG_INTERACTIONS", "CHRONICLE_INTERACTION_LOG_LEVEL", &c.Interactions},
		{"CHRONICLE_LOG_AGENTS", "CHRONICLE_AGENT_LOG_LEVEL", &c.Agents},
		{"CHRONICLE_LOG_WORKFLOWS", "CHRONICLE_WORKFLOW_LOG_LEVEL", &c.Workflows},
		{"CHRONICLE_LOG_TOOLS", "CHRONICLE_TOOL_LOG_LEVEL", &c.Tools},
		{"CHRONICLE_LOG_SYSTEM", "CHRONICLE_SYSTEM_LOG_LEVEL", &c.System},
		{"CHRONICLE_LOG_PERFORMANCE", "CHRONICLE_PERFORMANCE_LOG_LEVEL", &c.Performance},
		{"CHRONICLE_LOG_SECURITY", "CHRONICLE_SECURITY_LOG_LEVEL", &c.Security},
	} {
		enabled, envErr := getEnvBool(cc.enableKey, cc.target.Enabled)
		if envErr != nil {
			return envErr
		}
		cc.target.Enabled = enabled
		cc.target.Level = getEnv(cc.levelKey, cc.target.Level)
	}

	return nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.LogDir == "" {
		return errors.New("CHRONICLE_LOG_DIR must not be empty")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("CHRONICLE_RETENTION_DAYS must be >= 1, got %d", c.RetentionDays)
	}

	for _, cat := range event.Categories() {
		cc := c.Category(cat)
		if _, err := cc.MinLevel(); err != nil {
			return fmt.Errorf("category %s: %w", cat, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}
