// Package config loads and validates the storyboard pipeline configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all storyboard configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generation backend (reversal narration)
	Generation GenerationConfig `yaml:"generation"`

	// Pipeline concurrency
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Run ledger
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GenerationConfig configures the reversal narration generator.
type GenerationConfig struct {
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	Timeout           string `yaml:"timeout"`
	MaxRetries        int    `yaml:"max_retries"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// PipelineConfig configures orchestrator concurrency.
type PipelineConfig struct {
	// SceneWorkers bounds how many scenes are processed concurrently.
	SceneWorkers int `yaml:"scene_workers"`

	// PanelConcurrency bounds concurrent narration calls within one scene.
	PanelConcurrency int `yaml:"panel_concurrency"`
}

// StoreConfig configures the sqlite run ledger.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "storyboard",
		Version: "0.1.0",
		Generation: GenerationConfig{
			Model:             "gemini-2.5-pro",
			Timeout:           "90s",
			MaxRetries:        3,
			RequestsPerMinute: 25,
		},
		Pipeline: PipelineConfig{
			SceneWorkers:     4,
			PanelConcurrency: 3,
		},
		Store: StoreConfig{
			DatabasePath: ".storyboard/runs.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads a YAML config file, falling back to defaults when the file
// does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides lets environment variables take precedence over the
// config file. STORYBOARD_API_KEY wins over GEMINI_API_KEY when both are set.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
	}
	if key := os.Getenv("STORYBOARD_API_KEY"); key != "" {
		c.Generation.APIKey = key
	}
	if model := os.Getenv("STORYBOARD_TEXT_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if workers := os.Getenv("STORYBOARD_SCENE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.Pipeline.SceneWorkers = n
		}
	}
	if rpm := os.Getenv("STORYBOARD_RPM"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil && n > 0 {
			c.Generation.RequestsPerMinute = n
		}
	}
}

// GenerationTimeout parses the configured narration call timeout.
func (c *Config) GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil || d <= 0 {
		return 90 * time.Second
	}
	return d
}

// Validate checks config invariants that would otherwise surface deep in a run.
func (c *Config) Validate() error {
	if c.Pipeline.SceneWorkers < 1 {
		return fmt.Errorf("pipeline.scene_workers must be >= 1, got %d", c.Pipeline.SceneWorkers)
	}
	if c.Pipeline.PanelConcurrency < 1 {
		return fmt.Errorf("pipeline.panel_concurrency must be >= 1, got %d", c.Pipeline.PanelConcurrency)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries must be >= 0, got %d", c.Generation.MaxRetries)
	}
	if c.Generation.RequestsPerMinute < 1 {
		return fmt.Errorf("generation.requests_per_minute must be >= 1, got %d", c.Generation.RequestsPerMinute)
	}
	return nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
