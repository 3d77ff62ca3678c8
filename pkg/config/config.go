// Package config loads and validates engagic.yaml. Defaults are merged under
// user-provided values with mergo, environment variables are expanded with
// {{.VAR}} template syntax, and Validate fails fast before any component
// starts.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config is the full engagic configuration tree.
type Config struct {
	Database  *DatabaseConfig  `yaml:"database"`
	Queue     *QueueConfig     `yaml:"queue"`
	LLM       *LLMConfig       `yaml:"llm"`
	Processor *ProcessorConfig `yaml:"processor"`
	Fetch     *FetchConfig     `yaml:"fetch"`
	Retention *RetentionConfig `yaml:"retention"`
}

// Default returns the built-in configuration, complete enough to run against
// a local Postgres with only ANTHROPIC_API_KEY set.
func Default() *Config {
	return &Config{
		Database:  DefaultDatabaseConfig(),
		Queue:     DefaultQueueConfig(),
		LLM:       DefaultLLMConfig(),
		Processor: DefaultProcessorConfig(),
		Fetch:     DefaultFetchConfig(),
		Retention: DefaultRetentionConfig(),
	}
}

// Load reads path, expands environment variables, merges the result over the
// built-in defaults, and validates. A missing file is not an error: the
// defaults are returned so a bare deployment works with env vars alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No config file found, using defaults", "path", path)
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, NewLoadError(path, err)
	}

	var user Config
	if err := yaml.Unmarshal(ExpandEnv(data), &user); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	// User values override defaults; unset fields keep the default.
	if err := mergo.Merge(cfg, &user, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("failed to merge config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded", "path", path)
	return cfg, nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ validate() error }
	}{
		{"database", c.Database},
		{"queue", c.Queue},
		{"llm", c.LLM},
		{"processor", c.Processor},
		{"fetch", c.Fetch},
		{"retention", c.Retention},
	}
	for _, s := range sections {
		if err := s.v.validate(); err != nil {
			return fmt.Errorf("%w: section %s: %v", ErrValidationFailed, s.name, err)
		}
	}
	return nil
}
