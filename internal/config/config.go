// Package config loads and validates the service configuration.
//
// DESIGN: All configuration comes from YAML files. Required fields have no
// implicit defaults - the embedded default config in cmd/ supplies them, so
// a running server always has explicit, auditable settings.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/compaqt/compaqt/internal/embeddings"
	"github.com/compaqt/compaqt/internal/monitoring"
)

// Config is the root configuration for the compression service.
type Config struct {
	Server      ServerConfig            `yaml:"server"`      // HTTP server settings
	Tokenizer   TokenizerConfig         `yaml:"tokenizer"`   // Subword tokenizer backend
	Embeddings  embeddings.Config       `yaml:"embeddings"`  // Embedding provider
	Compression CompressionConfig       `yaml:"compression"` // Reduction defaults
	Store       StoreConfig             `yaml:"store"`       // Result cache and history
	Logging     monitoring.LoggerConfig `yaml:"logging"`     // zerolog settings
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
}

// TokenizerConfig selects the subword tokenizer backend.
type TokenizerConfig struct {
	Encoding string `yaml:"encoding"` // BPE encoding name, e.g. cl100k_base
	Disabled bool   `yaml:"disabled"` // Force degraded estimator mode
}

// CompressionConfig holds defaults for semantic reduction.
type CompressionConfig struct {
	Ratio    float64 `yaml:"ratio"`     // Target length fraction per sentence, (0,1]
	MinWords int     `yaml:"min_words"` // Floor below which sentences are left alone
}

// StoreConfig contains cache and history settings.
type StoreConfig struct {
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // Result cache entry lifetime
	HistoryPath string        `yaml:"history_path"` // sqlite file; empty disables history
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, expanding
// ${VAR:-default} environment references and validating the result.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}

	if c.Compression.Ratio <= 0 || c.Compression.Ratio > 1 {
		return fmt.Errorf("invalid compression.ratio: %g (must be in (0,1])", c.Compression.Ratio)
	}
	if c.Compression.MinWords < 1 {
		return fmt.Errorf("invalid compression.min_words: %d (must be >= 1)", c.Compression.MinWords)
	}

	if c.Store.CacheTTL < 0 {
		return fmt.Errorf("store.cache_ttl must not be negative")
	}

	switch c.Embeddings.Provider {
	case "", "hash", "fastembed":
	default:
		return fmt.Errorf("invalid embeddings.provider: %q", c.Embeddings.Provider)
	}

	return nil
}
