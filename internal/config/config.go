// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/models"
)

// Config holds all configuration for the application. Credentials are never
// stored here; each section names the environment variable that carries its
// secret.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig holds vector store settings. Provider is "chroma" or "memory".
type StoreConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TenantEnv      string `yaml:"tenant_env"`
	DatabaseEnv    string `yaml:"database_env"`
	Collection     string `yaml:"collection"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	CacheSize      int    `yaml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ChunkingConfig holds text chunking settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, used when no config
// file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Store.Provider != "chroma" && c.Store.Provider != "memory" {
		return fmt.Errorf("%w: store.provider must be \"chroma\" or \"memory\", got %q", models.ErrValidation, c.Store.Provider)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", models.ErrValidation)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", models.ErrValidation)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", models.ErrValidation)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", models.ErrValidation)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be in [1, 65535]", models.ErrValidation)
	}
	return nil
}
