package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
store:
  provider: "memory"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Store.Provider != "memory" {
		t.Errorf("store provider: got %s", cfg.Store.Provider)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 5001
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chunking:
  size: 100
  overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, models.ErrValidation) {
		t.Errorf("overlap == size should fail validation, got %v", err)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should return an error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Store.Provider != "chroma" {
		t.Errorf("default store provider: got %s", cfg.Store.Provider)
	}
	if cfg.Store.Collection != "rag_documents" {
		t.Errorf("default collection: got %s", cfg.Store.Collection)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("default chunking: %+v", cfg.Chunking)
	}
	if cfg.Embedding.Model != "text-embedding-004" {
		t.Errorf("default embedding model: got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.BatchSize != 100 {
		t.Errorf("default batch size: got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Embedding.CacheSize != 10000 {
		t.Errorf("default cache size: got %d", cfg.Embedding.CacheSize)
	}
	if cfg.Generation.Model != "gemini-2.0-flash" {
		t.Errorf("default generation model: got %s", cfg.Generation.Model)
	}
	if cfg.Embedding.APIKeyEnv != "GOOGLE_API_KEY" || cfg.Store.APIKeyEnv != "CHROMA_API_KEY" {
		t.Errorf("default credential envs: %s, %s", cfg.Embedding.APIKeyEnv, cfg.Store.APIKeyEnv)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.Store.Provider = "postgres" }},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = -1 }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = -5 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, models.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
