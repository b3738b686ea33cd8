package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "chroma"
	}
	if cfg.Store.BaseURL == "" {
		cfg.Store.BaseURL = "https://api.trychroma.com"
	}
	if cfg.Store.APIKeyEnv == "" {
		cfg.Store.APIKeyEnv = "CHROMA_API_KEY"
	}
	if cfg.Store.TenantEnv == "" {
		cfg.Store.TenantEnv = "CHROMA_TENANT"
	}
	if cfg.Store.DatabaseEnv == "" {
		cfg.Store.DatabaseEnv = "CHROMA_DATABASE"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "rag_documents"
	}
	if cfg.Store.TimeoutSeconds == 0 {
		cfg.Store.TimeoutSeconds = 5
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gemini-2.0-flash"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 10
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
}
