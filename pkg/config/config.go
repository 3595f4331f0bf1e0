// Package config loads the backend's layered configuration: built-in
// defaults, an optional config file, then environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Providers      ProvidersConfig      `mapstructure:"providers"`
	Indexing       IndexingConfig       `mapstructure:"indexing"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Alert          AlertConfig          `mapstructure:"alert"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	ReadTimeoutSec    int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec   int    `mapstructure:"write_timeout_seconds"`
	ShutdownGraceSec  int    `mapstructure:"shutdown_grace_seconds"`
}

// StorageConfig holds filesystem and database paths.
type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	WorkingDir  string `mapstructure:"working_dir"`
	CatalogPath string `mapstructure:"catalog_path"`
	ChatDBPath  string `mapstructure:"chat_db_path"`
}

// IndexingConfig holds Background Indexer tuning.
type IndexingConfig struct {
	AutoIndexingEnabled bool `mapstructure:"auto_indexing_enabled"`
	ScanIntervalSeconds int  `mapstructure:"scan_interval_seconds"`
	MaxFilesPerBatch    int  `mapstructure:"max_files_per_batch"`
}

// ProvidersConfig holds the per-kind provider configurations, a map of
// additional named providers, and the batch scheduler settings.
type ProvidersConfig struct {
	LLM       ProviderConfig            `mapstructure:"llm"`
	Embedding ProviderConfig            `mapstructure:"embedding"`
	Vision    *ProviderConfig           `mapstructure:"vision"`
	Reranker  *ProviderConfig           `mapstructure:"reranker"`
	Named     map[string]ProviderConfig `mapstructure:"named"`
	Scheduler SchedulerConfig           `mapstructure:"scheduler"`
}

// ProviderConfig describes a single named provider: a provider is
// addressed by (kind, backend, model-name, optional base-url, optional
// credential, optional dimension, extra-params map).
type ProviderConfig struct {
	Kind          string            `mapstructure:"kind"`    // llm, vision, embedding, reranker
	Backend       string            `mapstructure:"backend"` // remote-openai-compatible, remote-jina, remote-anthropic, local-inprocess-gpu
	Model         string            `mapstructure:"model"`
	APIKey        string            `mapstructure:"-"` // never serialized; populated from env
	BaseURL       string            `mapstructure:"base_url"`
	Dimension     int               `mapstructure:"dimension"`
	Temperature   float32           `mapstructure:"temperature"`
	MaxTokens     int               `mapstructure:"max_tokens"`
	TimeoutSec    int               `mapstructure:"timeout_seconds"`
	Extra         map[string]string `mapstructure:"extra"`
	Enabled       bool              `mapstructure:"enabled"`

	// Deprecated: legacy provider="local" + CUDA device string detection.
	// Prefer Backend="local-inprocess-gpu" explicitly; see DESIGN.md.
	LegacyProvider string `mapstructure:"provider"`
	LegacyDevice   string `mapstructure:"device"`
}

// SchedulerConfig tunes the dynamic batch scheduler.
type SchedulerConfig struct {
	MaxBatchSize     int     `mapstructure:"max_batch_size"`
	MaxWaitSeconds   float64 `mapstructure:"max_wait_seconds"`
	MaxBatchTokens   int     `mapstructure:"max_batch_tokens"` // 0 = unbudgeted
	EncodeBatchSize  int     `mapstructure:"encode_batch_size"`
}

// CircuitBreakerConfig holds circuit-breaking configuration.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	IntervalSeconds  int     `mapstructure:"interval_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// AlertConfig holds configuration for alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"-"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load loads configuration from an optional file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(cfg)

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 30)
	viper.SetDefault("server.write_timeout_seconds", 60)
	viper.SetDefault("server.shutdown_grace_seconds", 15)

	home, err := os.UserHomeDir()
	defaultWorkingDir := "./data/working"
	defaultUploadDir := "./data/uploads"
	if err == nil {
		defaultWorkingDir = fmt.Sprintf("%s/.predicato-rag/working", home)
		defaultUploadDir = fmt.Sprintf("%s/.predicato-rag/uploads", home)
	}
	viper.SetDefault("storage.working_dir", defaultWorkingDir)
	viper.SetDefault("storage.upload_dir", defaultUploadDir)
	viper.SetDefault("storage.catalog_path", defaultWorkingDir+"/index_status.db")
	viper.SetDefault("storage.chat_db_path", defaultWorkingDir+"/chat_sessions.db")

	viper.SetDefault("indexing.auto_indexing_enabled", true)
	viper.SetDefault("indexing.scan_interval_seconds", 30)
	viper.SetDefault("indexing.max_files_per_batch", 5)

	viper.SetDefault("providers.llm.kind", "llm")
	viper.SetDefault("providers.llm.backend", "remote-openai-compatible")
	viper.SetDefault("providers.llm.model", "gpt-4o-mini")
	viper.SetDefault("providers.llm.temperature", 0.1)
	viper.SetDefault("providers.llm.max_tokens", 2048)
	viper.SetDefault("providers.llm.timeout_seconds", 60)

	viper.SetDefault("providers.embedding.kind", "embedding")
	viper.SetDefault("providers.embedding.backend", "remote-openai-compatible")
	viper.SetDefault("providers.embedding.model", "text-embedding-3-small")
	viper.SetDefault("providers.embedding.dimension", 1536)
	viper.SetDefault("providers.embedding.timeout_seconds", 30)

	viper.SetDefault("providers.scheduler.max_batch_size", 32)
	viper.SetDefault("providers.scheduler.max_wait_seconds", 0.2)
	viper.SetDefault("providers.scheduler.max_batch_tokens", 0)
	viper.SetDefault("providers.scheduler.encode_batch_size", 32)

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval_seconds", 60)
	viper.SetDefault("circuit_breaker.timeout_seconds", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.5)
}

func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Providers.LLM.APIKey = key
		cfg.Providers.Embedding.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Providers.LLM.Backend == "remote-anthropic" {
		cfg.Providers.LLM.APIKey = key
	}
	if key := os.Getenv("JINA_API_KEY"); key != "" && cfg.Providers.Embedding.Backend == "remote-jina" {
		cfg.Providers.Embedding.APIKey = key
	}
	if pass := os.Getenv("ALERT_SMTP_PASSWORD"); pass != "" {
		cfg.Alert.Password = pass
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.Storage.UploadDir = dir
	}
	if dir := os.Getenv("WORKING_DIR"); dir != "" {
		cfg.Storage.WorkingDir = dir
	}
}

// Redacted returns a copy of cfg safe to expose over GET /api/config: every
// credential-bearing field is cleared.
func (c *Config) Redacted() Config {
	redacted := *c
	redacted.Providers.LLM.APIKey = ""
	redacted.Providers.Embedding.APIKey = ""
	if redacted.Providers.Vision != nil {
		v := *redacted.Providers.Vision
		v.APIKey = ""
		redacted.Providers.Vision = &v
	}
	if redacted.Providers.Reranker != nil {
		r := *redacted.Providers.Reranker
		r.APIKey = ""
		redacted.Providers.Reranker = &r
	}
	named := make(map[string]ProviderConfig, len(redacted.Providers.Named))
	for k, v := range redacted.Providers.Named {
		v.APIKey = ""
		named[k] = v
	}
	redacted.Providers.Named = named
	redacted.Alert.Password = ""
	return redacted
}
