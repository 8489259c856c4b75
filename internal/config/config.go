// Package config loads conductor settings from defaults, an optional YAML
// file and CONDUCTOR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/adapters/workers"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/persistence/middleware"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONDUCTOR_LLM_MODEL.
const EnvPrefix = "CONDUCTOR"

// Store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config holds all configuration for the conductor binary.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Run     RunConfig     `mapstructure:"run"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Workers WorkersConfig `mapstructure:"workers"`
	Store   StoreConfig   `mapstructure:"store"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	MCP     MCPConfig     `mapstructure:"mcp"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RunConfig bounds a single run.
type RunConfig struct {
	MaxReplans             int           `mapstructure:"max_replans"`
	CallTimeout            time.Duration `mapstructure:"call_timeout"`
	MaxTransitions         int           `mapstructure:"max_transitions"`
	MaxQuerySize           int           `mapstructure:"max_query_size"`
	WorkerErrorsAsMessages bool          `mapstructure:"worker_errors_as_messages"`
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// Validate checks that a model can be called.
func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("llm.api_key is required (or set OPENAI_API_KEY)")
	}
	if c.MaxRetries < 0 {
		return errors.New("llm.max_retries must not be negative")
	}
	return nil
}

type WorkersConfig struct {
	CatalogFile   string         `mapstructure:"catalog_file"`
	Database      DatabaseConfig `mapstructure:"database"`
	RowLimit      int            `mapstructure:"row_limit"`
	QueryAttempts int            `mapstructure:"query_attempts"`
	ChartDir      string         `mapstructure:"chart_dir"`
	Search        SearchConfig   `mapstructure:"search"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SearchConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"`
}

// StoreConfig selects where transcripts are archived.
type StoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	FallbackKeys  []string      `mapstructure:"fallback_keys"`
	RedactPII     bool          `mapstructure:"redact_pii"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type MCPConfig struct {
	Transport string `mapstructure:"transport"`
	Address   string `mapstructure:"address"`
	BaseURL   string `mapstructure:"base_url"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatText)

	v.SetDefault("run.max_replans", domain.MaxReplans)
	v.SetDefault("run.call_timeout", 2*time.Minute)
	v.SetDefault("run.max_transitions", 100)
	v.SetDefault("run.max_query_size", 0)
	v.SetDefault("run.worker_errors_as_messages", true)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.rate_limit", 0.0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.backoff", 500*time.Millisecond)

	v.SetDefault("workers.catalog_file", "")
	v.SetDefault("workers.database.driver", workers.DriverSQLite)
	v.SetDefault("workers.database.dsn", "")
	v.SetDefault("workers.row_limit", workers.DefaultRowLimit)
	v.SetDefault("workers.query_attempts", 2)
	v.SetDefault("workers.chart_dir", "charts")
	v.SetDefault("workers.search.url", workers.DefaultSearchURL)
	v.SetDefault("workers.search.api_key", "")
	v.SetDefault("workers.search.max_results", 5)

	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.ttl", 0)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.redact_pii", false)
	v.SetDefault("store.lock_ttl", 5*time.Minute)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "conductor:")

	v.SetDefault("http.address", ":8080")

	v.SetDefault("mcp.transport", TransportStdio)
	v.SetDefault("mcp.address", ":8081")
	v.SetDefault("mcp.base_url", "http://localhost:8081")

	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration. An empty path looks for conductor.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path == "" {
		v.SetConfigName("conductor")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known provider variables, consulted after the prefixed ones.
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("workers.search.api_key", EnvPrefix+"_WORKERS_SEARCH_API_KEY", "TAVILY_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format)
	}

	if c.Run.MaxReplans < 0 {
		return errors.New("run.max_replans must not be negative")
	}
	if c.Run.CallTimeout <= 0 {
		return errors.New("run.call_timeout must be positive")
	}
	if c.Run.MaxTransitions <= 0 {
		return errors.New("run.max_transitions must be positive")
	}

	if c.Workers.Database.DSN != "" {
		switch c.Workers.Database.Driver {
		case workers.DriverSQLite, workers.DriverPostgres:
		default:
			return fmt.Errorf("workers.database.driver %q is not supported", c.Workers.Database.Driver)
		}
	}
	if c.Workers.RowLimit <= 0 {
		return errors.New("workers.row_limit must be positive")
	}

	switch c.Store.Backend {
	case StoreNone, StoreMemory:
	case StoreRedis:
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be one of none, memory, redis; got %q", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return errors.New("store.ttl must not be negative")
	}
	for _, k := range append([]string{c.Store.EncryptionKey}, c.Store.FallbackKeys...) {
		if k == "" {
			continue
		}
		if _, err := middleware.ParseKey(k); err != nil {
			return fmt.Errorf("store encryption key: %w", err)
		}
	}

	switch c.MCP.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("mcp.transport must be %q or %q, got %q", TransportStdio, TransportSSE, c.MCP.Transport)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}
