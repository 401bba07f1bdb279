package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Content sources
const (
	ContentSourceFS       = "fs"
	ContentSourcePostgres = "postgres"
)

// Completion providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Content       ContentConfig
	Database      DatabaseConfig
	Chunking      ChunkingConfig
	Retrieval     RetrievalConfig
	Scope         ScopeConfig
	Completion    CompletionConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// ContentConfig selects where lessons come from and how they are cached
type ContentConfig struct {
	Source       string
	Dir          string
	Extensions   []string
	CacheEnabled bool
	CacheTTL     time.Duration
	Watch        bool
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ChunkingConfig holds the chunk window parameters, in characters
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// RetrievalConfig holds retrieval parameters
type RetrievalConfig struct {
	TopK int
}

// ScopeConfig points at an optional TOML file extending the syllabus
type ScopeConfig struct {
	SyllabusFile string
}

// CompletionConfig holds the completion service settings
type CompletionConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	OpenAI      ProviderCredentials
	Anthropic   ProviderCredentials
}

// ProviderCredentials holds the endpoint and key of one completion provider
type ProviderCredentials struct {
	APIKey  string
	BaseURL string
}

// RateLimitConfig holds per-client throttling for the chat endpoint
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 45*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
		},
		Content: ContentConfig{
			Source:       strings.ToLower(getEnv("CONTENT_SOURCE", ContentSourceFS)),
			Dir:          getEnv("CONTENT_DIR", "content"),
			Extensions:   getEnvAsList("CONTENT_EXTENSIONS", []string{".md", ".mdx"}),
			CacheEnabled: getEnvAsBool("CONTENT_CACHE_ENABLED", false),
			CacheTTL:     getEnvAsDuration("CONTENT_CACHE_TTL", 5*time.Minute),
			Watch:        getEnvAsBool("CONTENT_WATCH", false),
		},
		Database: loadDatabaseConfig(),
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Retrieval: RetrievalConfig{
			TopK: getEnvAsInt("RETRIEVAL_TOP_K", 6),
		},
		Scope: ScopeConfig{
			SyllabusFile: getEnv("SYLLABUS_FILE", ""),
		},
		Completion: CompletionConfig{
			Provider:    strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderOpenAI)),
			Model:       getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("COMPLETION_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("COMPLETION_MAX_TOKENS", 0),
			Timeout:     getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
			OpenAI: ProviderCredentials{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			},
			Anthropic: ProviderCredentials{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 1),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Content source
	switch c.Content.Source {
	case ContentSourceFS:
		if c.Content.Dir == "" {
			return fmt.Errorf("content directory is required when CONTENT_SOURCE=fs")
		}
	case ContentSourcePostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
		if c.Content.Watch {
			return fmt.Errorf("CONTENT_WATCH requires CONTENT_SOURCE=fs")
		}
	default:
		return fmt.Errorf("unknown content source %q: use %q or %q", c.Content.Source, ContentSourceFS, ContentSourcePostgres)
	}
	if c.Content.CacheEnabled && c.Content.CacheTTL <= 0 {
		return fmt.Errorf("content cache TTL must be positive")
	}

	// Chunking and retrieval
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative")
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top-k must be positive")
	}

	// Completion
	switch c.Completion.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown completion provider %q: use %q or %q", c.Completion.Provider, ProviderOpenAI, ProviderAnthropic)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion temperature must be between 0 and 2")
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion timeout must be positive")
	}
	if c.IsProduction() && c.Completion.Credentials().APIKey == "" {
		return fmt.Errorf("an API key for provider %q is required in production", c.Completion.Provider)
	}

	// Rate limiting
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Validate checks the database settings needed to connect
func (c *DatabaseConfig) Validate() error {
	if c.ConnectionString == "" && c.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.ConnectionString == "" {
		if c.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}
	return nil
}

// Credentials returns the key and endpoint of the selected provider
func (c *CompletionConfig) Credentials() ProviderCredentials {
	if c.Provider == ProviderAnthropic {
		return c.Anthropic
	}
	return c.OpenAI
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "tutor"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "lessons"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
