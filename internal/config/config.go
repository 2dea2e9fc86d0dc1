package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store and index drivers.
const (
	DriverRedis         = "redis"
	DriverMemory        = "memory"
	DriverElasticsearch = "elasticsearch"
)

// Config holds the xsearch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps API keys to the user id they authenticate.
// Admin keys additionally unlock the cache and metrics maintenance routes.
type AuthConfig struct {
	APIKeys   map[string]string `yaml:"api_keys"`
	AdminKeys []string          `yaml:"admin_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int  `yaml:"port"`
	ReadTimeoutSec  int  `yaml:"read_timeout_sec"`
	WriteTimeoutSec int  `yaml:"write_timeout_sec"`
	ShutdownSec     int  `yaml:"shutdown_timeout_sec"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy      bool `yaml:"trust_proxy"`
}

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig selects the full-text backend.
type IndexConfig struct {
	Driver        string            `yaml:"driver"` // redis, elasticsearch (default: redis)
	Names         map[string]string `yaml:"names"`  // record type -> index name
	EnsureIndexes bool              `yaml:"ensure_indexes"`
	MaxHits       int               `yaml:"max_hits"`
	TimeoutMs     int               `yaml:"timeout_ms"`
	Elasticsearch ElasticConfig     `yaml:"elasticsearch"`
}

// ElasticConfig holds Elasticsearch connection settings.
type ElasticConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	APIKey   string   `yaml:"api_key"`
}

// SearchConfig holds pagination and result rendering settings.
type SearchConfig struct {
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	BaseURL         string `yaml:"base_url"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled       bool `yaml:"enabled"`
	SearchTTLSec  int  `yaml:"search_ttl_sec"`
	SuggestTTLSec int  `yaml:"suggest_ttl_sec"`
	StatsTTLSec   int  `yaml:"stats_ttl_sec"`
}

// MetricsConfig holds search metrics settings.
type MetricsConfig struct {
	RetentionDays     int `yaml:"retention_days"`
	RecorderQueue     int `yaml:"recorder_queue"`
	RecorderTimeoutMs int `yaml:"recorder_timeout_ms"`
}

// ThrottleConfig holds per-route request limits.
type ThrottleConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Default RouteLimit            `yaml:"default"`
	Routes  map[string]RouteLimit `yaml:"routes"`
}

// RouteLimit is a fixed window limit.
type RouteLimit struct {
	MaxAttempts int `yaml:"max_attempts"`
	WindowSec   int `yaml:"window_sec"`
}

// Limit returns the limit of a route, falling back to the default.
func (t ThrottleConfig) Limit(route string) RouteLimit {
	if l, ok := t.Routes[route]; ok && l.MaxAttempts > 0 && l.WindowSec > 0 {
		return l
	}
	return t.Default
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.MaxHits <= 0 {
		c.Index.MaxHits = 1000
	}
	if c.Index.TimeoutMs <= 0 {
		c.Index.TimeoutMs = 3000
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 15
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 3600
	}
	if c.Cache.SuggestTTLSec <= 0 {
		c.Cache.SuggestTTLSec = 7200
	}
	if c.Cache.StatsTTLSec <= 0 {
		c.Cache.StatsTTLSec = 1800
	}
	if c.Metrics.RetentionDays <= 0 {
		c.Metrics.RetentionDays = 30
	}
	if c.Metrics.RecorderQueue <= 0 {
		c.Metrics.RecorderQueue = 1024
	}
	if c.Metrics.RecorderTimeoutMs <= 0 {
		c.Metrics.RecorderTimeoutMs = 2000
	}
	if c.Throttle.Default.MaxAttempts <= 0 {
		c.Throttle.Default.MaxAttempts = 60
	}
	if c.Throttle.Default.WindowSec <= 0 {
		c.Throttle.Default.WindowSec = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverMemory:
		if c.Index.Driver == DriverRedis {
			return fmt.Errorf("index.driver %q requires database.driver %q", DriverRedis, DriverRedis)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Database.Driver)
	}
	switch c.Index.Driver {
	case DriverRedis:
	case DriverElasticsearch:
		if len(c.Index.Elasticsearch.Addrs) == 0 {
			return fmt.Errorf("index.elasticsearch.addrs is required")
		}
	default:
		return fmt.Errorf("index.driver must be %q or %q, got %q", DriverRedis, DriverElasticsearch, c.Index.Driver)
	}
	for name := range c.Index.Names {
		switch name {
		case "profile", "listing", "achievement":
		default:
			return fmt.Errorf("index.names.%s: unsupported record type", name)
		}
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size (%d) exceeds search.max_page_size (%d)",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	for route, l := range c.Throttle.Routes {
		if l.MaxAttempts <= 0 || l.WindowSec <= 0 {
			return fmt.Errorf("throttle.routes.%s: max_attempts and window_sec must be positive", route)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
