// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Session   SessionConfig   `koanf:"session"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Catalog   []CatalogEntry  `koanf:"catalog"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// TrustProxy honours X-Forwarded-For and X-Real-IP for client addresses.
	TrustProxy bool `koanf:"trust_proxy"`
}

type SessionConfig struct {
	Store     string        `koanf:"store"`
	TTL       time.Duration `koanf:"ttl"`
	KeyPrefix string        `koanf:"key_prefix"`
	SeedCount int           `koanf:"seed_count"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	AllowedMethods []string `koanf:"allowed_methods"`
	AllowedHeaders []string `koanf:"allowed_headers"`
	MaxAge         int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CatalogEntry is one (label, minValue) pair of the default tier catalog.
type CatalogEntry struct {
	Label    string `koanf:"label"`
	MinValue int    `koanf:"min_value"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// DefaultCatalog is the built-in six entry tier catalog, best credit first.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Label: "Excellent credit", MinValue: 800},
		{Label: "Very good credit", MinValue: 740},
		{Label: "Good credit", MinValue: 670},
		{Label: "Fair credit", MinValue: 580},
		{Label: "Poor credit", MinValue: 500},
		{Label: "Very poor credit", MinValue: 300},
	}
}

func loadDefaults(k *koanf.Koanf) error {
	catalog := make([]map[string]any, 0, 6)
	for _, e := range DefaultCatalog() {
		catalog = append(catalog, map[string]any{
			"label":     e.Label,
			"min_value": e.MinValue,
		})
	}

	defaults := map[string]any{
		"app.name":        "tierform",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.trust_proxy":      false,

		"session.store":      SessionStoreMemory,
		"session.ttl":        "12h",
		"session.key_prefix": "tierform:session:",
		"session.seed_count": 4,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"rate_limit.enabled":  true,
		"rate_limit.requests": 300,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    50,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.max_age": 300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "tierform",

		"catalog": catalog,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"TRUST_PROXY":                 "server.trust_proxy",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"SESSION_STORE":               "session.store",
	"SESSION_TTL":                 "session.ttl",
	"SESSION_KEY_PREFIX":          "session.key_prefix",
	"RATE_LIMIT_ENABLED":          "rate_limit.enabled",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when session.store is redis")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if len(c.Catalog) == 0 {
		return fmt.Errorf("catalog must have at least one entry")
	}

	if c.Session.SeedCount < 1 || c.Session.SeedCount > len(c.Catalog) {
		return fmt.Errorf(
			"session.seed_count must be between 1 and %d",
			len(c.Catalog),
		)
	}

	for i, e := range c.Catalog {
		if e.MinValue < 300 || e.MinValue > 850 {
			return fmt.Errorf(
				"catalog[%d].min_value %d outside 300-850",
				i,
				e.MinValue,
			)
		}
	}

	for _, origin := range c.CORS.AllowedOrigins {
		if origin == "*" && c.IsProduction() {
			return fmt.Errorf("CORS wildcard '*' is not allowed in production")
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be positive")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
