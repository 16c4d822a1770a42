package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted for the local fallback store.
const (
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	PublicURL          string
	PortalAPIURL       string
	PortalTimeout      time.Duration
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	OpenRouterModel    string
	OpenRouterTitle    string
	OpenRouterTemp     float32
	OpenRouterMaxToken int
	MockEvaluationWait time.Duration
	UploadMaxSizeMB    int
	StorageDriver      string
	DatabaseURL        string
	SQLitePath         string
	RedisURL           string
	CatalogCacheTTL    time.Duration
	EventsChannel      string
	NATSURL            string
	JWTSecret          string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadMaxBytes returns the upload size limit in bytes.
func (c Config) UploadMaxBytes() int64 {
	if c.UploadMaxSizeMB <= 0 {
		return 10 * 1024 * 1024
	}
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "University Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8081")
	v.SetDefault("app.public_url", "http://localhost:5173")
	v.SetDefault("portal.api_url", "http://localhost:8080/api")
	v.SetDefault("portal.timeout", "10s")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "deepseek/deepseek-chat")
	v.SetDefault("openrouter.title", "University Portal - AI Evaluator")
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.max_tokens", 800)
	v.SetDefault("evaluation.mock_delay", "2s")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("storage.driver", StorageDriverSQLite)
	v.SetDefault("sqlite.path", "portal-local.db")
	v.SetDefault("catalog.cache_ttl", "5m")
	v.SetDefault("events.channel", "portal")

	portalTimeout, err := parseDuration(v, "portal.timeout")
	if err != nil {
		return Config{}, err
	}

	mockDelay, err := parseDuration(v, "evaluation.mock_delay")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "catalog.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		PublicURL:          v.GetString("app.public_url"),
		PortalAPIURL:       v.GetString("portal.api_url"),
		PortalTimeout:      portalTimeout,
		OpenRouterAPIKey:   v.GetString("openrouter_api_key"),
		OpenRouterBaseURL:  v.GetString("openrouter.base_url"),
		OpenRouterModel:    v.GetString("openrouter.model"),
		OpenRouterTitle:    v.GetString("openrouter.title"),
		OpenRouterTemp:     float32(v.GetFloat64("openrouter.temperature")),
		OpenRouterMaxToken: v.GetInt("openrouter.max_tokens"),
		MockEvaluationWait: mockDelay,
		UploadMaxSizeMB:    v.GetInt("upload.max_size_mb"),
		StorageDriver:      strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		DatabaseURL:        v.GetString("database.url"),
		SQLitePath:         v.GetString("sqlite.path"),
		RedisURL:           v.GetString("redis.url"),
		CatalogCacheTTL:    cacheTTL,
		EventsChannel:      v.GetString("events.channel"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided")
	}

	switch c.StorageDriver {
	case StorageDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis storage driver")
		}
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database url is required for the postgres storage driver")
		}
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	if c.UploadMaxSizeMB <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}

	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}
