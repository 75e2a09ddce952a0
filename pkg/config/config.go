package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream     UpstreamConfig
	Browse       BrowseConfig
	Registration RegistrationConfig
	Reference    ReferenceCacheConfig
	Audit        AuditConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Tracing      TracingConfig
}

// UpstreamConfig points at the academy REST backend.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BrowseConfig tunes the list query pipeline shared by browse sessions and list endpoints.
type BrowseConfig struct {
	SearchDebounce  time.Duration
	DefaultPageSize int
	MaxPageSize     int
	QueryCacheTTL   time.Duration
	SessionTTL      time.Duration
}

// RegistrationConfig governs the public registration flow.
type RegistrationConfig struct {
	RequireLevel bool
	RateLimit    float64
	RateBurst    int
}

// ReferenceCacheConfig toggles Redis caching of levels, subjects and the teacher dropdown.
type ReferenceCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AuditConfig toggles persistence of admin mutations.
type AuditConfig struct {
	Enabled bool
	Workers int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig selects the span exporter for upstream calls.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	OTLPEndpoint string
	SampleRate   float64
	ServiceName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
	}

	defaultSize := v.GetInt("DEFAULT_PAGE_SIZE")
	if defaultSize <= 0 {
		defaultSize = 2
	}
	maxSize := v.GetInt("MAX_PAGE_SIZE")
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	cfg.Browse = BrowseConfig{
		SearchDebounce:  parseDuration(v.GetString("SEARCH_DEBOUNCE"), 500*time.Millisecond),
		DefaultPageSize: defaultSize,
		MaxPageSize:     maxSize,
		QueryCacheTTL:   parseDuration(v.GetString("QUERY_CACHE_TTL"), 5*time.Minute),
		SessionTTL:      parseDuration(v.GetString("BROWSE_SESSION_TTL"), 30*time.Minute),
	}

	cfg.Registration = RegistrationConfig{
		RequireLevel: v.GetBool("REGISTRATION_REQUIRE_LEVEL"),
		RateLimit:    v.GetFloat64("REGISTRATION_RATE_LIMIT"),
		RateBurst:    v.GetInt("REGISTRATION_RATE_BURST"),
	}

	cfg.Reference = ReferenceCacheConfig{
		Enabled: v.GetBool("ENABLE_REFERENCE_CACHE"),
		TTL:     parseDuration(v.GetString("REFERENCE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("ENABLE_AUDIT"),
		Workers: v.GetInt("AUDIT_WORKERS"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("TRACING_ENABLED"),
		Exporter:     v.GetString("TRACING_EXPORTER"),
		OTLPEndpoint: v.GetString("TRACING_OTLP_ENDPOINT"),
		SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
		ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:5000")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")

	v.SetDefault("SEARCH_DEBOUNCE", "500ms")
	v.SetDefault("DEFAULT_PAGE_SIZE", 2)
	v.SetDefault("MAX_PAGE_SIZE", 50)
	v.SetDefault("QUERY_CACHE_TTL", "5m")
	v.SetDefault("BROWSE_SESSION_TTL", "30m")

	v.SetDefault("REGISTRATION_REQUIRE_LEVEL", true)
	v.SetDefault("REGISTRATION_RATE_LIMIT", 2)
	v.SetDefault("REGISTRATION_RATE_BURST", 5)

	v.SetDefault("ENABLE_REFERENCE_CACHE", false)
	v.SetDefault("REFERENCE_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_AUDIT", false)
	v.SetDefault("AUDIT_WORKERS", 1)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)
	v.SetDefault("TRACING_SERVICE_NAME", "academy-portal")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
