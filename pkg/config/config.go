package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Preset storage backends.
const (
	PresetBackendMemory   = "memory"
	PresetBackendFile     = "file"
	PresetBackendRedis    = "redis"
	PresetBackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Log        LogConfig
	Processing ProcessingConfig
	Source     SourceConfig
	Presets    PresetConfig
	Cache      CacheConfig
	Exports    ExportsConfig
	Outcomes   OutcomesConfig
}

type DatabaseConfig struct {
	Enabled      bool
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig holds the single reviewer account accepted by the login stub.
type AuthConfig struct {
	Enabled           bool
	AdminEmail        string
	AdminPasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ProcessingConfig tunes the simulated review pipeline timings.
type ProcessingConfig struct {
	TickInterval    time.Duration
	StageInterval   time.Duration
	CompletionDelay time.Duration
	BatchStagger    time.Duration
	BulkGrace       time.Duration
	ScorerSeed      int64
	LoadOnStart     bool
}

// SourceConfig points at the remote application feed and its static fallback.
type SourceConfig struct {
	URL          string
	Timeout      time.Duration
	FallbackPath string
}

// PresetConfig selects where saved filters are persisted.
type PresetConfig struct {
	Backend    string
	StorageKey string
	FileDir    string
}

// CacheConfig governs memoisation of filtered views.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportsConfig configures CSV/PDF exports of the processed view.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// OutcomesConfig toggles the background outcome recorder.
type OutcomesConfig struct {
	Enabled       bool
	Workers       int
	MaxRetries    int
	RetryInterval time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DB_ENABLED"),
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{
		Enabled:           v.GetBool("ENABLE_AUTH"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Processing = ProcessingConfig{
		TickInterval:    parseDuration(v.GetString("PROCESSING_TICK_INTERVAL"), 250*time.Millisecond),
		StageInterval:   parseDuration(v.GetString("PROCESSING_STAGE_INTERVAL"), 2*time.Second),
		CompletionDelay: parseDuration(v.GetString("PROCESSING_COMPLETION_DELAY"), 10*time.Second),
		BatchStagger:    parseDuration(v.GetString("PROCESSING_BATCH_STAGGER"), 3*time.Second),
		BulkGrace:       parseDuration(v.GetString("PROCESSING_BULK_GRACE"), time.Second),
		ScorerSeed:      v.GetInt64("PROCESSING_SCORER_SEED"),
		LoadOnStart:     v.GetBool("PROCESSING_LOAD_ON_START"),
	}

	cfg.Source = SourceConfig{
		URL:          v.GetString("SOURCE_URL"),
		Timeout:      parseDuration(v.GetString("SOURCE_TIMEOUT"), 5*time.Second),
		FallbackPath: v.GetString("SOURCE_FALLBACK_PATH"),
	}

	cfg.Presets = PresetConfig{
		Backend:    strings.ToLower(v.GetString("PRESETS_BACKEND")),
		StorageKey: v.GetString("PRESETS_STORAGE_KEY"),
		FileDir:    v.GetString("PRESETS_FILE_DIR"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_FILTER_CACHE"),
		TTL:     parseDuration(v.GetString("FILTER_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), 30*time.Minute),
	}

	cfg.Outcomes = OutcomesConfig{
		Enabled:       v.GetBool("ENABLE_OUTCOME_LOG"),
		Workers:       v.GetInt("OUTCOME_WORKERS"),
		MaxRetries:    v.GetInt("OUTCOME_MAX_RETRIES"),
		RetryInterval: parseDuration(v.GetString("OUTCOME_RETRY_INTERVAL"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fraudlens")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "fraudlens")

	v.SetDefault("ENABLE_AUTH", false)
	v.SetDefault("ADMIN_EMAIL", "admin@fraudlens.local")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PROCESSING_TICK_INTERVAL", "250ms")
	v.SetDefault("PROCESSING_STAGE_INTERVAL", "2s")
	v.SetDefault("PROCESSING_COMPLETION_DELAY", "10s")
	v.SetDefault("PROCESSING_BATCH_STAGGER", "3s")
	v.SetDefault("PROCESSING_BULK_GRACE", "1s")
	v.SetDefault("PROCESSING_SCORER_SEED", 0)
	v.SetDefault("PROCESSING_LOAD_ON_START", true)

	v.SetDefault("SOURCE_URL", "")
	v.SetDefault("SOURCE_TIMEOUT", "5s")
	v.SetDefault("SOURCE_FALLBACK_PATH", "")

	v.SetDefault("PRESETS_BACKEND", PresetBackendFile)
	v.SetDefault("PRESETS_STORAGE_KEY", "fraudlens.savedFilters")
	v.SetDefault("PRESETS_FILE_DIR", "./data")

	v.SetDefault("ENABLE_FILTER_CACHE", false)
	v.SetDefault("FILTER_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "30m")

	v.SetDefault("ENABLE_OUTCOME_LOG", false)
	v.SetDefault("OUTCOME_WORKERS", 1)
	v.SetDefault("OUTCOME_MAX_RETRIES", 3)
	v.SetDefault("OUTCOME_RETRY_INTERVAL", "1s")
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
