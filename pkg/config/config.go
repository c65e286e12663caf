package config

import (
	"errors"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Coverage     CoverageConfig
	Distribution DistributionConfig
	Exports      ExportsConfig
	Schedule     ScheduleConfig
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

// CoverageConfig tunes candidate classification and assignment behaviour.
type CoverageConfig struct {
	AutoAssign          bool
	AllowManualOverride bool
}

// DistributionConfig governs bulk distribution runs.
type DistributionConfig struct {
	GridCacheTTL      time.Duration
	WorkerConcurrency int
	QueueBufferSize   int
	WorkerRetries     int
}

// ExportsConfig controls substitution log export storage.
type ExportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// ScheduleConfig mirrors the timetable shape supplied by the import subsystem.
type ScheduleConfig struct {
	PeriodsPerDay int
	WorkingDays   []int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.Coverage = CoverageConfig{
		AutoAssign:          v.GetBool("COVERAGE_AUTO_ASSIGN"),
		AllowManualOverride: v.GetBool("COVERAGE_ALLOW_MANUAL_OVERRIDE"),
	}

	cfg.Distribution = DistributionConfig{
		GridCacheTTL:      parseDuration(v.GetString("DISTRIBUTION_GRID_CACHE_TTL"), 30*time.Minute),
		WorkerConcurrency: v.GetInt("DISTRIBUTION_WORKER_CONCURRENCY"),
		QueueBufferSize:   v.GetInt("DISTRIBUTION_QUEUE_BUFFER"),
		WorkerRetries:     v.GetInt("DISTRIBUTION_WORKER_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Schedule = ScheduleConfig{
		PeriodsPerDay: v.GetInt("SCHEDULE_PERIODS_PER_DAY"),
		WorkingDays:   splitDays(v.GetString("SCHEDULE_WORKING_DAYS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coverage_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("COVERAGE_AUTO_ASSIGN", false)
	v.SetDefault("COVERAGE_ALLOW_MANUAL_OVERRIDE", false)

	v.SetDefault("DISTRIBUTION_GRID_CACHE_TTL", "30m")
	v.SetDefault("DISTRIBUTION_WORKER_CONCURRENCY", 1)
	v.SetDefault("DISTRIBUTION_QUEUE_BUFFER", 8)
	v.SetDefault("DISTRIBUTION_WORKER_RETRIES", 1)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("SCHEDULE_PERIODS_PER_DAY", 8)
	v.SetDefault("SCHEDULE_WORKING_DAYS", "1,2,3,4,5")
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

func splitDays(raw string) []int {
	days := make([]int, 0, 6)
	for _, part := range splitAndTrim(raw) {
		switch part {
		case "1", "2", "3", "4", "5", "6", "7":
			days = append(days, int(part[0]-'0'))
		}
	}
	if len(days) == 0 {
		return []int{1, 2, 3, 4, 5}
	}
	return days
}
