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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Catalog       CatalogConfig
	Enrollment    EnrollmentConfig
	Cache         CacheConfig
	Notifications NotificationConfig
	Maintenance   MaintenanceConfig
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

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig points at the YAML skill taxonomy loaded once at startup.
type CatalogConfig struct {
	Path string
}

// EnrollmentConfig holds the admission ceilings for the enrollment workflow.
type EnrollmentConfig struct {
	MaxParticipantsPerCourse int
	DefaultSessionCapacity   int
}

// CacheConfig governs the course overview cache.
type CacheConfig struct {
	Enabled   bool
	CourseTTL time.Duration
}

// NotificationConfig configures the asynchronous notification dispatcher.
type NotificationConfig struct {
	Enabled       bool
	Workers       int
	Retries       int
	ChannelPrefix string
}

// MaintenanceConfig schedules housekeeping jobs using cron specs.
type MaintenanceConfig struct {
	Enabled          bool
	TokenPurgeSpec   string
	SessionSweepSpec string
	Timeout          time.Duration
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Catalog = CatalogConfig{Path: v.GetString("SKILL_CATALOG_PATH")}

	cfg.Enrollment = EnrollmentConfig{
		MaxParticipantsPerCourse: positiveOr(v.GetInt("MAX_PARTICIPANTS_PER_COURSE"), 16),
		DefaultSessionCapacity:   positiveOr(v.GetInt("DEFAULT_SESSION_CAPACITY"), 20),
	}

	cfg.Cache = CacheConfig{
		Enabled:   v.GetBool("ENABLE_CACHE"),
		CourseTTL: parseDuration(v.GetString("COURSE_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:       v.GetBool("NOTIFICATIONS_ENABLED"),
		Workers:       positiveOr(v.GetInt("NOTIFICATION_WORKERS"), 1),
		Retries:       positiveOr(v.GetInt("NOTIFICATION_RETRIES"), 3),
		ChannelPrefix: v.GetString("NOTIFICATION_CHANNEL_PREFIX"),
	}

	cfg.Maintenance = MaintenanceConfig{
		Enabled:          v.GetBool("MAINTENANCE_ENABLED"),
		TokenPurgeSpec:   v.GetString("TOKEN_PURGE_SCHEDULE"),
		SessionSweepSpec: v.GetString("SESSION_SWEEP_SCHEDULE"),
		Timeout:          parseDuration(v.GetString("MAINTENANCE_TIMEOUT"), time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "skillpath")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SKILL_CATALOG_PATH", "./config/skills.yaml")
	v.SetDefault("MAX_PARTICIPANTS_PER_COURSE", 16)
	v.SetDefault("DEFAULT_SESSION_CAPACITY", 20)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("COURSE_CACHE_TTL", "2m")

	v.SetDefault("NOTIFICATIONS_ENABLED", false)
	v.SetDefault("NOTIFICATION_WORKERS", 1)
	v.SetDefault("NOTIFICATION_RETRIES", 3)
	v.SetDefault("NOTIFICATION_CHANNEL_PREFIX", "skillpath:notifications")

	v.SetDefault("MAINTENANCE_ENABLED", true)
	v.SetDefault("TOKEN_PURGE_SCHEDULE", "@hourly")
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "5 0 * * *")
	v.SetDefault("MAINTENANCE_TIMEOUT", "1m")
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
