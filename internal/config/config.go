package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "default-secret-change-in-production"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var ErrInsecureSecret = errors.New("JWT_SECRET must be set in release mode")

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Storage  StorageConfig
	Session  SessionConfig
	Metrics  MetricsConfig
	Log      LogConfig

	// Warnings collects non-fatal problems found while loading.
	Warnings []string
}

type ServerConfig struct {
	Port            string
	Mode            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	TLSEnabled bool
}

type JWTConfig struct {
	Secret           string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepSchedule string
}

type MetricsConfig struct {
	Location *time.Location
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "notetrack")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TLS_ENABLED", false)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ACCESS_EXPIRES_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_EXPIRES_DAYS", 7)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("STORAGE_DRIVER", StoragePostgres)

	v.SetDefault("SESSION_IDLE_MINUTES", 30)
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 1m")

	v.SetDefault("METRICS_TIMEZONE", "Local")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration from the environment, a .env file in the
// working directory, and the optional file named by NOTETRACK_CONFIG.
// Environment variables win over both files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("NOTETRACK_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	mode := v.GetString("GIN_MODE")
	corsOrigins := parseCORSOrigins(v.GetString("CORS_ALLOWED_ORIGINS"))

	if mode == "release" && len(corsOrigins) > 0 && corsOrigins[0] == "*" {
		cfg.warn("CORS allows all origins in production, consider restricting CORS_ALLOWED_ORIGINS")
	}

	secret := v.GetString("JWT_SECRET")
	if mode == "release" && (secret == "" || secret == defaultJWTSecret) {
		return nil, ErrInsecureSecret
	}
	if secret == defaultJWTSecret {
		cfg.warn("using default JWT secret, this is insecure for production")
	}

	driver := strings.ToLower(v.GetString("STORAGE_DRIVER"))
	if driver != StoragePostgres && driver != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}

	location, err := loadLocation(v.GetString("METRICS_TIMEZONE"))
	if err != nil {
		return nil, err
	}

	cfg.Server = ServerConfig{
		Port:            v.GetString("PORT"),
		Mode:            mode,
		ShutdownTimeout: positiveDuration(cfg, v, "SHUTDOWN_TIMEOUT_SECONDS", time.Second, 30),
	}
	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetString("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		DBName:       v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSLMODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}
	cfg.Redis = RedisConfig{
		Host:       v.GetString("REDIS_HOST"),
		Port:       v.GetString("REDIS_PORT"),
		Password:   v.GetString("REDIS_PASSWORD"),
		DB:         v.GetInt("REDIS_DB"),
		TLSEnabled: v.GetBool("REDIS_TLS_ENABLED"),
	}
	cfg.JWT = JWTConfig{
		Secret:           secret,
		AccessExpiresIn:  positiveDuration(cfg, v, "JWT_ACCESS_EXPIRES_MINUTES", time.Minute, 15),
		RefreshExpiresIn: positiveDuration(cfg, v, "JWT_REFRESH_EXPIRES_DAYS", 24*time.Hour, 7),
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}
	cfg.Storage = StorageConfig{Driver: driver}
	cfg.Session = SessionConfig{
		IdleTimeout:   positiveDuration(cfg, v, "SESSION_IDLE_MINUTES", time.Minute, 30),
		SweepSchedule: v.GetString("SESSION_SWEEP_SCHEDULE"),
	}
	cfg.Metrics = MetricsConfig{Location: location}
	cfg.Log = LogConfig{
		Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
		Format: strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	return cfg, nil
}

func (c *Config) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func positiveDuration(cfg *Config, v *viper.Viper, key string, unit time.Duration, fallback int) time.Duration {
	n := v.GetInt(key)
	if n <= 0 {
		cfg.warn("invalid value for %s: %q, using default %d", key, v.GetString(key), fallback)
		n = fallback
	}
	return time.Duration(n) * unit
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseCORSOrigins(value string) []string {
	if value == "" {
		return []string{"*"}
	}

	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
