package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// RegistrationConfig holds the knobs for the signup wizard and the
// subdomain reservation lifecycle.
type RegistrationConfig struct {
	// BaseDomain is the apex domain tenant portals hang off of,
	// e.g. "sahod.ph" for acme.sahod.ph.
	BaseDomain string
	// ReservationTTL is how long a pending subdomain reservation is
	// held before it becomes reclaimable.
	ReservationTTL time.Duration
	// DraftTTL is how long an unfinished registration draft survives.
	DraftTTL time.Duration
	// SweepBatchSize caps how many expired reservations a single
	// sweep batch deletes.
	SweepBatchSize int
	// SweepInterval drives the periodic sweep job; zero disables it.
	SweepInterval time.Duration
	// AutosaveWindow is the debounce idle window for draft autosaves.
	AutosaveWindow time.Duration
	// TrialPeriod is the trial window stamped on a new company.
	TrialPeriod time.Duration
	// ReservedSubdomains are names that can never be registered.
	ReservedSubdomains []string
}

// Config holds all configuration
type Config struct {
	ServiceName  string
	DB           DBConfig
	Server       ServerConfig
	JWT          JWTConfig
	Log          LogConfig
	Metrics      MetricsConfig
	Registration RegistrationConfig
}

// defaultReservedSubdomains are operational names that must never be
// handed to a tenant. Override with RESERVED_SUBDOMAINS.
var defaultReservedSubdomains = []string{
	"www", "api", "admin", "app", "dashboard", "support", "help",
	"mail", "auth", "billing", "portal", "status", "docs", "blog",
	"staging",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: getEnv("SERVICE_NAME", "registration-service"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "registration"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "defaultsecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "registration"),
		},
		Registration: RegistrationConfig{
			BaseDomain:         getEnv("BASE_DOMAIN", "sahod.ph"),
			ReservationTTL:     getEnvAsDuration("SUBDOMAIN_RESERVATION_TTL", 7*24*time.Hour),
			DraftTTL:           getEnvAsDuration("DRAFT_TTL", 7*24*time.Hour),
			SweepBatchSize:     getEnvAsInt("SWEEP_BATCH_SIZE", 500),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 1*time.Hour),
			AutosaveWindow:     getEnvAsDuration("AUTOSAVE_WINDOW", 2*time.Second),
			TrialPeriod:        getEnvAsDuration("TRIAL_PERIOD", 30*24*time.Hour),
			ReservedSubdomains: getEnvAsList("RESERVED_SUBDOMAINS", defaultReservedSubdomains),
		},
	}

	return config, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("base_domain", c.Registration.BaseDomain),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as comma-separated lists
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
