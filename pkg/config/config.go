package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig
	Import        ImportConfig
	Observability ObservabilityConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ImportConfig tunes the statement import pipeline.
type ImportConfig struct {
	// MaxFileSizeBytes is the upload ceiling; files above it are
	// rejected before decoding.
	MaxFileSizeBytes int64
	// DatePastYears/DateFutureYears bound the acceptable transaction
	// date window around today.
	DatePastYears   int
	DateFutureYears int
	// LargeAmountThreshold triggers a validation warning; expressed in
	// account-currency units. Zero disables the check.
	LargeAmountThreshold float64
	// DuplicateWindowDays absorbs clearing-date skew when matching
	// candidates against existing transactions.
	DuplicateWindowDays int
	// DuplicateSimilarity is the minimum description similarity (0..1)
	// for a duplicate flag.
	DuplicateSimilarity float64
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "statement-import-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Import: ImportConfig{
			MaxFileSizeBytes:     getEnvAsInt64("IMPORT_MAX_FILE_SIZE_BYTES", 15<<20),
			DatePastYears:        getEnvAsInt("IMPORT_DATE_PAST_YEARS", 5),
			DateFutureYears:      getEnvAsInt("IMPORT_DATE_FUTURE_YEARS", 1),
			LargeAmountThreshold: getEnvAsFloat("IMPORT_LARGE_AMOUNT_THRESHOLD", 10000),
			DuplicateWindowDays:  getEnvAsInt("IMPORT_DUPLICATE_WINDOW_DAYS", 2),
			DuplicateSimilarity:  getEnvAsFloat("IMPORT_DUPLICATE_SIMILARITY", 0.5),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
