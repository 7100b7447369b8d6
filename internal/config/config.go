// Package config loads the server settings from the environment, reading a
// .env file first when one can be found.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kkkppp/p2proto/pkg/query"
)

// Config holds the server configuration
type Config struct {
	Port    string
	GinMode string

	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret     string
	SkipDDLVerify bool
}

// envPaths are tried in order; the first readable file wins
var envPaths = []string{".env", "../.env", "../../.env"}

// Load reads the configuration. Variables already set in the environment
// take precedence over the .env file.
func Load() (*Config, error) {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			log.Printf("📁 Loaded .env from %s", p)
			break
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3001"),
		GinMode:           getEnv("GIN_MODE", ""),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "p2proto"),
		DBDSN:             getEnv("DB_DSN", ""),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 20),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SkipDDLVerify:     getEnv("SKIP_DDL_VERIFY", "") == "true",
	}

	dialect, err := query.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("DB_DRIVER: %w", err)
	}
	if cfg.DBPort == "" {
		cfg.DBPort = defaultPort(dialect)
	}
	return cfg, nil
}

// Dialect returns the SQL dialect of the configured driver
func (c *Config) Dialect() query.Dialect {
	d, err := query.ParseDialect(c.DBDriver)
	if err != nil {
		return query.Postgres
	}
	return d
}

func defaultPort(d query.Dialect) string {
	switch d {
	case query.MySQL:
		return "4000"
	case query.Postgres:
		return "5432"
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or a plain number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️  Invalid %s=%q, using %s", key, valueStr, defaultValue)
	return defaultValue
}
