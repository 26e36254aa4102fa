package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string

	// Proposal engine knobs.
	SurchargePercent  int64
	AutoCloseHours    int
	AssignmentPolicy  string
	DefaultAssigneeID int64

	// Performer contact shown on rendered documents; falls back to the
	// proposal owner's profile when empty.
	PerformerName  string
	PerformerPhone string
	PerformerEmail string

	RedisAddr string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	PhotoDir string
}

const (
	AssignLowestID   = "lowest_id"
	AssignRoundRobin = "round_robin"
	AssignFixed      = "fixed"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "propoza"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		SurchargePercent:  getenvInt64("SURCHARGE_PERCENT", 20),
		AutoCloseHours:    getenvInt("AUTO_CLOSE_HOURS", 16),
		AssignmentPolicy:  normalizeAssignment(getenv("ASSIGNMENT_POLICY", AssignLowestID)),
		DefaultAssigneeID: getenvInt64("DEFAULT_ASSIGNEE_ID", 0),

		PerformerName:  strings.TrimSpace(getenv("PERFORMER_NAME", "")),
		PerformerPhone: strings.TrimSpace(getenv("PERFORMER_PHONE", "")),
		PerformerEmail: strings.TrimSpace(getenv("PERFORMER_EMAIL", "")),

		RedisAddr: strings.TrimSpace(getenv("REDIS_ADDR", "")),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "propoza"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),

		PhotoDir: getenv("PHOTO_DIR", "media/proposals"),
	}

	return cfg
}

func normalizeAssignment(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case AssignRoundRobin:
		return AssignRoundRobin
	case AssignFixed:
		return AssignFixed
	default:
		return AssignLowestID
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
