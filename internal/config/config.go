package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT session cookie
	JWTSecret    string
	JWTExpiry    time.Duration
	CookieSecure bool

	// Server
	Port        string
	CORSOrigins string
	BodyLimit   int
	// requests per minute per IP; 0 disables the limiter
	RateLimit     int
	AuthRateLimit int

	// Observability
	SentryDSN        string
	AppEnv           string
	LogRetentionDays int
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBPath:     getEnv("DB_PATH", "donezo.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "donezo"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiry:    parseDuration(getEnv("JWT_EXPIRY", "168h"), 7*24*time.Hour),
		CookieSecure: parseBool(getEnv("COOKIE_SECURE", "false")),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),
		BodyLimit:   parseInt(getEnv("BODY_LIMIT", "1048576"), 1<<20),

		RateLimit:     parseInt(getEnv("RATE_LIMIT", "120"), 120),
		AuthRateLimit: parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),

		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
