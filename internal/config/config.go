package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// JWT (issued by the auth service, verified here)
	JWTSecret string

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string

	// Renewal engine
	SweepInterval     time.Duration
	DeliveryHour      int
	DefaultAlertDays  int
	DefaultCurrency   string
	TimezoneCacheSize int64

	// Plan limits
	PlansConfigPath string

	// Notifications
	NotifyWebhookURL string
	NotifyTimeout    time.Duration

	// Logs
	LogRetentionDays int
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "renewals_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "renewals.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		SweepInterval:     parseDuration(getEnv("SWEEP_INTERVAL", "1h"), time.Hour),
		DeliveryHour:      parseInt(getEnv("DELIVERY_HOUR", "10"), 10),
		DefaultAlertDays:  parseInt(getEnv("DEFAULT_ALERT_DAYS", "3"), 3),
		DefaultCurrency:   getEnv("DEFAULT_CURRENCY", "USD"),
		TimezoneCacheSize: int64(parseInt(getEnv("TIMEZONE_CACHE_SIZE", "10000"), 10000)),

		PlansConfigPath: getEnv("PLANS_CONFIG_PATH", ""),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyTimeout:    parseDuration(getEnv("NOTIFY_TIMEOUT", "10s"), 10*time.Second),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
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
	if err != nil || d <= 0 {
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
