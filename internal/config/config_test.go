package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DELIVERY_HOUR", "")
	t.Setenv("SWEEP_INTERVAL", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10, cfg.DeliveryHour)
	assert.Equal(t, 3, cfg.DefaultAlertDays)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DELIVERY_HOUR", "8")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("LOG_RETENTION_DAYS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8, cfg.DeliveryHour)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 30, cfg.LogRetentionDays)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5433", DBSSLMode: "require"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=require TimeZone=UTC", cfg.DSN())
}
