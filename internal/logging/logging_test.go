package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/database"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.Config{DBDriver: database.DriverSQLite, DBPath: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestMultiHandlerFansOut(t *testing.T) {
	var info, warn bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)).With("component", "test")

	logger.Info("hello")
	logger.Warn("careful")

	assert.Contains(t, info.String(), "hello")
	assert.Contains(t, info.String(), "careful")
	assert.NotContains(t, warn.String(), "hello")
	assert.Contains(t, warn.String(), `"component":"test"`)
}

func TestPGHandlerPersistsErrors(t *testing.T) {
	db := openDB(t)
	h := newPGHandler(db, time.Hour)
	logger := slog.New(h).With("user_id", "u-1")

	logger.Info("ignored")
	logger.Error("confirm failed",
		"subscription_id", "s-1",
		"transaction_id", "t-1",
		"action", "confirm",
		"error", "boom",
		"attempt", 2,
	)
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, "confirm failed", entry.Message)
	assert.Equal(t, "ERROR", entry.Level)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	require.NotNil(t, entry.SubscriptionID)
	assert.Equal(t, "s-1", *entry.SubscriptionID)
	assert.Equal(t, "confirm", entry.Action)
	assert.Equal(t, "boom", entry.Error)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.EqualValues(t, 2, extra["attempt"])
}

func TestCleanupDeletesOldLogs(t *testing.T) {
	db := openDB(t)
	now := time.Date(2026, time.October, 19, 3, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.AddDate(0, 0, -45), Level: "ERROR", Message: "old"}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Timestamp: now.AddDate(0, 0, -2), Level: "ERROR", Message: "new"}).Error)

	require.NoError(t, Cleanup(db, 30)(context.Background(), now))

	var remaining []models.SystemLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Message)
}
