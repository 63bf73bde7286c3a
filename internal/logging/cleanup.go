package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"gorm.io/gorm"
)

// Cleanup returns a periodic task deleting system_logs older than retentionDays.
func Cleanup(db *gorm.DB, retentionDays int) func(ctx context.Context, now time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		cutoff := now.AddDate(0, 0, -retentionDays)
		result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			slog.Info("log cleanup completed", "deleted", result.RowsAffected)
		}
		return nil
	}
}
