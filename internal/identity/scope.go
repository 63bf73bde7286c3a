package identity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ForUser returns a GORM scope that filters rows by owner.
func ForUser(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
