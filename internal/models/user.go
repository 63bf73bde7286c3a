package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the account record owned by the auth system. This service reads the
// notification preferences (timezone, alert days, currency) and plan from it.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Role      string         `gorm:"size:20;default:'user'" json:"role"`
	Plan      string         `gorm:"size:50;default:'free'" json:"plan"`
	Timezone  string         `gorm:"size:64" json:"timezone"`
	AlertDays *int           `json:"alert_days"`
	Currency  string         `gorm:"size:3" json:"currency"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
