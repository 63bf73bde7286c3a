package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records every batch handed to the dispatcher. It is an
// audit trail only; delivery gating does not read it.
type NotificationLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string         `gorm:"size:20;not null" json:"kind"`
	ItemCount int            `json:"item_count"`
	Items     datatypes.JSON `gorm:"type:jsonb" json:"items"`
	Status    string         `gorm:"size:10;not null" json:"status"`
	Error     string         `gorm:"type:text" json:"error"`
	SentAt    time.Time      `gorm:"not null;index" json:"sent_at"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
