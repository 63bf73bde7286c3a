package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Subscription is a recurring financial commitment. NextRenewalDate is the
// anchor of the next unconfirmed occurrence.
type Subscription struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string               `gorm:"size:255;not null" json:"name"`
	Amount          decimal.Decimal      `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency        string               `gorm:"size:3;not null" json:"currency"`
	BillingCycle    renewal.BillingCycle `gorm:"size:10;not null" json:"billing_cycle"`
	NextRenewalDate time.Time            `gorm:"type:date;not null;index" json:"next_renewal_date"`
	AlertDays       *int                 `json:"alert_days"`
	IsActive        bool                 `gorm:"not null;index" json:"is_active"`
	CategoryID      *string              `gorm:"size:64" json:"category_id"`
	CategoryName    string               `gorm:"size:100" json:"category_name"`
	Note            string               `gorm:"type:text" json:"note"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
