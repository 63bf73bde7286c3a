package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a ledger entry. Projected rows are forecasts of a renewal
// that has not been confirmed yet; at most one row exists per
// (subscription_id, date).
type Transaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_transactions_subscription_date,priority:1" json:"subscription_id"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency       string          `gorm:"size:3" json:"currency"`
	Date           time.Time       `gorm:"type:date;not null;index;uniqueIndex:idx_transactions_subscription_date,priority:2" json:"date"`
	CategoryID     *string         `gorm:"size:64" json:"category_id"`
	CategoryName   string          `gorm:"size:100" json:"category_name"`
	IsProjected    bool            `gorm:"not null;index" json:"is_projected"`
	Note           string          `gorm:"type:text" json:"note"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
