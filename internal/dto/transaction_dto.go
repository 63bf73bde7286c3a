package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Date         string          `json:"date"`
	CategoryID   *string         `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Note         string          `json:"note"`
}

type TransactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// TransactionDetail is a transaction plus the owning subscription's schedule,
// as shown on the confirmation screen.
type TransactionDetail struct {
	models.Transaction
	BillingCycle       renewal.BillingCycle `json:"billing_cycle,omitempty"`
	NextRenewalDate    *time.Time           `json:"next_renewal_date,omitempty"`
	SubscriptionActive *bool                `json:"subscription_active,omitempty"`
}
