package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateSubscriptionRequest struct {
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BillingCycle    string          `json:"billing_cycle"`
	NextRenewalDate string          `json:"next_renewal_date"`
	AlertDays       *int            `json:"alert_days"`
	CategoryID      *string         `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Note            string          `json:"note"`
}

// UpdateSubscriptionRequest is a partial update; nil fields are left alone.
// ClearAlertDays resets the override so the user default applies again.
type UpdateSubscriptionRequest struct {
	Name            *string          `json:"name"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        *string          `json:"currency"`
	BillingCycle    *string          `json:"billing_cycle"`
	NextRenewalDate *string          `json:"next_renewal_date"`
	AlertDays       *int             `json:"alert_days"`
	ClearAlertDays  bool             `json:"clear_alert_days"`
	CategoryID      *string          `json:"category_id"`
	CategoryName    *string          `json:"category_name"`
	Note            *string          `json:"note"`
}

type ConfirmRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

const (
	RemoveDeactivated = "deactivated"
	RemoveDeleted     = "deleted"
)

type RemoveResponse struct {
	ID      uuid.UUID `json:"id"`
	Outcome string    `json:"outcome"`
}

type Totals struct {
	Monthly decimal.Decimal `json:"monthly"`
	Yearly  decimal.Decimal `json:"yearly"`
}

type BreakdownResponse struct {
	Approx   Totals `json:"approx"`
	Real     Totals `json:"real"`
	Currency string `json:"currency"`
	Month    string `json:"month"`
	Year     int    `json:"year"`
}
