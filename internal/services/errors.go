package services

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrQuotaExceeded        = errors.New("subscription limit reached for your plan")
	ErrNameRequired         = errors.New("name is required")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidBillingCycle  = errors.New("billing_cycle must be one of daily, weekly, monthly, yearly")
	ErrInvalidDate          = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidAlertDays     = errors.New("alert_days must be between 0 and 365")
	ErrNoIDs                = errors.New("at least one id is required")
	ErrSweepInProgress      = errors.New("renewal sweep already in progress")
)
