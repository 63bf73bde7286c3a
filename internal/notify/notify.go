package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDispatchFailed = errors.New("notification dispatch failed")

type Kind string

const (
	KindUpcoming Kind = "upcoming"
	KindConfirm  Kind = "confirm"
)

// Item is one subscription occurrence in a batch. TransactionID is set for
// confirm items.
type Item struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	TransactionID  *uuid.UUID      `json:"transaction_id,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Date           time.Time       `json:"date"`
	DaysLeft       int             `json:"days_left"`
}

// Batch is everything one user is told about in a single dispatch.
type Batch struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Kind   Kind      `json:"kind"`
	Items  []Item    `json:"items"`
}

// Dispatcher hands a prepared batch to a delivery channel. Close releases
// whatever the implementation holds.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch Batch) error
	Close() error
}
