package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectionLedger keeps at most one transaction per (subscription, date).
type ProjectionLedger struct {
	db *gorm.DB
}

func NewProjectionLedger(db *gorm.DB) *ProjectionLedger {
	return &ProjectionLedger{db: db}
}

// WithTx returns a ledger whose statements run inside tx.
func (l *ProjectionLedger) WithTx(tx *gorm.DB) *ProjectionLedger {
	return &ProjectionLedger{db: tx}
}

// EnsureProjection inserts a projected transaction for the occurrence unless
// a row for (subscription, date) already exists. Name, amount, currency and
// category are copied from sub as it is now. Reports whether a row was added.
func (l *ProjectionLedger) EnsureProjection(ctx context.Context, sub *models.Subscription, date time.Time) (bool, error) {
	date = renewal.DateOf(date)
	db := l.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.Transaction{}).
		Where("subscription_id = ? AND date = ?", sub.ID, date).
		Count(&existing).Error; err != nil {
		return false, fmt.Errorf("failed to look up projection: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	subID := sub.ID
	projection := models.Transaction{
		UserID:         sub.UserID,
		SubscriptionID: &subID,
		Name:           sub.Name,
		Amount:         sub.Amount,
		Currency:       sub.Currency,
		Date:           date,
		CategoryName:   sub.CategoryName,
		IsProjected:    true,
	}
	if sub.CategoryID != nil {
		categoryID := *sub.CategoryID
		projection.CategoryID = &categoryID
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&projection)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert projection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		slog.Debug("projection already exists", "subscription_id", sub.ID.String(), "date", date.Format(time.DateOnly))
		return false, nil
	}
	return true, nil
}

// DeleteFutureProjections removes every projected row of the subscription.
func (l *ProjectionLedger) DeleteFutureProjections(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("subscription_id = ? AND is_projected = ?", subscriptionID, true).
		Delete(&models.Transaction{})
	return result.RowsAffected, result.Error
}

// DeleteAllForSubscription removes projected and real rows alike.
func (l *ProjectionLedger) DeleteAllForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&models.Transaction{})
	return result.RowsAffected, result.Error
}

func (l *ProjectionLedger) HasRealTransactions(ctx context.Context, subscriptionID uuid.UUID) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("subscription_id = ? AND is_projected = ?", subscriptionID, false).
		Count(&count).Error
	return count > 0, err
}

// PendingConfirmations lists the user's projected rows dated on or before
// upTo, oldest first.
func (l *ProjectionLedger) PendingConfirmations(ctx context.Context, userID uuid.UUID, upTo time.Time) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := l.db.WithContext(ctx).
		Scopes(identity.ForUser(userID)).
		Where("is_projected = ? AND subscription_id IS NOT NULL AND date <= ?", true, renewal.DateOf(upTo)).
		Order("date ASC, created_at ASC").
		Find(&rows).Error
	return rows, err
}
