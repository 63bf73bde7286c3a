package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionService struct {
	db    *gorm.DB
	prefs PreferencesProvider
	cfg   *config.Config
}

func NewTransactionService(db *gorm.DB, prefs PreferencesProvider, cfg *config.Config) *TransactionService {
	return &TransactionService{db: db, prefs: prefs, cfg: cfg}
}

// Details returns the caller's transactions among ids, each with the schedule
// of its subscription when it has one. Unknown ids are left out.
func (s *TransactionService) Details(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]dto.TransactionDetail, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	db := s.db.WithContext(ctx)

	var txns []models.Transaction
	if err := db.Scopes(identity.ForUser(userID)).
		Where("id IN ?", ids).
		Order("date DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}

	var subIDs []uuid.UUID
	for _, t := range txns {
		if t.SubscriptionID != nil {
			subIDs = appendUnique(subIDs, *t.SubscriptionID)
		}
	}
	subs := make(map[uuid.UUID]models.Subscription, len(subIDs))
	if len(subIDs) > 0 {
		var rows []models.Subscription
		if err := db.Where("id IN ?", subIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, sub := range rows {
			subs[sub.ID] = sub
		}
	}

	details := make([]dto.TransactionDetail, 0, len(txns))
	for _, t := range txns {
		d := dto.TransactionDetail{Transaction: t}
		if t.SubscriptionID != nil {
			if sub, ok := subs[*t.SubscriptionID]; ok {
				anchor := sub.NextRenewalDate
				active := sub.IsActive
				d.BillingCycle = sub.BillingCycle
				d.NextRenewalDate = &anchor
				d.SubscriptionActive = &active
			}
		}
		details = append(details, d)
	}
	return details, nil
}

// Create records a manual, already-real transaction.
func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateTransactionRequest) (*models.Transaction, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	date, err := renewal.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	currency := req.Currency
	if currency == "" {
		p, err := s.prefs.Preferences(ctx, userID)
		if err != nil {
			return nil, err
		}
		currency = p.Currency
	}
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	t := models.Transaction{
		UserID:       userID,
		Name:         name,
		Amount:       req.Amount.Round(2),
		Currency:     strings.ToUpper(currency),
		Date:         date,
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		Note:         req.Note,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &t, nil
}

// List pages through the caller's transactions, newest first. projected
// filters on the projection flag when set.
func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, projected *bool, limit, offset int) ([]models.Transaction, int64, error) {
	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(identity.ForUser(userID))
		if projected != nil {
			q = q.Where("is_projected = ?", *projected)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	txns := []models.Transaction{}
	err := query().
		Order("date DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	return txns, total, err
}
