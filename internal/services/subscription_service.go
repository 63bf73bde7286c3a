package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/plans"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxAlertDays = 365

// SubscriptionService drives the renewal lifecycle of a subscription:
// creation and edits (each followed by a due-check), confirm-and-advance,
// cancellation and soft or hard removal.
type SubscriptionService struct {
	db     *gorm.DB
	ledger *ProjectionLedger
	quota  QuotaChecker
	prefs  PreferencesProvider
	tz     *timezone.Resolver
	cfg    *config.Config
	now    func() time.Time
}

func NewSubscriptionService(db *gorm.DB, quota QuotaChecker, prefs PreferencesProvider, tz *timezone.Resolver, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{
		db:     db,
		ledger: NewProjectionLedger(db),
		quota:  quota,
		prefs:  prefs,
		tz:     tz,
		cfg:    cfg,
		now:    time.Now,
	}
}

// userToday resolves the caller's preferences and local calendar date. An
// unresolvable timezone falls back to UTC.
func (s *SubscriptionService) userToday(ctx context.Context, userID uuid.UUID) (*Preferences, time.Time, error) {
	p, err := s.prefs.Preferences(ctx, userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return p, localToday(s.tz, p, userID, s.now()), nil
}

func localToday(tz *timezone.Resolver, p *Preferences, userID uuid.UUID, now time.Time) time.Time {
	today, err := tz.Today(p.Timezone, now)
	if err != nil {
		slog.Warn("timezone resolution failed, using UTC", "user_id", userID.String(), "timezone", p.Timezone, "error", err)
		return renewal.DateOf(now.UTC())
	}
	return today
}

func defaultAlertDays(p *Preferences, fallback int) *int {
	if p != nil && p.AlertDays != nil {
		return p.AlertDays
	}
	return &fallback
}

// dueCheck materializes the anchor occurrence when it is upcoming or recently due.
func dueCheck(ctx context.Context, ledger *ProjectionLedger, sub *models.Subscription, today time.Time, userDefault *int) (bool, error) {
	c := renewal.Classify(today, sub.NextRenewalDate, sub.AlertDays, userDefault)
	if !c.NeedsProjection() {
		return false, nil
	}
	created, err := ledger.EnsureProjection(ctx, sub, sub.NextRenewalDate)
	if err != nil {
		return false, err
	}
	if created {
		slog.Info("projection created",
			"user_id", sub.UserID.String(),
			"subscription_id", sub.ID.String(),
			"date", sub.NextRenewalDate.Format(time.DateOnly),
			"state", string(c.State),
		)
	}
	return created, nil
}

func validateAlertDays(v *int) error {
	if v != nil && (*v < 0 || *v > maxAlertDays) {
		return ErrInvalidAlertDays
	}
	return nil
}

func (s *SubscriptionService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateSubscriptionRequest) (*models.Subscription, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	cycle := renewal.BillingCycle(strings.ToLower(req.BillingCycle))
	if !cycle.Valid() {
		return nil, ErrInvalidBillingCycle
	}
	anchor, err := renewal.ParseDate(req.NextRenewalDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if err := validateAlertDays(req.AlertDays); err != nil {
		return nil, err
	}

	prefs, today, err := s.userToday(ctx, userID)
	if err != nil {
		return nil, err
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Scopes(identity.ForUser(userID)).
		Where("is_active = ?", true).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	allowed, err := s.quota.Allow(ctx, userID, plans.ResourceSubscriptions, int(active)+1)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrQuotaExceeded
	}

	currency := req.Currency
	if currency == "" {
		currency = prefs.Currency
	}
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	sub := models.Subscription{
		UserID:          userID,
		Name:            name,
		Amount:          req.Amount.Round(2),
		Currency:        strings.ToUpper(currency),
		BillingCycle:    cycle,
		NextRenewalDate: anchor,
		AlertDays:       req.AlertDays,
		IsActive:        true,
		CategoryID:      req.CategoryID,
		CategoryName:    req.CategoryName,
		Note:            req.Note,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		_, err := dueCheck(ctx, s.ledger.WithTx(tx), &sub, today, defaultAlertDays(prefs, s.cfg.DefaultAlertDays))
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("subscription created", "user_id", userID.String(), "subscription_id", sub.ID.String())
	return &sub, nil
}

func (s *SubscriptionService) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	subs := []models.Subscription{}
	err := s.db.WithContext(ctx).Scopes(identity.ForUser(userID)).
		Where("is_active = ?", true).
		Order("next_renewal_date ASC, name ASC").
		Find(&subs).Error
	return subs, err
}

func (s *SubscriptionService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Subscription, error) {
	return findSubscription(s.db.WithContext(ctx), userID, id)
}

func findSubscription(db *gorm.DB, userID, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Scopes(identity.ForUser(userID)).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update applies a partial edit and re-runs the due-check. Moving the anchor
// drops projections made for the old anchor.
func (s *SubscriptionService) Update(ctx context.Context, userID, id uuid.UUID, req dto.UpdateSubscriptionRequest) (*models.Subscription, error) {
	if err := validateAlertDays(req.AlertDays); err != nil {
		return nil, err
	}

	prefs, today, err := s.userToday(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sub *models.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = findSubscription(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, id)
		if err != nil {
			return err
		}

		reanchored, err := applyUpdate(sub, req)
		if err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		if reanchored {
			if _, err := ledger.DeleteFutureProjections(ctx, sub.ID); err != nil {
				return fmt.Errorf("failed to purge projections: %w", err)
			}
		}
		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		if !sub.IsActive {
			return nil
		}
		_, err = dueCheck(ctx, ledger, sub, today, defaultAlertDays(prefs, s.cfg.DefaultAlertDays))
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func applyUpdate(sub *models.Subscription, req dto.UpdateSubscriptionRequest) (reanchored bool, err error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return false, ErrNameRequired
		}
		sub.Name = name
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return false, ErrInvalidAmount
		}
		sub.Amount = req.Amount.Round(2)
	}
	if req.Currency != nil && *req.Currency != "" {
		sub.Currency = strings.ToUpper(*req.Currency)
	}
	if req.BillingCycle != nil {
		cycle := renewal.BillingCycle(strings.ToLower(*req.BillingCycle))
		if !cycle.Valid() {
			return false, ErrInvalidBillingCycle
		}
		sub.BillingCycle = cycle
	}
	if req.NextRenewalDate != nil {
		anchor, err := renewal.ParseDate(*req.NextRenewalDate)
		if err != nil {
			return false, ErrInvalidDate
		}
		if !anchor.Equal(renewal.DateOf(sub.NextRenewalDate)) {
			sub.NextRenewalDate = anchor
			reanchored = true
		}
	}
	if req.ClearAlertDays {
		sub.AlertDays = nil
	} else if req.AlertDays != nil {
		sub.AlertDays = req.AlertDays
	}
	if req.CategoryID != nil {
		sub.CategoryID = req.CategoryID
	}
	if req.CategoryName != nil {
		sub.CategoryName = *req.CategoryName
	}
	if req.Note != nil {
		sub.Note = *req.Note
	}
	return reanchored, nil
}

// Remove soft-deactivates a subscription that has confirmed history and
// hard-deletes one that has none.
func (s *SubscriptionService) Remove(ctx context.Context, userID, id uuid.UUID) (*dto.RemoveResponse, error) {
	resp := &dto.RemoveResponse{ID: id}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := findSubscription(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, id)
		if err != nil {
			return err
		}

		ledger := s.ledger.WithTx(tx)
		hasHistory, err := ledger.HasRealTransactions(ctx, sub.ID)
		if err != nil {
			return err
		}

		if hasHistory {
			if err := tx.Model(sub).Update("is_active", false).Error; err != nil {
				return err
			}
			if _, err := ledger.DeleteFutureProjections(ctx, sub.ID); err != nil {
				return err
			}
			resp.Outcome = dto.RemoveDeactivated
			return nil
		}

		if _, err := ledger.DeleteAllForSubscription(ctx, sub.ID); err != nil {
			return err
		}
		if err := tx.Delete(sub).Error; err != nil {
			return err
		}
		resp.Outcome = dto.RemoveDeleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("subscription removed", "user_id", userID.String(), "subscription_id", id.String(), "outcome", resp.Outcome)
	return resp, nil
}

// Cancel deactivates subscriptions and purges their projections. The ids are
// matched as subscription ids first; when none match they are read as
// transaction ids and resolved to their owning subscriptions.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*dto.BatchResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	targets, unresolved, err := s.resolveCancelTargets(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrSubscriptionNotFound
	}

	result := dto.NewBatchResult()
	for _, id := range unresolved {
		result.Fail(id, ErrSubscriptionNotFound)
	}

	for _, subID := range targets {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Subscription{}).
				Scopes(identity.ForUser(userID)).
				Where("id = ?", subID).
				Update("is_active", false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrSubscriptionNotFound
			}
			_, err := s.ledger.WithTx(tx).DeleteFutureProjections(ctx, subID)
			return err
		})
		if err != nil {
			slog.Error("cancel failed", "user_id", userID.String(), "subscription_id", subID.String(), "action", "cancel", "error", err)
			result.Fail(subID, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, subID)
	}
	return result, nil
}

func (s *SubscriptionService) resolveCancelTargets(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (targets, unresolved []uuid.UUID, err error) {
	db := s.db.WithContext(ctx)

	var subs []models.Subscription
	if err := db.Scopes(identity.ForUser(userID)).Where("id IN ?", ids).Find(&subs).Error; err != nil {
		return nil, nil, err
	}
	if len(subs) > 0 {
		found := make(map[uuid.UUID]bool, len(subs))
		for _, sub := range subs {
			found[sub.ID] = true
		}
		for _, id := range ids {
			if found[id] {
				targets = appendUnique(targets, id)
			} else {
				unresolved = append(unresolved, id)
			}
		}
		return targets, unresolved, nil
	}

	var txns []models.Transaction
	if err := db.Scopes(identity.ForUser(userID)).
		Where("id IN ? AND subscription_id IS NOT NULL", ids).
		Find(&txns).Error; err != nil {
		return nil, nil, err
	}
	owner := make(map[uuid.UUID]uuid.UUID, len(txns))
	for _, t := range txns {
		owner[t.ID] = *t.SubscriptionID
	}
	for _, id := range ids {
		if subID, ok := owner[id]; ok {
			targets = appendUnique(targets, subID)
		} else {
			unresolved = append(unresolved, id)
		}
	}
	return targets, unresolved, nil
}

func appendUnique(list []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// Confirm marks projected transactions as real and advances each owning
// subscription by one cycle from its previous anchor. Every id is handled in
// its own database transaction; ids that are already real are skipped. A
// projection that no longer matches the anchor of an active subscription is
// marked real without moving the anchor.
func (s *SubscriptionService) Confirm(ctx context.Context, userID uuid.UUID, txIDs []uuid.UUID) (*dto.BatchResult, error) {
	if len(txIDs) == 0 {
		return nil, ErrNoIDs
	}

	result := dto.NewBatchResult()
	for _, id := range txIDs {
		confirmed, err := s.confirmOne(ctx, userID, id)
		switch {
		case err != nil:
			if !errors.Is(err, ErrTransactionNotFound) {
				slog.Error("confirm failed", "user_id", userID.String(), "transaction_id", id.String(), "action", "confirm", "error", err)
			}
			result.Fail(id, err)
		case confirmed:
			result.Succeeded = append(result.Succeeded, id)
		default:
			result.Skipped = append(result.Skipped, id)
		}
	}
	return result, nil
}

func (s *SubscriptionService) confirmOne(ctx context.Context, userID, txID uuid.UUID) (bool, error) {
	confirmed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Transaction
		err := tx.Scopes(identity.ForUser(userID)).First(&t, "id = ?", txID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		if !t.IsProjected {
			return nil
		}

		// Subscription row first, then the transaction row: same order as Remove and Cancel.
		var sub *models.Subscription
		if t.SubscriptionID != nil {
			var locked models.Subscription
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", *t.SubscriptionID).Error
			switch {
			case err == nil:
				sub = &locked
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		flip := tx.Model(&models.Transaction{}).
			Where("id = ? AND is_projected = ?", t.ID, true).
			Update("is_projected", false)
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return nil
		}
		confirmed = true

		if sub == nil {
			return nil
		}
		// Only the occurrence at the current anchor of an active subscription
		// moves the schedule. Anything else is recorded as paid and left alone.
		if !sub.IsActive || !renewal.DateOf(t.Date).Equal(renewal.DateOf(sub.NextRenewalDate)) {
			slog.Warn("confirmed projection is not the current renewal, anchor kept",
				"user_id", userID.String(),
				"subscription_id", sub.ID.String(),
				"transaction_id", t.ID.String(),
				"date", t.Date.Format(time.DateOnly),
			)
			return nil
		}

		next := renewal.AddCycle(sub.NextRenewalDate, sub.BillingCycle)
		if err := tx.Model(sub).Update("next_renewal_date", next).Error; err != nil {
			return fmt.Errorf("failed to advance renewal date: %w", err)
		}
		slog.Info("renewal confirmed",
			"user_id", userID.String(),
			"subscription_id", sub.ID.String(),
			"transaction_id", t.ID.String(),
			"next_renewal_date", next.Format(time.DateOnly),
		)
		return nil
	})
	if err != nil {
		return false, err
	}
	return confirmed, nil
}
