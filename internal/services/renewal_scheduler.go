package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/notify"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SweepOptions describe one scheduler pass. Batches are handed to the
// dispatcher only for users whose local time at Now is DeliveryHour with a
// minute of at least DeliveryMinute.
type SweepOptions struct {
	Now            time.Time
	DeliveryHour   int
	DeliveryMinute int
}

// RenewalScheduler is the periodic sweep over all active subscriptions. It
// materializes projections for upcoming renewals and builds per-user
// "upcoming" and "confirm" notification batches.
//
// There is no persisted last-sent marker: a user receives each batch kind at
// most once a day because their local delivery hour comes around once a day.
type RenewalScheduler struct {
	db         *gorm.DB
	ledger     *ProjectionLedger
	prefs      PreferencesProvider
	tz         *timezone.Resolver
	dispatcher notify.Dispatcher
	cfg        *config.Config

	mu sync.Mutex
}

func NewRenewalScheduler(db *gorm.DB, prefs PreferencesProvider, tz *timezone.Resolver, dispatcher notify.Dispatcher, cfg *config.Config) *RenewalScheduler {
	return &RenewalScheduler{
		db:         db,
		ledger:     NewProjectionLedger(db),
		prefs:      prefs,
		tz:         tz,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Run is the periodic entry point.
func (s *RenewalScheduler) Run(ctx context.Context, now time.Time) error {
	report, err := s.Sweep(ctx, SweepOptions{Now: now, DeliveryHour: s.cfg.DeliveryHour})
	if errors.Is(err, ErrSweepInProgress) {
		slog.Warn("renewal sweep skipped, previous run still active")
		return nil
	}
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	slog.Info("renewal sweep completed",
		"users", report.UsersEvaluated,
		"skipped_users", report.UsersSkipped,
		"projections_created", report.ProjectionsCreated,
		"batches", report.BatchesDispatched,
		"dispatch_failures", report.DispatchFailures,
	)
	return nil
}

func (s *RenewalScheduler) Sweep(ctx context.Context, opts SweepOptions) (*dto.SweepReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	report := &dto.SweepReport{Now: now}

	var subs []models.Subscription
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("next_renewal_date ASC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load active subscriptions: %w", err)
	}

	var order []uuid.UUID
	byUser := make(map[uuid.UUID][]models.Subscription)
	for _, sub := range subs {
		if _, ok := byUser[sub.UserID]; !ok {
			order = append(order, sub.UserID)
		}
		byUser[sub.UserID] = append(byUser[sub.UserID], sub)
	}

	prefs, err := s.prefs.ForUsers(ctx, order)
	if err != nil {
		return nil, err
	}

	for _, userID := range order {
		p := prefs[userID]
		if p == nil {
			p = &Preferences{}
		}

		local, err := s.tz.LocalTime(p.Timezone, now)
		if err != nil {
			slog.Warn("timezone resolution failed, skipping user",
				"user_id", userID.String(), "timezone", p.Timezone, "error", err)
			report.UsersSkipped++
			continue
		}
		report.UsersEvaluated++
		today := renewal.DateOf(local)

		upcoming, created := s.collectUpcoming(ctx, byUser[userID], today, defaultAlertDays(p, s.cfg.DefaultAlertDays))
		report.ProjectionsCreated += created

		// Read after collectUpcoming so catch-up projections made above are included.
		pending, err := s.ledger.PendingConfirmations(ctx, userID, today)
		if err != nil {
			slog.Error("failed to load pending projections",
				"user_id", userID.String(), "action", "sweep", "error", err)
			continue
		}
		confirm := collectConfirm(pending, today)
		report.UpcomingItems += len(upcoming)
		report.ConfirmItems += len(confirm)

		if local.Hour() != opts.DeliveryHour || local.Minute() < opts.DeliveryMinute {
			continue
		}

		sort.SliceStable(upcoming, func(i, j int) bool {
			return upcoming[i].Date.After(upcoming[j].Date)
		})
		for _, batch := range []notify.Batch{
			{UserID: userID, Email: p.Email, Kind: notify.KindUpcoming, Items: upcoming},
			{UserID: userID, Email: p.Email, Kind: notify.KindConfirm, Items: confirm},
		} {
			if len(batch.Items) == 0 {
				continue
			}
			if err := s.dispatch(ctx, batch, now); err != nil {
				report.DispatchFailures++
				continue
			}
			report.BatchesDispatched++
		}
	}

	return report, nil
}

// collectUpcoming ensures projections for anchors that are upcoming or
// recently due and returns the upcoming ones as batch items. subs is the
// snapshot loaded at the start of the sweep; each subscription is re-read
// under a row lock before anything is written, so a cancel or re-anchor that
// committed in the meantime is respected.
func (s *RenewalScheduler) collectUpcoming(ctx context.Context, subs []models.Subscription, today time.Time, userDefault *int) ([]notify.Item, int) {
	var items []notify.Item
	created := 0
	for i := range subs {
		sub, c, ok, err := s.ensureCurrent(ctx, subs[i].ID, today, userDefault)
		if err != nil {
			slog.Error("ensure projection failed",
				"user_id", subs[i].UserID.String(), "subscription_id", subs[i].ID.String(), "action", "sweep", "error", err)
			continue
		}
		if sub == nil {
			continue
		}
		if ok {
			created++
		}

		if c.State == renewal.StateUpcoming {
			anchor := renewal.DateOf(sub.NextRenewalDate)
			items = append(items, notify.Item{
				SubscriptionID: sub.ID,
				Name:           sub.Name,
				Amount:         sub.Amount,
				Currency:       sub.Currency,
				Date:           anchor,
				DaysLeft:       int(anchor.Sub(today).Hours() / 24),
			})
		}
	}
	return items, created
}

// ensureCurrent locks the subscription, classifies its current anchor and
// materializes the projection when needed. A nil subscription means it is
// gone, inactive or outside the window.
func (s *RenewalScheduler) ensureCurrent(ctx context.Context, id uuid.UUID, today time.Time, userDefault *int) (*models.Subscription, renewal.Classification, bool, error) {
	var (
		sub     models.Subscription
		c       renewal.Classification
		found   bool
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", id, true).
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		c = renewal.Classify(today, sub.NextRenewalDate, sub.AlertDays, userDefault)
		if !c.NeedsProjection() {
			return nil
		}
		found = true
		created, err = s.ledger.WithTx(tx).EnsureProjection(ctx, &sub, sub.NextRenewalDate)
		return err
	})
	if err != nil || !found {
		return nil, c, false, err
	}
	return &sub, c, created, nil
}

func collectConfirm(pending []models.Transaction, today time.Time) []notify.Item {
	var items []notify.Item
	for i := range pending {
		t := pending[i]
		c := renewal.ClassifyProjection(today, t.Date)
		if c.State != renewal.StatePostDuePending {
			continue
		}
		txID := t.ID
		items = append(items, notify.Item{
			SubscriptionID: *t.SubscriptionID,
			TransactionID:  &txID,
			Name:           t.Name,
			Amount:         t.Amount,
			Currency:       t.Currency,
			Date:           renewal.DateOf(t.Date),
			DaysLeft:       c.OffsetDays,
		})
	}
	return items
}

// dispatch sends one batch. A failure is logged and recorded; it never undoes
// projections already written in this sweep.
func (s *RenewalScheduler) dispatch(ctx context.Context, batch notify.Batch, now time.Time) error {
	dctx := ctx
	if s.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.cfg.NotifyTimeout)
		defer cancel()
	}

	err := s.dispatcher.Dispatch(dctx, batch)
	if err != nil {
		slog.Error("notification dispatch failed",
			"user_id", batch.UserID.String(), "kind", string(batch.Kind), "action", "notify", "error", err)
	}
	s.record(ctx, batch, now, err)
	return err
}

func (s *RenewalScheduler) record(ctx context.Context, batch notify.Batch, now time.Time, dispatchErr error) {
	entry := models.NotificationLog{
		UserID:    batch.UserID,
		Kind:      string(batch.Kind),
		ItemCount: len(batch.Items),
		Status:    models.NotificationSent,
		SentAt:    now,
	}
	if dispatchErr != nil {
		entry.Status = models.NotificationFailed
		entry.Error = dispatchErr.Error()
	}
	if b, err := json.Marshal(batch.Items); err == nil {
		entry.Items = datatypes.JSON(b)
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Warn("failed to record notification", "user_id", batch.UserID.String(), "error", err)
	}
}
