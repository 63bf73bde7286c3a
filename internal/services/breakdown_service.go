package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/identity"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxSimulatedOccurrences bounds the walk from a stale anchor to year-end.
const maxSimulatedOccurrences = 5000

type BreakdownService struct {
	db    *gorm.DB
	prefs PreferencesProvider
	tz    *timezone.Resolver
	cfg   *config.Config
	now   func() time.Time
}

func NewBreakdownService(db *gorm.DB, prefs PreferencesProvider, tz *timezone.Resolver, cfg *config.Config) *BreakdownService {
	return &BreakdownService{db: db, prefs: prefs, tz: tz, cfg: cfg, now: time.Now}
}

func (s *BreakdownService) Breakdown(ctx context.Context, userID uuid.UUID) (*dto.BreakdownResponse, error) {
	return s.BreakdownAt(ctx, userID, s.now())
}

// BreakdownAt computes spend totals for the month and year containing now in
// the user's timezone.
//
// Approx normalizes each active subscription by fixed cycle multipliers.
// Real adds up recorded transactions in the window, then walks every active
// subscription forward from its anchor to year-end and adds occurrences that
// have no transaction row for that date yet.
func (s *BreakdownService) BreakdownAt(ctx context.Context, userID uuid.UUID, now time.Time) (*dto.BreakdownResponse, error) {
	prefs, err := s.prefs.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := localToday(s.tz, prefs, userID, now)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	db := s.db.WithContext(ctx)

	var subs []models.Subscription
	if err := db.Scopes(identity.ForUser(userID)).Where("is_active = ?", true).Find(&subs).Error; err != nil {
		return nil, err
	}
	var txns []models.Transaction
	if err := db.Scopes(identity.ForUser(userID)).
		Where("date >= ? AND date < ?", yearStart, yearEnd).
		Find(&txns).Error; err != nil {
		return nil, err
	}

	resp := &dto.BreakdownResponse{
		Approx:   dto.Totals{Monthly: decimal.Zero, Yearly: decimal.Zero},
		Real:     dto.Totals{Monthly: decimal.Zero, Yearly: decimal.Zero},
		Currency: prefs.Currency,
		Month:    monthStart.Format("2006-01"),
		Year:     today.Year(),
	}
	if resp.Currency == "" {
		resp.Currency = s.cfg.DefaultCurrency
	}

	inMonth := func(d time.Time) bool { return !d.Before(monthStart) && d.Before(monthEnd) }

	recorded := make(map[occurrenceKey]bool, len(txns))
	for _, t := range txns {
		d := renewal.DateOf(t.Date)
		resp.Real.Yearly = resp.Real.Yearly.Add(t.Amount)
		if inMonth(d) {
			resp.Real.Monthly = resp.Real.Monthly.Add(t.Amount)
		}
		if t.SubscriptionID != nil {
			recorded[keyOf(*t.SubscriptionID, d)] = true
		}
	}

	for _, sub := range subs {
		resp.Approx.Monthly = resp.Approx.Monthly.Add(renewal.MonthlyEquivalent(sub.Amount, sub.BillingCycle))
		resp.Approx.Yearly = resp.Approx.Yearly.Add(renewal.YearlyEquivalent(sub.Amount, sub.BillingCycle))

		d := renewal.DateOf(sub.NextRenewalDate)
		for i := 0; d.Before(yearEnd) && i < maxSimulatedOccurrences; i++ {
			if !d.Before(yearStart) && !recorded[keyOf(sub.ID, d)] {
				resp.Real.Yearly = resp.Real.Yearly.Add(sub.Amount)
				if inMonth(d) {
					resp.Real.Monthly = resp.Real.Monthly.Add(sub.Amount)
				}
			}
			d = renewal.AddCycle(d, sub.BillingCycle)
		}
	}

	resp.Approx.Monthly = resp.Approx.Monthly.Round(2)
	resp.Approx.Yearly = resp.Approx.Yearly.Round(2)
	resp.Real.Monthly = resp.Real.Monthly.Round(2)
	resp.Real.Yearly = resp.Real.Yearly.Round(2)
	return resp, nil
}

type occurrenceKey struct {
	subscriptionID uuid.UUID
	date           string
}

func keyOf(subscriptionID uuid.UUID, d time.Time) occurrenceKey {
	return occurrenceKey{subscriptionID: subscriptionID, date: d.Format(time.DateOnly)}
}
