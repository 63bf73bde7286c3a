package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/database"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/notify"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 2026-10-19 08:00 UTC, outside the default delivery hour for UTC users.
var testNow = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return renewal.DateOf(testNow).AddDate(0, 0, offset)
}

func dayString(offset int) string {
	return day(offset).Format(time.DateOnly)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.Config{DBDriver: database.DriverSQLite, DBPath: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		DeliveryHour:     10,
		DefaultAlertDays: 3,
		DefaultCurrency:  "USD",
		NotifyTimeout:    time.Second,
	}
}

func newTestResolver(t *testing.T) *timezone.Resolver {
	t.Helper()
	r, err := timezone.NewResolver(100)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func createUser(t *testing.T, db *gorm.DB, tz string) models.User {
	t.Helper()
	u := models.User{Email: uuid.NewString() + "@example.com", Timezone: tz}
	require.NoError(t, db.Create(&u).Error)
	return u
}

type stubQuota struct {
	allow    bool
	proposed []int
}

func (q *stubQuota) Allow(_ context.Context, _ uuid.UUID, _ string, proposed int) (bool, error) {
	q.proposed = append(q.proposed, proposed)
	return q.allow, nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	batches []notify.Batch
	err     error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, batch notify.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, batch)
	return d.err
}

func (d *recordingDispatcher) Close() error { return nil }

type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	tz        *timezone.Resolver
	quota     *stubQuota
	subs      *SubscriptionService
	txns      *TransactionService
	breakdown *BreakdownService
	ledger    *ProjectionLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	tz := newTestResolver(t)
	prefs := NewUserPreferenceStore(db)
	quota := &stubQuota{allow: true}

	subs := NewSubscriptionService(db, quota, prefs, tz, cfg)
	subs.now = func() time.Time { return testNow }
	breakdown := NewBreakdownService(db, prefs, tz, cfg)
	breakdown.now = func() time.Time { return testNow }

	return &fixture{
		db:        db,
		cfg:       cfg,
		tz:        tz,
		quota:     quota,
		subs:      subs,
		txns:      NewTransactionService(db, prefs, cfg),
		breakdown: breakdown,
		ledger:    NewProjectionLedger(db),
	}
}

func (f *fixture) transactionsFor(t *testing.T, subID uuid.UUID) []models.Transaction {
	t.Helper()
	var rows []models.Transaction
	require.NoError(t, f.db.Where("subscription_id = ?", subID).Order("date ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) reload(t *testing.T, subID uuid.UUID) models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, f.db.First(&sub, "id = ?", subID).Error)
	return sub
}

// insertSubscription writes a subscription row directly, skipping the due-check.
func (f *fixture) insertSubscription(t *testing.T, userID uuid.UUID, amount int64, cycle renewal.BillingCycle, anchor time.Time) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		UserID:          userID,
		Name:            "Sub " + uuid.NewString()[:8],
		Amount:          decimal.NewFromInt(amount),
		Currency:        "USD",
		BillingCycle:    cycle,
		NextRenewalDate: anchor,
		IsActive:        true,
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

func (f *fixture) insertTransaction(t *testing.T, sub models.Subscription, date time.Time, amount int64, projected bool) models.Transaction {
	t.Helper()
	subID := sub.ID
	tx := models.Transaction{
		UserID:         sub.UserID,
		SubscriptionID: &subID,
		Name:           sub.Name,
		Amount:         decimal.NewFromInt(amount),
		Currency:       sub.Currency,
		Date:           date,
		IsProjected:    projected,
	}
	require.NoError(t, f.db.Create(&tx).Error)
	return tx
}
