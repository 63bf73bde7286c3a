package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/config"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/database"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/dto"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/models"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/notify"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/plans"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/services"
	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/timezone"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        testSecret,
		DeliveryHour:     10,
		DefaultAlertDays: 3,
		DefaultCurrency:  "USD",
		AdminToken:       "ops-token",
	}

	db, err := database.Open(&config.Config{DBDriver: database.DriverSQLite, DBPath: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	tz, err := timezone.NewResolver(100)
	require.NoError(t, err)
	t.Cleanup(tz.Close)

	registry := plans.NewRegistry()
	registry.Register(&plans.Plan{PlanID: "free", Limits: map[string]int{plans.ResourceSubscriptions: 2}})

	prefs := services.NewUserPreferenceStore(db)
	dispatcher := notify.NewLogDispatcher(nil)
	scheduler := services.NewRenewalScheduler(db, prefs, tz, dispatcher, cfg)

	app := fiber.New()
	Setup(app, cfg, db, Handlers{
		Health: handlers.NewHealthHandler(db, registry),
		Subscriptions: handlers.NewSubscriptionHandler(
			services.NewSubscriptionService(db, services.NewPlanQuota(db, registry), prefs, tz, cfg),
			services.NewBreakdownService(db, prefs, tz, cfg),
		),
		Transactions: handlers.NewTransactionHandler(services.NewTransactionService(db, prefs, cfg)),
		Ops:          handlers.NewOpsHandler(scheduler, cfg),
	})
	return &testServer{app: app, db: db}
}

func (s *testServer) newUser(t *testing.T, role string) (models.User, string) {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@example.com", Role: role, Plan: "free"}
	require.NoError(t, s.db.Create(&user).Error)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return user, signed
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func utcDate(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(time.DateOnly)
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, "GET", "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, 1, health.PlanCount)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/subscriptions", "/api/transactions", "/api/subscriptions/breakdown"} {
		resp, _ := s.do(t, "GET", path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
	resp, _ := s.do(t, "GET", "/api/subscriptions", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSubscriptionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, models.RoleUser)

	resp, body := s.do(t, "POST", "/api/subscriptions", token, map[string]interface{}{
		"name":              "Streaming",
		"amount":            "12.99",
		"billing_cycle":     "monthly",
		"next_renewal_date": utcDate(1),
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var sub models.Subscription
	require.NoError(t, json.Unmarshal(body, &sub))

	resp, _ = s.do(t, "GET", "/api/subscriptions/"+sub.ID.String(), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.do(t, "GET", "/api/transactions?projected=true", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list dto.TransactionListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Transactions, 1)
	projectionID := list.Transactions[0].ID

	resp, body = s.do(t, "POST", "/api/transactions/details", token, dto.IDsRequest{IDs: []uuid.UUID{projectionID}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"billing_cycle":"monthly"`)

	resp, body = s.do(t, "POST", "/api/subscriptions/confirm", token, dto.ConfirmRequest{TransactionIDs: []uuid.UUID{projectionID}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result dto.BatchResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []uuid.UUID{projectionID}, result.Succeeded)

	resp, body = s.do(t, "DELETE", "/api/subscriptions/"+sub.ID.String(), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var removed dto.RemoveResponse
	require.NoError(t, json.Unmarshal(body, &removed))
	assert.Equal(t, dto.RemoveDeactivated, removed.Outcome)

	resp, body = s.do(t, "GET", "/api/subscriptions", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"subscriptions":[]}`, string(body))

	resp, _ = s.do(t, "GET", "/api/subscriptions/breakdown", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSubscriptionErrorsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, models.RoleUser)
	_, otherToken := s.newUser(t, models.RoleUser)

	valid := map[string]interface{}{
		"name":              "Gym",
		"amount":            30,
		"billing_cycle":     "monthly",
		"next_renewal_date": utcDate(20),
	}

	resp, _ := s.do(t, "POST", "/api/subscriptions", token, map[string]interface{}{
		"name": "Gym", "amount": 30, "billing_cycle": "hourly", "next_renewal_date": utcDate(20),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, "POST", "/api/subscriptions", token, valid)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var sub models.Subscription
	require.NoError(t, json.Unmarshal(body, &sub))

	resp, _ = s.do(t, "GET", "/api/subscriptions/"+sub.ID.String(), otherToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/subscriptions/not-a-uuid", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/subscriptions/confirm", token, dto.ConfirmRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/subscriptions/cancel", token, dto.IDsRequest{IDs: []uuid.UUID{uuid.New()}})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// The free plan allows two active subscriptions.
	resp, _ = s.do(t, "POST", "/api/subscriptions", token, valid)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, body = s.do(t, "POST", "/api/subscriptions", token, valid)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.True(t, errResp.Error)
	assert.Equal(t, services.ErrQuotaExceeded.Error(), errResp.Message)
}

func TestManualSweepRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.newUser(t, models.RoleUser)
	_, adminToken := s.newUser(t, models.RoleAdmin)

	resp, _ := s.do(t, "POST", "/api/admin/renewals/sweep", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/api/admin/renewals/sweep", adminToken, dto.SweepRequest{Now: "yesterday"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	hour := 25
	resp, _ = s.do(t, "POST", "/api/admin/renewals/sweep", adminToken, dto.SweepRequest{Hour: &hour})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, "POST", "/api/admin/renewals/sweep", adminToken, dto.SweepRequest{Now: "2026-10-19T10:00:00Z"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var report dto.SweepReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC), report.Now.UTC())
}

func TestManualSweepWithAdminToken(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.newUser(t, models.RoleUser)

	req := httptest.NewRequest("POST", "/api/admin/renewals/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set("X-Admin-Token", "ops-token")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
