package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/auth"
	"github.com/baharkarakas/flightsplit-backend/internal/middleware"
	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/notify"
	"github.com/baharkarakas/flightsplit-backend/internal/repository/sqlite"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
	"github.com/baharkarakas/flightsplit-backend/internal/worker"
)

const webhookSecret = "hook-secret"

type testServer struct {
	t      *testing.T
	h      http.Handler
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	repos := sqlite.NewRepositories(db)
	require.NoError(t, repos.Settings.EnsureDefaults(context.Background(), decimal.NewFromInt(5)))

	pool := worker.NewPool(1, 64, nil)
	t.Cleanup(pool.Stop)

	settings := services.NewSettingsService(repos.Settings, repos.AuditLogs, nil)
	offers := services.NewOfferService(services.OfferServiceDeps{
		Offers:       repos.Offers,
		Transactions: repos.Transactions,
		AuditLogs:    repos.AuditLogs,
		Fees:         settings,
		Notifier:     notify.NewLogGateway(nil),
		Workers:      pool,
		Now:          func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})

	hash, err := auth.HashSecret(webhookSecret)
	require.NoError(t, err)
	tm := auth.NewTokenManager("test-secret", "flightsplit-test", time.Hour)

	h := NewRouter(RouterDeps{
		Env:               "dev",
		WebhookSecretHash: hash,
		Tokens:            tm,
		Offers:            offers,
		Settings:          settings,
	})
	return &testServer{t: t, h: h, tokens: tm}
}

func (s *testServer) do(method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createOffer(owner string) models.Offer {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/offers", "dev-"+owner, map[string]any{
		"departure_location":     "Geneva",
		"arrival_location":       "Nice",
		"flight_date":            "2025-07-15",
		"total_flight_cost":      "20000",
		"requested_share_amount": "8000",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Offer](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/offers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/offers", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFullLifecycle(t *testing.T) {
	s := newTestServer(t)
	o := s.createOffer("alice")
	assert.Equal(t, models.OfferOpen, o.Status)

	// bob sees it, alice does not
	list := decode[struct{ Items []models.Offer }](t, s.do(http.MethodGet, "/api/v1/offers?departure=gene", "dev-bob", nil))
	require.Len(t, list.Items, 1)
	list = decode[struct{ Items []models.Offer }](t, s.do(http.MethodGet, "/api/v1/offers", "dev-alice", nil))
	assert.Empty(t, list.Items)

	rec := s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/accept", "dev-bob", map[string]string{"payment_method": "card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decode[models.Offer](t, rec)
	assert.Equal(t, models.OfferAccepted, accepted.Status)
	require.NotNil(t, accepted.MatchedUserID)
	assert.Equal(t, "bob", *accepted.MatchedUserID)

	rec = s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/settle", "dev-bob", map[string]any{
		"amount":         "8000",
		"payment_method": "card",
		"payment_status": "completed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[models.Transaction](t, rec)
	assert.Equal(t, "400", tx.HandlingFee.String())
	assert.Equal(t, "alice", tx.RecipientUserID)

	got := decode[models.Offer](t, s.do(http.MethodGet, "/api/v1/offers/"+o.ID, "dev-carol", nil))
	assert.Equal(t, models.OfferCompleted, got.Status)

	txs := decode[struct{ Items []models.Transaction }](t, s.do(http.MethodGet, "/api/v1/transactions", "dev-alice", nil))
	require.Len(t, txs.Items, 1)
	assert.Equal(t, tx.ID, txs.Items[0].ID)

	rec = s.do(http.MethodGet, "/api/v1/offers/"+o.ID+"/transactions", "dev-carol", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOffer_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/offers", "dev-alice", map[string]any{
		"departure_location":     "Geneva",
		"arrival_location":       "Nice",
		"flight_date":            "15/07/2025",
		"total_flight_cost":      "100",
		"requested_share_amount": "50",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[httpx.APIError](t, rec)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Contains(t, rec.Body.String(), "flight_date")

	rec = s.do(http.MethodPost, "/api/v1/offers", "dev-alice", map[string]any{
		"departure_location":     "Geneva",
		"arrival_location":       "Nice",
		"flight_date":            "2025-07-15",
		"total_flight_cost":      "100",
		"requested_share_amount": "150",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "requested_share_amount")

	rec = s.do(http.MethodPost, "/api/v1/offers", "dev-alice", map[string]any{"surprise": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptErrors(t *testing.T) {
	s := newTestServer(t)
	o := s.createOffer("alice")

	rec := s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/accept", "dev-alice", map[string]string{"payment_method": "card"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "self_accept", decode[httpx.APIError](t, rec).Code)

	rec = s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/accept", "dev-bob", map[string]string{"payment_method": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/offers/missing/accept", "dev-bob", map[string]string{"payment_method": "card"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentAccept_OneWinner(t *testing.T) {
	s := newTestServer(t)
	o := s.createOffer("alice")

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := "buyer-" + string(rune('a'+i))
			codes[i] = s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/accept", "dev-"+uid, map[string]string{"payment_method": "crypto"}).Code
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
}

func TestCancel(t *testing.T) {
	s := newTestServer(t)
	o := s.createOffer("alice")

	rec := s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/cancel", "dev-bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/cancel", "dev-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[map[string]string](t, rec)["status"])

	rec = s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/cancel", "dev-alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cannot_cancel", decode[httpx.APIError](t, rec).Code)
}

func TestPaymentCallback(t *testing.T) {
	s := newTestServer(t)
	o := s.createOffer("alice")
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/accept", "dev-bob", map[string]string{"payment_method": "card"}).Code)

	rec := s.do(http.MethodPost, "/api/v1/offers/"+o.ID+"/settle", "dev-bob", map[string]any{
		"amount":                "8000",
		"payment_method":        "card",
		"payment_status":        "pending",
		"transaction_reference": "psp-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[models.Transaction](t, rec)

	cb := map[string]string{"transaction_id": tx.ID, "status": "completed"}
	rec = s.do(http.MethodPost, "/api/v1/payments/callback", "", cb)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/payments/callback", "", cb, middleware.WebhookSecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/payments/callback", "", cb, middleware.WebhookSecretHeader, webhookSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.PaymentCompleted, decode[models.Transaction](t, rec).PaymentStatus)

	// provider retries are harmless
	rec = s.do(http.MethodPost, "/api/v1/payments/callback", "", cb, middleware.WebhookSecretHeader, webhookSecret)
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decode[models.Offer](t, s.do(http.MethodGet, "/api/v1/offers/"+o.ID, "dev-bob", nil))
	assert.Equal(t, models.OfferCompleted, got.Status)
}

func TestFeeSettings(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/settings/fee", "dev-bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", decode[models.Settings](t, rec).HandlingFeePercentage.String())

	// dev tokens carry the user role
	rec = s.do(http.MethodPut, "/api/v1/admin/settings/fee", "dev-bob", map[string]string{"handling_fee_percentage": "7.5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, _, err := s.tokens.Issue("root", auth.RoleAdmin)
	require.NoError(t, err)
	rec = s.do(http.MethodPut, "/api/v1/admin/settings/fee", admin, map[string]string{"handling_fee_percentage": "7.5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "7.5", decode[models.Settings](t, rec).HandlingFeePercentage.String())

	rec = s.do(http.MethodPut, "/api/v1/admin/settings/fee", admin, map[string]string{"handling_fee_percentage": "120"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDevToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/dev/token", "", map[string]string{"user_id": "dave"})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode[map[string]any](t, rec)["access_token"].(string)

	rec = s.do(http.MethodGet, "/api/v1/transactions", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListOffers_BadQuery(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/offers?date_from=tomorrow&limit=-1", "dev-bob", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "date_from")
	assert.Contains(t, rec.Body.String(), "limit")

	rec = s.do(http.MethodGet, "/api/v1/offers?min_price=500&max_price=100", "dev-bob", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
