package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/notify"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
	"github.com/baharkarakas/flightsplit-backend/internal/repository/sqlite"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
	"github.com/baharkarakas/flightsplit-backend/internal/worker"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(_ context.Context, userID string, event notify.Event, _ map[string]any) error {
	return m.Called(userID, event).Error(0)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	svc      *OfferService
	settings *SettingsService
	repos    repository.Repositories
	notifier *mockNotifier
	pool     *worker.Pool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	repos := sqlite.NewRepositories(db)
	require.NoError(t, repos.Settings.EnsureDefaults(context.Background(), decimal.NewFromInt(5)))

	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	pool := worker.NewPool(2, 256, nil)
	t.Cleanup(pool.Stop)

	settings := NewSettingsService(repos.Settings, repos.AuditLogs, nil)
	svc := NewOfferService(OfferServiceDeps{
		Offers:       repos.Offers,
		Transactions: repos.Transactions,
		AuditLogs:    repos.AuditLogs,
		Fees:         settings,
		Notifier:     n,
		Workers:      pool,
		Now:          func() time.Time { return testNow },
	})
	return &harness{svc: svc, settings: settings, repos: repos, notifier: n, pool: pool}
}

// flush waits for every queued notification.
func (h *harness) flush() { h.pool.Stop() }

func offerInput(total, share string) CreateOfferInput {
	return CreateOfferInput{
		DepartureLocation:    "Geneva",
		ArrivalLocation:      "Nice",
		FlightDate:           time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		TotalFlightCost:      decimal.RequireFromString(total),
		RequestedShareAmount: decimal.RequireFromString(share),
	}
}

func (h *harness) openOffer(t *testing.T, owner string) models.Offer {
	t.Helper()
	o, err := h.svc.CreateOffer(context.Background(), owner, offerInput("20000", "8000"))
	require.NoError(t, err)
	return o
}

func (h *harness) acceptedOffer(t *testing.T, owner, acceptor string) models.Offer {
	t.Helper()
	o := h.openOffer(t, owner)
	o, err := h.svc.AcceptOffer(context.Background(), acceptor, o.ID, models.PaymentCard)
	require.NoError(t, err)
	return o
}

func settleInput(o models.Offer, acceptor string, status models.PaymentStatus) SettleInput {
	return SettleInput{
		OfferID:       o.ID,
		AcceptorID:    acceptor,
		Amount:        o.RequestedShareAmount,
		PaymentMethod: models.PaymentCard,
		PaymentStatus: status,
	}
}

// ----------------- Create -----------------

func TestCreateOffer(t *testing.T) {
	h := newHarness(t)
	o, err := h.svc.CreateOffer(context.Background(), "owner-1", offerInput("20000", "8000"))
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, models.OfferOpen, o.Status)
	assert.Nil(t, o.MatchedUserID)
	assert.Equal(t, "owner-1", o.OwnerUserID)
	assert.True(t, o.RequestedShareAmount.Equal(decimal.NewFromInt(8000)))

	h.flush()
	h.notifier.AssertCalled(t, "Notify", "owner-1", notify.EventOfferCreated)
}

func TestCreateOffer_Validation(t *testing.T) {
	h := newHarness(t)
	today := testNow.Truncate(24 * time.Hour)

	cases := []struct {
		name  string
		mut   func(*CreateOfferInput)
		field string
	}{
		{"missing departure", func(in *CreateOfferInput) { in.DepartureLocation = " " }, "departure_location"},
		{"missing arrival", func(in *CreateOfferInput) { in.ArrivalLocation = "" }, "arrival_location"},
		{"same route", func(in *CreateOfferInput) { in.ArrivalLocation = "geneva" }, "arrival_location"},
		{"flight today", func(in *CreateOfferInput) { in.FlightDate = today }, "flight_date"},
		{"flight in past", func(in *CreateOfferInput) { in.FlightDate = today.AddDate(0, 0, -3) }, "flight_date"},
		{"zero total", func(in *CreateOfferInput) { in.TotalFlightCost = decimal.Zero }, "total_flight_cost"},
		{"negative share", func(in *CreateOfferInput) { in.RequestedShareAmount = decimal.NewFromInt(-1) }, "requested_share_amount"},
		{"share above total", func(in *CreateOfferInput) { in.RequestedShareAmount = decimal.NewFromInt(20001) }, "requested_share_amount"},
		{"sub-cent share", func(in *CreateOfferInput) { in.RequestedShareAmount = decimal.RequireFromString("10.001") }, "requested_share_amount"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := offerInput("20000", "8000")
			c.mut(&in)
			_, err := h.svc.CreateOffer(context.Background(), "owner-1", in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			fields := map[string]bool{}
			for _, f := range verr.Fields {
				fields[f.Field] = true
			}
			assert.True(t, fields[c.field], "expected %s in %v", c.field, verr.Fields)
		})
	}
}

func TestCreateOffer_ShareEqualToTotalIsAllowed(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateOffer(context.Background(), "owner-1", offerInput("500", "500"))
	require.NoError(t, err)
}

// ----------------- Accept -----------------

func TestAcceptOffer(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	got, err := h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCrypto)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, got.Status)
	require.NotNil(t, got.MatchedUserID)
	assert.Equal(t, "buyer-1", *got.MatchedUserID)

	h.flush()
	h.notifier.AssertCalled(t, "Notify", "owner-1", notify.EventOfferAccepted)
}

func TestAcceptOffer_SelfAccept(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	_, err := h.svc.AcceptOffer(context.Background(), "owner-1", o.ID, models.PaymentCard)
	require.ErrorIs(t, err, ErrSelfAccept)

	stored, err := h.svc.GetOffer(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferOpen, stored.Status)
	assert.Nil(t, stored.MatchedUserID)
}

func TestAcceptOffer_Errors(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	_, err := h.svc.AcceptOffer(context.Background(), "buyer-1", "missing", models.PaymentCard)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentMethod("cash"))
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validate.Errs{{Field: "payment_method", Msg: "must be one of card, crypto"}}, verr.Fields)

	_, err = h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCard)
	require.NoError(t, err)
	_, err = h.svc.AcceptOffer(context.Background(), "buyer-2", o.ID, models.PaymentCard)
	assert.ErrorIs(t, err, ErrOfferUnavailable)
}

func TestAcceptOffer_RetryBySameAcceptorReturnsOffer(t *testing.T) {
	h := newHarness(t)
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	again, err := h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)
	assert.True(t, again.MatchedTo("buyer-1"))
}

func TestAcceptOffer_ConcurrentAcceptorsSingleWinner(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
		start   = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		acceptor := "buyer-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.svc.AcceptOffer(context.Background(), acceptor, o.ID, models.PaymentCard)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, acceptor)
			case errors.Is(err, ErrOfferUnavailable):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, losers)

	stored, err := h.svc.GetOffer(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, stored.Status)
	assert.True(t, stored.MatchedTo(winners[0]))
}

type deadlineOffers struct{ repository.Offers }

func (deadlineOffers) TryTransition(context.Context, string, models.OfferStatus, models.OfferStatus, repository.OfferMutation) (models.Offer, error) {
	return models.Offer{}, context.DeadlineExceeded
}

func TestAcceptOffer_DeadlineIsOutcomeUnknown(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	svc := NewOfferService(OfferServiceDeps{
		Offers:       deadlineOffers{h.repos.Offers},
		Transactions: h.repos.Transactions,
		Fees:         h.settings,
	})
	_, err := svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCard)
	// Marks are only visible to the cockroachdb matcher, not to the stdlib one.
	assert.True(t, errors.Is(err, ErrOutcomeUnknown))
	assert.False(t, errors.Is(err, ErrInternal))
}

// ----------------- Cancel -----------------

func TestCancelOffer(t *testing.T) {
	h := newHarness(t)
	o := h.openOffer(t, "owner-1")

	_, err := h.svc.CancelOffer(context.Background(), "stranger", o.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := h.svc.CancelOffer(context.Background(), "owner-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCancelled, got.Status)

	_, err = h.svc.CancelOffer(context.Background(), "owner-1", o.ID)
	assert.ErrorIs(t, err, ErrCannotCancel)

	_, err = h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCard)
	assert.ErrorIs(t, err, ErrOfferUnavailable)

	_, err = h.svc.CancelOffer(context.Background(), "owner-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOffer_AfterAccept(t *testing.T) {
	h := newHarness(t)
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	_, err := h.svc.CancelOffer(context.Background(), "owner-1", o.ID)
	assert.ErrorIs(t, err, ErrCannotCancel)
}

func TestCancelRacesAccept(t *testing.T) {
	for i := 0; i < 10; i++ {
		h := newHarness(t)
		o := h.openOffer(t, "owner-1")

		var (
			wg                   sync.WaitGroup
			acceptErr, cancelErr error
			start                = make(chan struct{})
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, acceptErr = h.svc.AcceptOffer(context.Background(), "buyer-1", o.ID, models.PaymentCard)
		}()
		go func() {
			defer wg.Done()
			<-start
			_, cancelErr = h.svc.CancelOffer(context.Background(), "owner-1", o.ID)
		}()
		close(start)
		wg.Wait()

		stored, err := h.svc.GetOffer(context.Background(), o.ID)
		require.NoError(t, err)
		if acceptErr == nil {
			assert.ErrorIs(t, cancelErr, ErrCannotCancel)
			assert.Equal(t, models.OfferAccepted, stored.Status)
			assert.True(t, stored.MatchedTo("buyer-1"))
		} else {
			assert.ErrorIs(t, acceptErr, ErrOfferUnavailable)
			assert.NoError(t, cancelErr)
			assert.Equal(t, models.OfferCancelled, stored.Status)
			assert.Nil(t, stored.MatchedUserID)
		}
	}
}

// ----------------- Settle -----------------

func TestSettlePayment_FeeFrozenAtSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.settings.UpdateFeePercentage(ctx, "admin", decimal.RequireFromString("7.5"))
	require.NoError(t, err)

	o, err := h.svc.CreateOffer(ctx, "owner-1", offerInput("25000", "10000"))
	require.NoError(t, err)
	_, err = h.svc.AcceptOffer(ctx, "buyer-1", o.ID, models.PaymentCard)
	require.NoError(t, err)

	tx, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)
	assert.Equal(t, "750.00", tx.HandlingFee.StringFixed(2))
	assert.Equal(t, "owner-1", tx.RecipientUserID)
	assert.Equal(t, "buyer-1", tx.PayerUserID)

	_, err = h.settings.UpdateFeePercentage(ctx, "admin", decimal.NewFromInt(10))
	require.NoError(t, err)

	stored, err := h.repos.Transactions.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "750.00", stored.HandlingFee.StringFixed(2))
}

func TestSettlePayment_ScenarioCompletesOffer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	o := h.acceptedOffer(t, "owner-1", "buyer-1")
	tx, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)

	assert.Equal(t, "8000.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "400.00", tx.HandlingFee.StringFixed(2))
	assert.Equal(t, models.PaymentCompleted, tx.PaymentStatus)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, stored.Status)

	for _, user := range []string{"owner-1", "buyer-1"} {
		txs, err := h.svc.ListTransactions(ctx, user, 0, 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, tx.ID, txs[0].ID)
	}

	h.flush()
	h.notifier.AssertCalled(t, "Notify", "buyer-1", notify.EventPaymentCompleted)
	h.notifier.AssertCalled(t, "Notify", "owner-1", notify.EventPaymentCompleted)
}

func TestSettlePayment_ReplayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	first, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)
	second, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	txs, err := h.repos.Transactions.ListForOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSettlePayment_ConcurrentReplays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
			if assert.NoError(t, err) {
				ids[i] = tx.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	completed, err := h.repos.Transactions.FindCompletedForOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, ids[0], completed.ID)
}

func TestSettlePayment_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	open := h.openOffer(t, "owner-1")
	_, err := h.svc.SettlePayment(ctx, settleInput(open, "buyer-1", models.PaymentCompleted))
	assert.ErrorIs(t, err, ErrInvalidState)

	o := h.acceptedOffer(t, "owner-2", "buyer-1")
	_, err = h.svc.SettlePayment(ctx, settleInput(o, "buyer-2", models.PaymentCompleted))
	assert.ErrorIs(t, err, ErrInvalidState)

	in := settleInput(o, "buyer-1", models.PaymentCompleted)
	in.Amount = decimal.NewFromInt(7999)
	_, err = h.svc.SettlePayment(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = settleInput(o, "buyer-1", models.PaymentStatus("refunded"))
	_, err = h.svc.SettlePayment(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "payment_status", verr.Fields[0].Field)

	in = settleInput(o, "buyer-1", models.PaymentCompleted)
	in.OfferID = "missing"
	_, err = h.svc.SettlePayment(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, stored.Status)
}

func TestSettlePayment_PendingThenConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	pending, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentPending))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, pending.PaymentStatus)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, stored.Status)

	done, err := h.svc.ConfirmPayment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, done.PaymentStatus)
	assert.True(t, done.HandlingFee.Equal(pending.HandlingFee))

	again, err := h.svc.ConfirmPayment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, done.ID, again.ID)

	stored, err = h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, stored.Status)

	_, err = h.svc.ConfirmPayment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettlePayment_FailedThenRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	failed, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentFailed))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)

	_, err = h.svc.ConfirmPayment(ctx, failed.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	tx, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)
	assert.NotEqual(t, failed.ID, tx.ID)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, stored.Status)

	h.flush()
	h.notifier.AssertCalled(t, "Notify", "buyer-1", notify.EventPaymentFailed)
}

func TestFailPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	pending, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentPending))
	require.NoError(t, err)

	failed, err := h.svc.FailPayment(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.PaymentStatus)

	_, err = h.svc.FailPayment(ctx, pending.ID)
	require.NoError(t, err)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, stored.Status)
}

// ----------------- Reconciliation -----------------

func TestReconcileOrphans(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	// A settlement whose offer write never happened.
	_, err := h.repos.Transactions.Append(ctx, models.Transaction{
		OfferID:         o.ID,
		PayerUserID:     "buyer-1",
		RecipientUserID: "owner-1",
		Amount:          o.RequestedShareAmount,
		HandlingFee:     decimal.RequireFromString("400"),
		PaymentMethod:   models.PaymentCard,
		PaymentStatus:   models.PaymentCompleted,
	})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.ReconciledOffers)
	res, err := h.svc.ReconcileOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{Scanned: 1, Completed: 1}, res)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReconciledOffers))

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, stored.Status)

	res, err = h.svc.ReconcileOrphans(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
}

func TestSettlePayment_RepairsOrphanOnReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")

	orphan, err := h.repos.Transactions.Append(ctx, models.Transaction{
		OfferID:         o.ID,
		PayerUserID:     "buyer-1",
		RecipientUserID: "owner-1",
		Amount:          o.RequestedShareAmount,
		HandlingFee:     decimal.RequireFromString("400"),
		PaymentMethod:   models.PaymentCard,
		PaymentStatus:   models.PaymentCompleted,
	})
	require.NoError(t, err)

	tx, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, tx.ID)

	stored, err := h.svc.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, stored.Status)
}

// ----------------- Notifications -----------------

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	h := newHarness(t)
	h.notifier.ExpectedCalls = nil
	h.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	before := testutil.ToFloat64(metrics.NotificationsFailed.WithLabelValues(string(notify.EventOfferCreated)))
	o, err := h.svc.CreateOffer(context.Background(), "owner-1", offerInput("100", "50"))
	require.NoError(t, err)
	assert.Equal(t, models.OfferOpen, o.Status)

	h.flush()
	after := testutil.ToFloat64(metrics.NotificationsFailed.WithLabelValues(string(notify.EventOfferCreated)))
	assert.Equal(t, before+1, after)
}

// ----------------- Listing -----------------

func TestListOpenOffers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mine := h.openOffer(t, "viewer")
	other := h.openOffer(t, "owner-1")
	taken := h.acceptedOffer(t, "owner-2", "buyer-1")

	cheap := offerInput("1000", "100")
	cheap.DepartureLocation = "Zurich"
	cheap.FlightDate = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	cheapOffer, err := h.svc.CreateOffer(ctx, "owner-3", cheap)
	require.NoError(t, err)

	got, err := h.svc.ListOpenOffers(ctx, repository.OfferFilter{ViewerID: "viewer"})
	require.NoError(t, err)
	ids := offerIDs(got)
	assert.ElementsMatch(t, []string{other.ID, cheapOffer.ID}, ids)
	assert.NotContains(t, ids, mine.ID)
	assert.NotContains(t, ids, taken.ID)
	assert.Equal(t, other.ID, got[0].ID, "earliest flight first")

	got, err = h.svc.ListOpenOffers(ctx, repository.OfferFilter{ViewerID: "viewer", Departure: "zur"})
	require.NoError(t, err)
	assert.Equal(t, []string{cheapOffer.ID}, offerIDs(got))

	maxPrice := decimal.NewFromInt(500)
	got, err = h.svc.ListOpenOffers(ctx, repository.OfferFilter{ViewerID: "viewer", MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Equal(t, []string{cheapOffer.ID}, offerIDs(got))

	from := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	got, err = h.svc.ListOpenOffers(ctx, repository.OfferFilter{ViewerID: "viewer", DateFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, []string{cheapOffer.ID}, offerIDs(got))

	got, err = h.svc.ListOpenOffers(ctx, repository.OfferFilter{ViewerID: "owner-2", Mine: true})
	require.NoError(t, err)
	assert.Equal(t, []string{taken.ID}, offerIDs(got))

	minPrice := decimal.NewFromInt(1000)
	_, err = h.svc.ListOpenOffers(ctx, repository.OfferFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListOfferTransactions_Visibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.acceptedOffer(t, "owner-1", "buyer-1")
	_, err := h.svc.SettlePayment(ctx, settleInput(o, "buyer-1", models.PaymentCompleted))
	require.NoError(t, err)

	for _, who := range []string{"owner-1", "buyer-1"} {
		txs, err := h.svc.ListOfferTransactions(ctx, who, o.ID)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	}
	_, err = h.svc.ListOfferTransactions(ctx, "stranger", o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func offerIDs(offers []models.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.ID)
	}
	return out
}
