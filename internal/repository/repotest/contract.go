// Package repotest holds the behaviour every repository backend must share.
// Backend test files call Run with a factory for fresh, empty repositories.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

type Factory func(t *testing.T) repository.Repositories

func Run(t *testing.T, newRepos Factory) {
	t.Run("OfferCreateAndFind", func(t *testing.T) { offerCreateAndFind(t, newRepos(t)) })
	t.Run("OfferTryTransition", func(t *testing.T) { offerTryTransition(t, newRepos(t)) })
	t.Run("OfferIllegalTransitions", func(t *testing.T) { offerIllegalTransitions(t, newRepos(t)) })
	t.Run("OfferTryTransitionRace", func(t *testing.T) { offerTryTransitionRace(t, newRepos(t)) })
	t.Run("OfferList", func(t *testing.T) { offerList(t, newRepos(t)) })
	t.Run("LedgerAppendAndSettle", func(t *testing.T) { ledgerAppendAndSettle(t, newRepos(t)) })
	t.Run("LedgerOneCompletedPerOffer", func(t *testing.T) { ledgerOneCompletedPerOffer(t, newRepos(t)) })
	t.Run("LedgerListings", func(t *testing.T) { ledgerListings(t, newRepos(t)) })
	t.Run("Settings", func(t *testing.T) { settings(t, newRepos(t)) })
	t.Run("AuditLog", func(t *testing.T) { auditLog(t, newRepos(t)) })
}

var day = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

func newOffer(owner, dep, arr string, date time.Time, share string) models.Offer {
	return models.Offer{
		OwnerUserID:          owner,
		DepartureLocation:    dep,
		ArrivalLocation:      arr,
		FlightDate:           date,
		TotalFlightCost:      decimal.RequireFromString("20000"),
		RequestedShareAmount: decimal.RequireFromString(share),
	}
}

func mustCreate(t *testing.T, r repository.Repositories, o models.Offer) models.Offer {
	t.Helper()
	created, err := r.Offers.Create(context.Background(), o)
	require.NoError(t, err)
	return created
}

func accept(t *testing.T, r repository.Repositories, id, by string) models.Offer {
	t.Helper()
	o, err := r.Offers.TryTransition(context.Background(), id, models.OfferOpen, models.OfferAccepted,
		repository.OfferMutation{MatchedUserID: &by})
	require.NoError(t, err)
	return o
}

func offerCreateAndFind(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	o := mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000.50"))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, models.OfferOpen, o.Status)
	assert.Nil(t, o.MatchedUserID)

	got, err := r.Offers.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.RequestedShareAmount.Equal(decimal.RequireFromString("8000.50")))
	assert.True(t, got.FlightDate.Equal(day))

	_, err = r.Offers.FindByID(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func offerTryTransition(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	o := mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000"))

	acc := accept(t, r, o.ID, "bob")
	assert.Equal(t, models.OfferAccepted, acc.Status)
	require.NotNil(t, acc.MatchedUserID)
	assert.Equal(t, "bob", *acc.MatchedUserID)

	carol := "carol"
	_, err := r.Offers.TryTransition(ctx, o.ID, models.OfferOpen, models.OfferAccepted, repository.OfferMutation{MatchedUserID: &carol})
	assert.True(t, errors.Is(err, repository.ErrConflict))

	done, err := r.Offers.TryTransition(ctx, o.ID, models.OfferAccepted, models.OfferCompleted, repository.OfferMutation{})
	require.NoError(t, err)
	assert.Equal(t, models.OfferCompleted, done.Status)
	require.NotNil(t, done.MatchedUserID, "completion keeps the matched user")
	assert.Equal(t, "bob", *done.MatchedUserID)

	_, err = r.Offers.TryTransition(ctx, "missing", models.OfferOpen, models.OfferCancelled, repository.OfferMutation{})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func offerIllegalTransitions(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	refused := func(id string, from, to models.OfferStatus, want models.OfferStatus) {
		t.Helper()
		bob := "bob"
		_, err := r.Offers.TryTransition(ctx, id, from, to, repository.OfferMutation{MatchedUserID: &bob})
		assert.True(t, errors.Is(err, repository.ErrIllegalTransition), "%s -> %s: %v", from, to, err)
		got, err := r.Offers.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "%s -> %s left the row untouched", from, to)
	}

	done := accept(t, r, mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000")).ID, "bob")
	_, err := r.Offers.TryTransition(ctx, done.ID, models.OfferAccepted, models.OfferCompleted, repository.OfferMutation{})
	require.NoError(t, err)
	refused(done.ID, models.OfferCompleted, models.OfferOpen, models.OfferCompleted)
	refused(done.ID, models.OfferCompleted, models.OfferCancelled, models.OfferCompleted)

	gone := mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000"))
	_, err = r.Offers.TryTransition(ctx, gone.ID, models.OfferOpen, models.OfferCancelled, repository.OfferMutation{})
	require.NoError(t, err)
	refused(gone.ID, models.OfferCancelled, models.OfferOpen, models.OfferCancelled)

	held := accept(t, r, mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000")).ID, "carol")
	refused(held.ID, models.OfferAccepted, models.OfferCancelled, models.OfferAccepted)
	refused(held.ID, models.OfferAccepted, models.OfferOpen, models.OfferAccepted)
	refused(held.ID, models.OfferStatus("archived"), models.OfferOpen, models.OfferAccepted)

	got, err := r.Offers.FindByID(ctx, held.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MatchedUserID)
	assert.Equal(t, "carol", *got.MatchedUserID)
}

func offerTryTransitionRace(t *testing.T, r repository.Repositories) {
	o := mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000"))

	const n = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := "buyer-" + string(rune('a'+i))
			_, err := r.Offers.TryTransition(context.Background(), o.ID, models.OfferOpen, models.OfferAccepted,
				repository.OfferMutation{MatchedUserID: &uid})
			if err == nil {
				mu.Lock()
				winners = append(winners, uid)
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, repository.ErrConflict), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	got, err := r.Offers.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], *got.MatchedUserID)
}

func offerList(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	a := mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "100"))
	b := mustCreate(t, r, newOffer("alice", "Zurich", "Nice", day.AddDate(0, 0, 3), "300"))
	c := mustCreate(t, r, newOffer("dave", "GENEVA", "Porto", day.AddDate(0, 0, 1), "200"))
	taken := mustCreate(t, r, newOffer("dave", "Geneva", "Nice", day, "100"))
	accept(t, r, taken.ID, "bob")

	ids := func(f repository.OfferFilter) []string {
		t.Helper()
		out, err := r.Offers.List(ctx, f)
		require.NoError(t, err)
		res := make([]string, 0, len(out))
		for _, o := range out {
			res = append(res, o.ID)
		}
		return res
	}

	assert.Equal(t, []string{a.ID, c.ID, b.ID}, ids(repository.OfferFilter{}), "open only, by flight date")
	assert.Equal(t, []string{a.ID, c.ID}, ids(repository.OfferFilter{Departure: "genev"}))
	assert.Equal(t, []string{c.ID}, ids(repository.OfferFilter{Arrival: "port"}))
	assert.Empty(t, ids(repository.OfferFilter{Departure: "%"}), "LIKE wildcards are literal")

	from, to := day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)
	assert.Equal(t, []string{c.ID}, ids(repository.OfferFilter{DateFrom: &from, DateTo: &to}))

	lo, hi := decimal.NewFromInt(150), decimal.NewFromInt(300)
	assert.Equal(t, []string{c.ID, b.ID}, ids(repository.OfferFilter{MinPrice: &lo, MaxPrice: &hi}))

	assert.Equal(t, []string{c.ID}, ids(repository.OfferFilter{ViewerID: "alice"}), "viewer's own offers hidden")
	assert.ElementsMatch(t, []string{c.ID, taken.ID}, ids(repository.OfferFilter{ViewerID: "dave", Mine: true}))

	assert.Equal(t, []string{c.ID}, ids(repository.OfferFilter{Limit: 1, Offset: 1}))
}

func ledgerRow(o models.Offer, status models.PaymentStatus, at time.Time) models.Transaction {
	return models.Transaction{
		OfferID:         o.ID,
		PayerUserID:     *o.MatchedUserID,
		RecipientUserID: o.OwnerUserID,
		Amount:          o.RequestedShareAmount,
		HandlingFee:     decimal.RequireFromString("400.00"),
		PaymentMethod:   models.PaymentCard,
		PaymentStatus:   status,
		TransactionDate: at,
	}
}

func ledgerAppendAndSettle(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	o := accept(t, r, mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000")).ID, "bob")

	tx, err := r.Transactions.Append(ctx, ledgerRow(o, models.PaymentPending, day))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.True(t, tx.HandlingFee.Equal(decimal.NewFromInt(400)))

	done, err := r.Transactions.MarkCompleted(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, done.PaymentStatus)

	again, err := r.Transactions.MarkCompleted(ctx, tx.ID)
	require.NoError(t, err, "MarkCompleted is idempotent")
	assert.Equal(t, done.ID, again.ID)
	assert.True(t, again.HandlingFee.Equal(done.HandlingFee))

	_, err = r.Transactions.MarkFailed(ctx, tx.ID)
	assert.True(t, errors.Is(err, repository.ErrConflict))

	_, err = r.Transactions.MarkCompleted(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	found, err := r.Transactions.FindCompletedForOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)
}

func ledgerOneCompletedPerOffer(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	o := accept(t, r, mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000")).ID, "bob")

	failed, err := r.Transactions.Append(ctx, ledgerRow(o, models.PaymentFailed, day))
	require.NoError(t, err)
	_, err = r.Transactions.Append(ctx, ledgerRow(o, models.PaymentCompleted, day.Add(time.Minute)))
	require.NoError(t, err, "a failed attempt does not block a completed one")

	_, err = r.Transactions.Append(ctx, ledgerRow(o, models.PaymentCompleted, day.Add(2*time.Minute)))
	assert.True(t, errors.Is(err, repository.ErrConflict))

	pending, err := r.Transactions.Append(ctx, ledgerRow(o, models.PaymentPending, day.Add(3*time.Minute)))
	require.NoError(t, err)
	_, err = r.Transactions.MarkCompleted(ctx, pending.ID)
	assert.Error(t, err, "completing a second row for the offer is rejected")

	got, err := r.Transactions.FindByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func ledgerListings(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	o1 := accept(t, r, mustCreate(t, r, newOffer("alice", "Geneva", "Nice", day, "8000")).ID, "bob")
	o2 := accept(t, r, mustCreate(t, r, newOffer("carol", "Geneva", "Nice", day, "500")).ID, "alice")

	t1, err := r.Transactions.Append(ctx, ledgerRow(o1, models.PaymentCompleted, day))
	require.NoError(t, err)
	t2, err := r.Transactions.Append(ctx, ledgerRow(o2, models.PaymentPending, day.Add(time.Hour)))
	require.NoError(t, err)

	list, err := r.Transactions.ListForUser(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, t2.ID, list[0].ID, "newest first")
	assert.Equal(t, t1.ID, list[1].ID)

	list, err = r.Transactions.ListForUser(ctx, "bob", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = r.Transactions.ListForOffer(ctx, o2.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, t2.ID, list[0].ID)

	orphans, err := r.Transactions.ListOrphanedCompleted(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, t1.ID, orphans[0].ID)

	_, err = r.Offers.TryTransition(ctx, o1.ID, models.OfferAccepted, models.OfferCompleted, repository.OfferMutation{})
	require.NoError(t, err)
	orphans, err = r.Transactions.ListOrphanedCompleted(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func settings(t *testing.T, r repository.Repositories) {
	ctx := context.Background()
	require.NoError(t, r.Settings.EnsureDefaults(ctx, decimal.NewFromInt(5)))
	require.NoError(t, r.Settings.EnsureDefaults(ctx, decimal.NewFromInt(9)))

	s, err := r.Settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.HandlingFeePercentage.Equal(decimal.NewFromInt(5)), "defaults never overwrite")

	_, err = r.Settings.SetFeePercentage(ctx, decimal.RequireFromString("7.5"))
	require.NoError(t, err)
	s, err = r.Settings.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.HandlingFeePercentage.Equal(decimal.RequireFromString("7.5")))
}

func auditLog(t *testing.T, r repository.Repositories) {
	err := r.AuditLogs.Create(context.Background(), models.AuditLog{
		EntityType: models.EntityOffer,
		EntityID:   "o-1",
		Action:     "accepted",
		ActorID:    "bob",
		Details:    map[string]any{"payment_method": "card"},
	})
	assert.NoError(t, err)
}
