package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/notify"
	repo "github.com/baharkarakas/flightsplit-backend/internal/repository"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

const (
	defaultOpTimeout     = 5 * time.Second
	notificationTimeout  = 10 * time.Second
	maxLocationLength    = 120
	amountDecimalPlaces  = 2
	defaultReconcileSize = 100
)

// Submitter runs background jobs; *worker.Pool satisfies it.
type Submitter interface {
	Submit(f func()) bool
}

type OfferServiceDeps struct {
	Offers       repo.Offers
	Transactions repo.Transactions
	AuditLogs    repo.AuditLogs
	Fees         FeeProvider
	Notifier     notify.Gateway
	Workers      Submitter
	Now          func() time.Time
	OpTimeout    time.Duration
	Logger       *slog.Logger
}

// OfferService is the offer lifecycle engine. It keeps no locks of its own:
// every race is settled by the repositories' conditional writes.
type OfferService struct {
	offers   repo.Offers
	txs      repo.Transactions
	audit    repo.AuditLogs
	fees     FeeProvider
	notifier notify.Gateway
	wp       Submitter
	now      func() time.Time
	timeout  time.Duration
	log      *slog.Logger
}

func NewOfferService(d OfferServiceDeps) *OfferService {
	s := &OfferService{
		offers:   d.Offers,
		txs:      d.Transactions,
		audit:    d.AuditLogs,
		fees:     d.Fees,
		notifier: d.Notifier,
		wp:       d.Workers,
		now:      d.Now,
		timeout:  d.OpTimeout,
		log:      d.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = defaultOpTimeout
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *OfferService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ----------------- Create / read -----------------

type CreateOfferInput struct {
	DepartureLocation    string
	ArrivalLocation      string
	FlightDate           time.Time
	TotalFlightCost      decimal.Decimal
	RequestedShareAmount decimal.Decimal
}

func (s *OfferService) validateCreate(in CreateOfferInput) error {
	var errs validate.Errs
	errs = errs.Add(
		validate.Required("departure_location", in.DepartureLocation),
		validate.Required("arrival_location", in.ArrivalLocation),
	)
	dep, arr := strings.TrimSpace(in.DepartureLocation), strings.TrimSpace(in.ArrivalLocation)
	if len(dep) > maxLocationLength {
		errs = append(errs, validate.ErrField{Field: "departure_location", Msg: "too long"})
	}
	if len(arr) > maxLocationLength {
		errs = append(errs, validate.ErrField{Field: "arrival_location", Msg: "too long"})
	}
	if dep != "" && strings.EqualFold(dep, arr) {
		errs = append(errs, validate.ErrField{Field: "arrival_location", Msg: "must differ from departure_location"})
	}

	if in.FlightDate.IsZero() {
		errs = append(errs, validate.ErrField{Field: "flight_date", Msg: "required"})
	} else if !dateOnly(in.FlightDate).After(dateOnly(s.now())) {
		errs = append(errs, validate.ErrField{Field: "flight_date", Msg: "must be after today"})
	}

	errs = errs.Add(
		validate.Positive("total_flight_cost", in.TotalFlightCost),
		validate.MaxPlaces("total_flight_cost", in.TotalFlightCost, amountDecimalPlaces),
		validate.Positive("requested_share_amount", in.RequestedShareAmount),
		validate.MaxPlaces("requested_share_amount", in.RequestedShareAmount, amountDecimalPlaces),
	)
	if in.RequestedShareAmount.GreaterThan(in.TotalFlightCost) {
		errs = append(errs, validate.ErrField{Field: "requested_share_amount", Msg: "must not exceed total_flight_cost"})
	}
	return invalid(errs)
}

func (s *OfferService) CreateOffer(ctx context.Context, ownerID string, in CreateOfferInput) (models.Offer, error) {
	if strings.TrimSpace(ownerID) == "" {
		return models.Offer{}, invalidField("owner_user_id", "required")
	}
	if err := s.validateCreate(in); err != nil {
		return models.Offer{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	o, err := s.offers.Create(ctx, models.Offer{
		OwnerUserID:          ownerID,
		DepartureLocation:    strings.TrimSpace(in.DepartureLocation),
		ArrivalLocation:      strings.TrimSpace(in.ArrivalLocation),
		FlightDate:           dateOnly(in.FlightDate),
		TotalFlightCost:      in.TotalFlightCost,
		RequestedShareAmount: in.RequestedShareAmount,
		Status:               models.OfferOpen,
		CreatedAt:            s.now().UTC(),
	})
	if err != nil {
		return models.Offer{}, storageErr(err, "create offer")
	}

	metrics.OffersCreated.Inc()
	s.recordAudit(ctx, models.EntityOffer, o.ID, "created", ownerID, map[string]any{
		"requested_share_amount": o.RequestedShareAmount.String(),
	})
	s.notifyAsync(o.OwnerUserID, notify.EventOfferCreated, offerPayload(o))
	return o, nil
}

func (s *OfferService) GetOffer(ctx context.Context, id string) (models.Offer, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	o, err := s.offers.FindByID(ctx, id)
	if err != nil {
		return models.Offer{}, s.lookupErr(err, "load offer")
	}
	return o, nil
}

// ListOpenOffers returns open offers not owned by the viewer, or every offer
// the viewer owns when f.Mine is set.
func (s *OfferService) ListOpenOffers(ctx context.Context, f repo.OfferFilter) ([]models.Offer, error) {
	var errs validate.Errs
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		errs = append(errs, validate.ErrField{Field: "date_from", Msg: "must not be after date_to"})
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		errs = append(errs, validate.ErrField{Field: "min_price", Msg: "must not exceed max_price"})
	}
	if f.Mine && f.ViewerID == "" {
		errs = append(errs, validate.ErrField{Field: "mine", Msg: "requires an authenticated viewer"})
	}
	if err := invalid(errs); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	out, err := s.offers.List(ctx, f)
	if err != nil {
		return nil, storageErr(err, "list offers")
	}
	return out, nil
}

// ----------------- Accept -----------------

// AcceptOffer claims an open offer for acceptorID. Exactly one of any number
// of concurrent callers wins; the others get ErrOfferUnavailable. A caller that
// already holds the offer gets it back unchanged, so retrying after
// ErrOutcomeUnknown is safe.
func (s *OfferService) AcceptOffer(ctx context.Context, acceptorID, offerID string, method models.PaymentMethod) (models.Offer, error) {
	var errs validate.Errs
	errs = errs.Add(
		validate.Required("acceptor_user_id", acceptorID),
		paymentMethodErr(method),
	)
	if err := invalid(errs); err != nil {
		return models.Offer{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	o, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return models.Offer{}, s.lookupErr(err, "load offer")
	}
	if o.OwnerUserID == acceptorID {
		return models.Offer{}, ErrSelfAccept
	}
	if o.Status != models.OfferOpen {
		return s.resolveAcceptConflict(o, acceptorID)
	}

	accepted, err := s.offers.TryTransition(ctx, offerID, models.OfferOpen, models.OfferAccepted,
		repo.OfferMutation{MatchedUserID: &acceptorID})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrConflict):
		cur, ferr := s.offers.FindByID(ctx, offerID)
		if ferr != nil {
			return models.Offer{}, s.lookupErr(ferr, "reload offer")
		}
		return s.resolveAcceptConflict(cur, acceptorID)
	case errors.Is(err, repo.ErrNotFound):
		return models.Offer{}, ErrNotFound
	default:
		return models.Offer{}, storageErr(err, "accept offer")
	}

	metrics.OfferTransitions.WithLabelValues(string(models.OfferOpen), string(models.OfferAccepted)).Inc()
	s.recordAudit(ctx, models.EntityOffer, offerID, "accepted", acceptorID, map[string]any{
		"payment_method": string(method),
	})
	payload := offerPayload(accepted)
	payload["counterpart_user_id"] = acceptorID
	payload["payment_method"] = string(method)
	s.notifyAsync(accepted.OwnerUserID, notify.EventOfferAccepted, payload)
	return accepted, nil
}

func (s *OfferService) resolveAcceptConflict(cur models.Offer, acceptorID string) (models.Offer, error) {
	if cur.Status == models.OfferAccepted && cur.MatchedTo(acceptorID) {
		return cur, nil
	}
	metrics.OfferConflicts.WithLabelValues("accept").Inc()
	s.log.Debug("accept lost race", "offer_id", cur.ID, "status", string(cur.Status), "acceptor_id", acceptorID)
	return models.Offer{}, ErrOfferUnavailable
}

// ----------------- Cancel -----------------

func (s *OfferService) CancelOffer(ctx context.Context, ownerID, offerID string) (models.Offer, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	o, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return models.Offer{}, s.lookupErr(err, "load offer")
	}
	if o.OwnerUserID != ownerID {
		return models.Offer{}, ErrForbidden
	}
	if o.Status != models.OfferOpen {
		return models.Offer{}, ErrCannotCancel
	}

	cancelled, err := s.offers.TryTransition(ctx, offerID, models.OfferOpen, models.OfferCancelled, repo.OfferMutation{})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrConflict):
		metrics.OfferConflicts.WithLabelValues("cancel").Inc()
		s.log.Debug("cancel lost race", "offer_id", offerID)
		return models.Offer{}, ErrCannotCancel
	case errors.Is(err, repo.ErrNotFound):
		return models.Offer{}, ErrNotFound
	default:
		return models.Offer{}, storageErr(err, "cancel offer")
	}

	metrics.OfferTransitions.WithLabelValues(string(models.OfferOpen), string(models.OfferCancelled)).Inc()
	s.recordAudit(ctx, models.EntityOffer, offerID, "cancelled", ownerID, nil)
	s.notifyAsync(ownerID, notify.EventOfferCancelled, offerPayload(cancelled))
	return cancelled, nil
}

// ----------------- Settle -----------------

type SettleInput struct {
	OfferID              string
	AcceptorID           string
	Amount               decimal.Decimal
	PaymentMethod        models.PaymentMethod
	PaymentStatus        models.PaymentStatus
	TransactionReference *string
}

// SettlePayment records the acceptor's payment for an accepted offer. The fee
// percentage is read at this moment and frozen on the ledger row. A completed
// payment also completes the offer; replaying a completed settlement returns
// the existing ledger row instead of writing a second one.
func (s *OfferService) SettlePayment(ctx context.Context, in SettleInput) (models.Transaction, error) {
	var errs validate.Errs
	errs = errs.Add(
		validate.Required("acceptor_user_id", in.AcceptorID),
		paymentMethodErr(in.PaymentMethod),
		paymentStatusErr(in.PaymentStatus),
		validate.Positive("amount", in.Amount),
	)
	if in.TransactionReference != nil && len(*in.TransactionReference) > 255 {
		errs = append(errs, validate.ErrField{Field: "transaction_reference", Msg: "too long"})
	}
	if err := invalid(errs); err != nil {
		return models.Transaction{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	o, err := s.offers.FindByID(ctx, in.OfferID)
	if err != nil {
		return models.Transaction{}, s.lookupErr(err, "load offer")
	}

	if o.Status == models.OfferCompleted && o.MatchedTo(in.AcceptorID) && in.PaymentStatus == models.PaymentCompleted {
		existing, err := s.txs.FindCompletedForOffer(ctx, o.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, storageErr(err, "load settlement")
		}
	}
	if o.Status != models.OfferAccepted || !o.MatchedTo(in.AcceptorID) {
		return models.Transaction{}, ErrInvalidState
	}
	if !in.Amount.Equal(o.RequestedShareAmount) {
		return models.Transaction{}, invalidField("amount", "must equal the requested share amount "+o.RequestedShareAmount.StringFixed(2))
	}

	if in.PaymentStatus == models.PaymentCompleted {
		// A previous attempt may have written the ledger row and died before
		// completing the offer.
		existing, err := s.txs.FindCompletedForOffer(ctx, o.ID)
		if err == nil {
			if err := s.finalize(ctx, o.ID); err != nil {
				return models.Transaction{}, err
			}
			return existing, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return models.Transaction{}, storageErr(err, "load settlement")
		}
	}

	pct, err := s.fees.FeePercentage(ctx)
	if err != nil {
		return models.Transaction{}, errors.Wrap(err, "read fee percentage")
	}

	tx, err := s.txs.Append(ctx, models.Transaction{
		OfferID:              o.ID,
		PayerUserID:          in.AcceptorID,
		RecipientUserID:      o.OwnerUserID,
		Amount:               o.RequestedShareAmount,
		HandlingFee:          ComputeHandlingFee(o.RequestedShareAmount, pct),
		PaymentMethod:        in.PaymentMethod,
		PaymentStatus:        in.PaymentStatus,
		TransactionReference: in.TransactionReference,
		TransactionDate:      s.now().UTC(),
	})
	if err != nil {
		if !errors.Is(err, repo.ErrConflict) {
			return models.Transaction{}, storageErr(err, "append transaction")
		}
		// A concurrent settlement of the same offer won the unique index.
		existing, ferr := s.txs.FindCompletedForOffer(ctx, o.ID)
		if ferr != nil {
			return models.Transaction{}, storageErr(ferr, "load settlement")
		}
		if err := s.finalize(ctx, o.ID); err != nil {
			return models.Transaction{}, err
		}
		return existing, nil
	}

	metrics.Settlements.WithLabelValues(string(tx.PaymentStatus)).Inc()
	s.recordAudit(ctx, models.EntityTransaction, tx.ID, "created", in.AcceptorID, map[string]any{
		"offer_id":       o.ID,
		"amount":         tx.Amount.String(),
		"handling_fee":   tx.HandlingFee.String(),
		"fee_percentage": pct.String(),
		"payment_status": string(tx.PaymentStatus),
	})

	switch tx.PaymentStatus {
	case models.PaymentCompleted:
		if err := s.finalize(ctx, o.ID); err != nil {
			// The ledger row is durable; the reconciler completes the offer later.
			s.log.Warn("offer completion deferred to reconciler", "offer_id", o.ID, "transaction_id", tx.ID, "err", err)
		}
		s.notifyPayment(o, tx, notify.EventPaymentCompleted)
	case models.PaymentFailed:
		s.notifyPayment(o, tx, notify.EventPaymentFailed)
	}
	return tx, nil
}

// ConfirmPayment marks a pending ledger row completed and completes its offer.
// Confirming an already completed row only re-runs the offer completion.
func (s *OfferService) ConfirmPayment(ctx context.Context, transactionID string) (models.Transaction, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	prev, err := s.txs.FindByID(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, s.lookupErr(err, "load transaction")
	}

	tx, err := s.txs.MarkCompleted(ctx, transactionID)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrConflict):
		return models.Transaction{}, ErrInvalidState
	case errors.Is(err, repo.ErrNotFound):
		return models.Transaction{}, ErrNotFound
	default:
		return models.Transaction{}, storageErr(err, "complete transaction")
	}

	if err := s.finalize(ctx, tx.OfferID); err != nil {
		return models.Transaction{}, err
	}
	if prev.PaymentStatus != models.PaymentCompleted {
		metrics.Settlements.WithLabelValues(string(models.PaymentCompleted)).Inc()
		s.recordAudit(ctx, models.EntityTransaction, tx.ID, "completed", "", nil)
		if o, err := s.offers.FindByID(ctx, tx.OfferID); err == nil {
			s.notifyPayment(o, tx, notify.EventPaymentCompleted)
		}
	}
	return tx, nil
}

// FailPayment marks a pending ledger row failed. The offer stays accepted so
// the acceptor can pay again.
func (s *OfferService) FailPayment(ctx context.Context, transactionID string) (models.Transaction, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	prev, err := s.txs.FindByID(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, s.lookupErr(err, "load transaction")
	}
	tx, err := s.txs.MarkFailed(ctx, transactionID)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrConflict):
		return models.Transaction{}, ErrInvalidState
	case errors.Is(err, repo.ErrNotFound):
		return models.Transaction{}, ErrNotFound
	default:
		return models.Transaction{}, storageErr(err, "fail transaction")
	}

	if prev.PaymentStatus != models.PaymentFailed {
		metrics.Settlements.WithLabelValues(string(models.PaymentFailed)).Inc()
		s.recordAudit(ctx, models.EntityTransaction, tx.ID, "failed", "", nil)
		if o, err := s.offers.FindByID(ctx, tx.OfferID); err == nil {
			s.notifyPayment(o, tx, notify.EventPaymentFailed)
		}
	}
	return tx, nil
}

// finalize moves an offer from accepted to completed. Losing the race is fine
// as long as the offer did end up completed.
func (s *OfferService) finalize(ctx context.Context, offerID string) error {
	_, err := s.offers.TryTransition(ctx, offerID, models.OfferAccepted, models.OfferCompleted, repo.OfferMutation{})
	if err == nil {
		metrics.OfferTransitions.WithLabelValues(string(models.OfferAccepted), string(models.OfferCompleted)).Inc()
		s.recordAudit(ctx, models.EntityOffer, offerID, "completed", "", nil)
		return nil
	}
	if !errors.Is(err, repo.ErrConflict) {
		return s.lookupErr(err, "complete offer")
	}

	cur, ferr := s.offers.FindByID(ctx, offerID)
	if ferr != nil {
		return s.lookupErr(ferr, "reload offer")
	}
	if cur.Status == models.OfferCompleted {
		return nil
	}
	metrics.OfferConflicts.WithLabelValues("complete").Inc()
	return errors.Mark(errors.Newf("offer %s is %s, expected accepted", offerID, cur.Status), ErrInvalidState)
}

// ----------------- Ledger reads -----------------

func (s *OfferService) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidField("user_id", "required")
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	out, err := s.txs.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storageErr(err, "list transactions")
	}
	return out, nil
}

// ListOfferTransactions is visible to the offer's owner and matched user only.
func (s *OfferService) ListOfferTransactions(ctx context.Context, requesterID, offerID string) ([]models.Transaction, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	o, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, s.lookupErr(err, "load offer")
	}
	if o.OwnerUserID != requesterID && !o.MatchedTo(requesterID) {
		return nil, ErrForbidden
	}
	out, err := s.txs.ListForOffer(ctx, offerID)
	if err != nil {
		return nil, storageErr(err, "list offer transactions")
	}
	return out, nil
}

// ----------------- Reconciliation -----------------

type ReconcileResult struct {
	Scanned   int
	Completed int
	Failed    int
}

// ReconcileOrphans completes offers whose payment is recorded as completed but
// which were left accepted because the second settlement write never landed.
func (s *OfferService) ReconcileOrphans(ctx context.Context, limit int) (ReconcileResult, error) {
	if limit <= 0 {
		limit = defaultReconcileSize
	}
	var res ReconcileResult

	lctx, cancel := s.opContext(ctx)
	orphans, err := s.txs.ListOrphanedCompleted(lctx, limit)
	cancel()
	if err != nil {
		return res, storageErr(err, "list orphaned settlements")
	}

	for _, tx := range orphans {
		res.Scanned++
		octx, cancel := s.opContext(ctx)
		err := s.finalize(octx, tx.OfferID)
		cancel()
		if err != nil {
			res.Failed++
			s.log.Warn("reconcile offer failed", "offer_id", tx.OfferID, "transaction_id", tx.ID, "err", err)
			continue
		}
		res.Completed++
		metrics.ReconciledOffers.Inc()
		s.log.Info("offer completed by reconciler", "offer_id", tx.OfferID, "transaction_id", tx.ID)
	}
	return res, nil
}

// ----------------- Helpers -----------------

func (s *OfferService) lookupErr(err error, op string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return storageErr(err, op)
}

func (s *OfferService) recordAudit(ctx context.Context, entityType, entityID, action, actorID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Create(ctx, models.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Details:    details,
	})
	if err != nil {
		s.log.Warn("audit log write failed", "entity", entityType, "entity_id", entityID, "action", action, "err", err)
	}
}

// notifyAsync hands the notification to the worker pool and returns at once.
// Delivery problems are logged and counted, never returned.
func (s *OfferService) notifyAsync(userID string, event notify.Event, payload map[string]any) {
	if s.notifier == nil || s.wp == nil {
		return
	}
	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, userID, event, payload); err != nil {
			metrics.NotificationsFailed.WithLabelValues(string(event)).Inc()
			s.log.Warn("notification failed", "event", string(event), "user_id", userID, "err", err)
		}
	}
	if !s.wp.Submit(job) {
		metrics.NotificationsFailed.WithLabelValues(string(event)).Inc()
		s.log.Warn("notification dropped, worker queue unavailable", "event", string(event), "user_id", userID)
	}
}

func (s *OfferService) notifyPayment(o models.Offer, tx models.Transaction, event notify.Event) {
	payload := offerPayload(o)
	payload["transaction_id"] = tx.ID
	payload["amount"] = tx.Amount.StringFixed(2)
	payload["handling_fee"] = tx.HandlingFee.StringFixed(2)
	payload["payment_method"] = string(tx.PaymentMethod)

	payerPayload := clonePayload(payload)
	payerPayload["counterpart_user_id"] = tx.RecipientUserID
	s.notifyAsync(tx.PayerUserID, event, payerPayload)

	if event == notify.EventPaymentCompleted {
		payload["counterpart_user_id"] = tx.PayerUserID
		s.notifyAsync(tx.RecipientUserID, event, payload)
	}
}

func offerPayload(o models.Offer) map[string]any {
	return map[string]any{
		"offer_id":               o.ID,
		"departure_location":     o.DepartureLocation,
		"arrival_location":       o.ArrivalLocation,
		"flight_date":            o.FlightDate.Format(time.DateOnly),
		"total_flight_cost":      o.TotalFlightCost.StringFixed(2),
		"requested_share_amount": o.RequestedShareAmount.StringFixed(2),
		"status":                 string(o.Status),
	}
}

func clonePayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func paymentMethodErr(m models.PaymentMethod) *validate.ErrField {
	if m.Valid() {
		return nil
	}
	return &validate.ErrField{Field: "payment_method", Msg: "must be one of card, crypto"}
}

func paymentStatusErr(st models.PaymentStatus) *validate.ErrField {
	if st.Valid() {
		return nil
	}
	return &validate.ErrField{Field: "payment_status", Msg: "must be one of pending, completed, failed"}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
