package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/middleware"
	"github.com/baharkarakas/flightsplit-backend/internal/models"
	repo "github.com/baharkarakas/flightsplit-backend/internal/repository"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

const dateLayout = "2006-01-02"

type OfferHandler struct {
	Svc *services.OfferService
}

func NewOfferHandler(svc *services.OfferService) *OfferHandler {
	return &OfferHandler{Svc: svc}
}

type createOfferReq struct {
	DepartureLocation    string          `json:"departure_location" validate:"required,max=120"`
	ArrivalLocation      string          `json:"arrival_location" validate:"required,max=120"`
	FlightDate           string          `json:"flight_date" validate:"required,datetime=2006-01-02"`
	TotalFlightCost      decimal.Decimal `json:"total_flight_cost"`
	RequestedShareAmount decimal.Decimal `json:"requested_share_amount"`
}

type acceptOfferReq struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card crypto"`
}

type settleReq struct {
	Amount               decimal.Decimal `json:"amount"`
	PaymentMethod        string          `json:"payment_method" validate:"required,oneof=card crypto"`
	PaymentStatus        string          `json:"payment_status" validate:"required,oneof=pending completed failed"`
	TransactionReference *string         `json:"transaction_reference,omitempty" validate:"omitempty,max=255"`
}

type listResp[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	var req createOfferReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	date, _ := time.Parse(dateLayout, req.FlightDate)

	o, err := h.Svc.CreateOffer(r.Context(), uid, services.CreateOfferInput{
		DepartureLocation:    req.DepartureLocation,
		ArrivalLocation:      req.ArrivalLocation,
		FlightDate:           date,
		TotalFlightCost:      req.TotalFlightCost,
		RequestedShareAmount: req.RequestedShareAmount,
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	f, errs := parseOfferFilter(r.URL.Query())
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	f.ViewerID = uid
	f.Normalize()

	offers, err := h.Svc.ListOpenOffers(r.Context(), f)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if offers == nil {
		offers = []models.Offer{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResp[models.Offer]{Items: offers, Limit: f.Limit, Offset: f.Offset})
}

func (h *OfferHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OfferHandler) Accept(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	var req acceptOfferReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	o, err := h.Svc.AcceptOffer(r.Context(), uid, chi.URLParam(r, "id"), models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *OfferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	o, err := h.Svc.CancelOffer(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": o.ID, "status": string(o.Status)})
}

func (h *OfferHandler) Settle(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	var req settleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	tx, err := h.Svc.SettlePayment(r.Context(), services.SettleInput{
		OfferID:              chi.URLParam(r, "id"),
		AcceptorID:           uid,
		Amount:               req.Amount,
		PaymentMethod:        models.PaymentMethod(req.PaymentMethod),
		PaymentStatus:        models.PaymentStatus(req.PaymentStatus),
		TransactionReference: req.TransactionReference,
	})
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tx)
}

func (h *OfferHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	txs, err := h.Svc.ListOfferTransactions(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": txs})
}

func parseOfferFilter(q url.Values) (repo.OfferFilter, validate.Errs) {
	var (
		f    repo.OfferFilter
		errs validate.Errs
	)
	f.Departure = strings.TrimSpace(q.Get("departure"))
	f.Arrival = strings.TrimSpace(q.Get("arrival"))

	parseDate := func(key string) *time.Time {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, validate.ErrField{Field: key, Msg: "must be a date formatted " + dateLayout})
			return nil
		}
		return &t
	}
	parseDec := func(key string) *decimal.Decimal {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			errs = append(errs, validate.ErrField{Field: key, Msg: "must be a non-negative number"})
			return nil
		}
		return &d
	}
	f.DateFrom = parseDate("date_from")
	f.DateTo = parseDate("date_to")
	f.MinPrice = parseDec("min_price")
	f.MaxPrice = parseDec("max_price")

	if v := q.Get("mine"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, validate.ErrField{Field: "mine", Msg: "must be true or false"})
		}
		f.Mine = b
	}
	f.Limit, f.Offset, errs = parsePage(q, errs)
	return f, errs
}

func parsePage(q url.Values, errs validate.Errs) (int, int, validate.Errs) {
	var limit, offset int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, validate.ErrField{Field: "limit", Msg: "must be a positive integer"})
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, validate.ErrField{Field: "offset", Msg: "must be a non-negative integer"})
		}
		offset = n
	}
	limit, offset = repo.ClampPage(limit, offset)
	return limit, offset, errs
}
