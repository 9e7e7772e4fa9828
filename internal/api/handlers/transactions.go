package handlers

import (
	"net/http"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/middleware"
	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

type TransactionHandler struct {
	Svc *services.OfferService
}

func NewTransactionHandler(svc *services.OfferService) *TransactionHandler {
	return &TransactionHandler{Svc: svc}
}

// List returns the caller's ledger rows as payer or recipient, newest first.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	limit, offset, errs := parsePage(r.URL.Query(), nil)
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	txs, err := h.Svc.ListTransactions(r.Context(), uid, limit, offset)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResp[models.Transaction]{Items: txs, Limit: limit, Offset: offset})
}

type paymentCallbackReq struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=completed failed"`
}

type PaymentHandler struct {
	Svc *services.OfferService
}

func NewPaymentHandler(svc *services.OfferService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

// Callback receives the payment provider's verdict on a pending settlement.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}

	var (
		tx  models.Transaction
		err error
	)
	if models.PaymentStatus(req.Status) == models.PaymentCompleted {
		tx, err = h.Svc.ConfirmPayment(r.Context(), req.TransactionID)
	} else {
		tx, err = h.Svc.FailPayment(r.Context(), req.TransactionID)
	}
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tx)
}
