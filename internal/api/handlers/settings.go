package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/middleware"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

type SettingsHandler struct {
	Svc *services.SettingsService
}

func NewSettingsHandler(svc *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Svc: svc}
}

type updateFeeReq struct {
	HandlingFeePercentage *decimal.Decimal `json:"handling_fee_percentage" validate:"required"`
}

func (h *SettingsHandler) GetFee(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.Get(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserID(r.Context())
	var req updateFeeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	s, err := h.Svc.UpdateFeePercentage(r.Context(), uid, *req.HandlingFeePercentage)
	if err != nil {
		httpx.WriteServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}
