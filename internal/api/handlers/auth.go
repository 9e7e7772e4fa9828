package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/auth"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

type AuthHandler struct {
	TM *auth.TokenManager
}

func NewAuthHandler(tm *auth.TokenManager) *AuthHandler {
	return &AuthHandler{TM: tm}
}

type devTokenReq struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// DevToken issues an access token for any user id. Mounted only in dev.
func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var req devTokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadBody(w, err)
		return
	}
	if errs := validate.Struct(req); len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", errs)
		return
	}
	tok, exp, err := h.TM.Issue(req.UserID, req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Truncate(time.Second).Seconds()),
	})
}
