package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/baharkarakas/flightsplit-backend/internal/services"
)

const maxBodyBytes = 1 << 20

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// DecodeJSON reads a single JSON object from the body and rejects unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

func WriteBadBody(w http.ResponseWriter, err error) {
	msg := "invalid JSON body"
	if err != nil && strings.Contains(err.Error(), "unknown field") {
		msg = "unknown field in body"
	}
	WriteError(w, http.StatusBadRequest, "bad_request", msg, nil)
}

// WriteServiceError maps engine errors onto HTTP statuses. Unexpected errors
// are logged with their cause and answered with a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusUnprocessableEntity, "validation_failed", "validation failed", verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, services.ErrSelfAccept):
		WriteError(w, http.StatusConflict, "self_accept", "you cannot accept your own offer", nil)
	case errors.Is(err, services.ErrOfferUnavailable):
		WriteError(w, http.StatusConflict, "offer_unavailable", "this offer was just taken, please refresh", nil)
	case errors.Is(err, services.ErrCannotCancel):
		WriteError(w, http.StatusConflict, "cannot_cancel", "offer can no longer be cancelled", nil)
	case errors.Is(err, services.ErrInvalidState):
		WriteError(w, http.StatusConflict, "invalid_state", "offer is not in a state that allows this operation", nil)
	case errors.Is(err, services.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "not allowed", nil)
	case errors.Is(err, services.ErrOutcomeUnknown):
		WriteError(w, http.StatusGatewayTimeout, "outcome_unknown", "the operation timed out and may or may not have been applied; retry is safe", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
