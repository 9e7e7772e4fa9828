package middleware

import (
	"net/http"

	"github.com/baharkarakas/flightsplit-backend/internal/api/httpx"
	"github.com/baharkarakas/flightsplit-backend/internal/auth"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret guards provider callbacks with a shared secret checked
// against its bcrypt hash. An empty hash rejects every call.
func WebhookSecret(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(WebhookSecretHeader)
			if hash == "" || secret == "" || auth.VerifySecret(secret, hash) != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
