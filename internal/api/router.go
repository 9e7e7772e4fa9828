package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/flightsplit-backend/internal/api/handlers"
	"github.com/baharkarakas/flightsplit-backend/internal/auth"
	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
	"github.com/baharkarakas/flightsplit-backend/internal/middleware"
	"github.com/baharkarakas/flightsplit-backend/internal/services"
)

type RouterDeps struct {
	Env               string
	CORSOrigins       []string
	RateRPS           float64
	RateBurst         int
	RequestTimeout    time.Duration
	WebhookSecretHash string
	Tokens            *auth.TokenManager
	Offers            *services.OfferService
	Settings          *services.SettingsService
	Logger            *slog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(d.RateRPS, d.RateBurst))
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	am := middleware.NewAuthMiddleware(d.Tokens, d.Env)
	offers := handlers.NewOfferHandler(d.Offers)
	txs := handlers.NewTransactionHandler(d.Offers)
	payments := handlers.NewPaymentHandler(d.Offers)
	settings := handlers.NewSettingsHandler(d.Settings)

	r.Route("/api/v1", func(r chi.Router) {
		if d.Env == "dev" {
			r.Post("/dev/token", handlers.NewAuthHandler(d.Tokens).DevToken)
		}

		r.With(middleware.WebhookSecret(d.WebhookSecretHash)).Post("/payments/callback", payments.Callback)

		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			r.Route("/offers", func(r chi.Router) {
				r.Post("/", offers.Create)
				r.Get("/", offers.List)
				r.Get("/{id}", offers.Get)
				r.Post("/{id}/accept", offers.Accept)
				r.Post("/{id}/cancel", offers.Cancel)
				r.Post("/{id}/settle", offers.Settle)
				r.Get("/{id}/transactions", offers.Transactions)
			})

			r.Get("/transactions", txs.List)
			r.Get("/settings/fee", settings.GetFee)

			r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/admin/settings/fee", settings.UpdateFee)
		})
	})

	return r
}
