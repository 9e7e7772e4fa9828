package services

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	repo "github.com/baharkarakas/flightsplit-backend/internal/repository"
	"github.com/baharkarakas/flightsplit-backend/internal/validate"
)

// SettingsService owns the platform-wide settings row and is the production
// FeeProvider. Values are read on every call so a fee change applies to the
// very next settlement.
type SettingsService struct {
	repo  repo.Settings
	audit repo.AuditLogs
	log   *slog.Logger
}

func NewSettingsService(s repo.Settings, a repo.AuditLogs, log *slog.Logger) *SettingsService {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsService{repo: s, audit: a, log: log}
}

func (s *SettingsService) Get(ctx context.Context) (models.Settings, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return models.Settings{}, storageErr(err, "load settings")
	}
	return st, nil
}

func (s *SettingsService) FeePercentage(ctx context.Context) (decimal.Decimal, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return st.HandlingFeePercentage, nil
}

func (s *SettingsService) UpdateFeePercentage(ctx context.Context, actorID string, pct decimal.Decimal) (models.Settings, error) {
	var errs validate.Errs
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		errs = append(errs, validate.ErrField{Field: "handling_fee_percentage", Msg: "must be between 0 and 100"})
	}
	errs = errs.Add(validate.MaxPlaces("handling_fee_percentage", pct, 2))
	if err := invalid(errs); err != nil {
		return models.Settings{}, err
	}

	prev, err := s.repo.Get(ctx)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return models.Settings{}, storageErr(err, "load settings")
	}
	st, err := s.repo.SetFeePercentage(ctx, pct)
	if err != nil {
		return models.Settings{}, storageErr(err, "update fee percentage")
	}

	if err := s.audit.Create(ctx, models.AuditLog{
		EntityType: models.EntitySettings,
		EntityID:   "handling_fee_percentage",
		Action:     "updated",
		ActorID:    actorID,
		Details:    map[string]any{"from": prev.HandlingFeePercentage.String(), "to": pct.String()},
	}); err != nil {
		s.log.Warn("audit log write failed", "entity", models.EntitySettings, "err", err)
	}
	s.log.Info("handling fee updated", "actor_id", actorID, "from", prev.HandlingFeePercentage.String(), "to", pct.String())
	return st, nil
}
