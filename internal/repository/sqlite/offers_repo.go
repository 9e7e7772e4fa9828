package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

type offersRepo struct{ db *gorm.DB }

func (r *offersRepo) Create(ctx context.Context, o models.Offer) (models.Offer, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Status = models.OfferOpen
	o.MatchedUserID = nil
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	row := newOfferRow(o)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Offer{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *offersRepo) FindByID(ctx context.Context, id string) (models.Offer, error) {
	var row offerRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Offer{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *offersRepo) List(ctx context.Context, f repository.OfferFilter) ([]models.Offer, error) {
	f.Normalize()

	q := r.db.WithContext(ctx).Model(&offerRow{})
	if f.Mine {
		q = q.Where("owner_user_id = ?", f.ViewerID)
	} else {
		q = q.Where("status = ?", string(models.OfferOpen))
		if f.ViewerID != "" {
			q = q.Where("owner_user_id <> ?", f.ViewerID)
		}
	}
	if f.Departure != "" {
		q = q.Where(`LOWER(departure_location) LIKE ? ESCAPE '\'`, containsPattern(f.Departure))
	}
	if f.Arrival != "" {
		q = q.Where(`LOWER(arrival_location) LIKE ? ESCAPE '\'`, containsPattern(f.Arrival))
	}
	if f.DateFrom != nil {
		q = q.Where("flight_date >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		q = q.Where("flight_date <= ?", f.DateTo.UTC())
	}
	if f.MinPrice != nil {
		q = q.Where("CAST(requested_share_amount AS REAL) >= ?", f.MinPrice.InexactFloat64())
	}
	if f.MaxPrice != nil {
		q = q.Where("CAST(requested_share_amount AS REAL) <= ?", f.MaxPrice.InexactFloat64())
	}

	var rows []offerRow
	err := q.Order("flight_date ASC").Order("created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Offer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *offersRepo) TryTransition(ctx context.Context, id string, from, to models.OfferStatus, m repository.OfferMutation) (models.Offer, error) {
	if err := repository.CheckTransition(from, to); err != nil {
		return models.Offer{}, err
	}
	var row offerRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		}
		if m.MatchedUserID != nil {
			updates["matched_user_id"] = *m.MatchedUserID
		}

		res := tx.Model(&offerRow{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&offerRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return repository.ErrNotFound
			}
			return repository.ErrConflict
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if err != nil {
		return models.Offer{}, translate(err)
	}
	return row.toModel(), nil
}

func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
