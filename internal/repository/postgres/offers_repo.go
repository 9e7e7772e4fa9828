package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

type offersRepo struct{ pool *pgxpool.Pool }

const offerColumns = `id, owner_user_id, departure_location, arrival_location, flight_date,
  total_flight_cost, requested_share_amount, status, matched_user_id, created_at, updated_at`

func scanOffer(row pgx.Row) (models.Offer, error) {
	var o models.Offer
	err := row.Scan(&o.ID, &o.OwnerUserID, &o.DepartureLocation, &o.ArrivalLocation, &o.FlightDate,
		&o.TotalFlightCost, &o.RequestedShareAmount, &o.Status, &o.MatchedUserID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *offersRepo) Create(ctx context.Context, o models.Offer) (models.Offer, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	const q = `
INSERT INTO offers (id, owner_user_id, departure_location, arrival_location, flight_date,
  total_flight_cost, requested_share_amount, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,'open',$8,$8)
RETURNING ` + offerColumns
	out, err := scanOffer(r.pool.QueryRow(ctx, q,
		o.ID, o.OwnerUserID, o.DepartureLocation, o.ArrivalLocation, o.FlightDate,
		o.TotalFlightCost, o.RequestedShareAmount, o.CreatedAt,
	))
	return out, translate(err)
}

func (r *offersRepo) FindByID(ctx context.Context, id string) (models.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id=$1`, id))
	return o, translate(err)
}

func (r *offersRepo) List(ctx context.Context, f repository.OfferFilter) ([]models.Offer, error) {
	f.Normalize()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Mine {
		where = append(where, "owner_user_id = "+arg(f.ViewerID))
	} else {
		where = append(where, "status = 'open'")
		if f.ViewerID != "" {
			where = append(where, "owner_user_id <> "+arg(f.ViewerID))
		}
	}
	if f.Departure != "" {
		where = append(where, "departure_location ILIKE "+arg(containsPattern(f.Departure)))
	}
	if f.Arrival != "" {
		where = append(where, "arrival_location ILIKE "+arg(containsPattern(f.Arrival)))
	}
	if f.DateFrom != nil {
		where = append(where, "flight_date >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		where = append(where, "flight_date <= "+arg(*f.DateTo))
	}
	if f.MinPrice != nil {
		where = append(where, "requested_share_amount >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "requested_share_amount <= "+arg(*f.MaxPrice))
	}

	q := `SELECT ` + offerColumns + ` FROM offers WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY flight_date ASC, created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *offersRepo) TryTransition(ctx context.Context, id string, from, to models.OfferStatus, m repository.OfferMutation) (models.Offer, error) {
	if err := repository.CheckTransition(from, to); err != nil {
		return models.Offer{}, err
	}
	const q = `
UPDATE offers
   SET status = $3,
       matched_user_id = COALESCE($4::text, matched_user_id),
       updated_at = now()
 WHERE id = $1 AND status = $2
RETURNING ` + offerColumns
	o, err := scanOffer(r.pool.QueryRow(ctx, q, id, from, to, m.MatchedUserID))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Offer{}, translate(err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM offers WHERE id=$1)`, id).Scan(&exists); err != nil {
		return models.Offer{}, err
	}
	if !exists {
		return models.Offer{}, repository.ErrNotFound
	}
	return models.Offer{}, repository.ErrConflict
}

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// metacharacters in s taken literally.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
