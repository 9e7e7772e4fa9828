package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txColumns = `id, offer_id, payer_user_id, recipient_user_id, amount, handling_fee,
  payment_method, payment_status, transaction_reference, transaction_date`

func scanTx(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.OfferID, &t.PayerUserID, &t.RecipientUserID, &t.Amount, &t.HandlingFee,
		&t.PaymentMethod, &t.PaymentStatus, &t.TransactionReference, &t.TransactionDate)
	return t, err
}

func (r *transactionsRepo) queryList(ctx context.Context, q string, args ...any) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (id, offer_id, payer_user_id, recipient_user_id, amount, handling_fee,
  payment_method, payment_status, transaction_reference, transaction_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + txColumns
	out, err := scanTx(r.pool.QueryRow(ctx, q,
		t.ID, t.OfferID, t.PayerUserID, t.RecipientUserID, t.Amount, t.HandlingFee,
		t.PaymentMethod, t.PaymentStatus, t.TransactionReference, t.TransactionDate,
	))
	return out, translate(err)
}

func (r *transactionsRepo) FindByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTx(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id=$1`, id))
	return t, translate(err)
}

func (r *transactionsRepo) FindCompletedForOffer(ctx context.Context, offerID string) (models.Transaction, error) {
	t, err := scanTx(r.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE offer_id=$1 AND payment_status='completed'`, offerID))
	return t, translate(err)
}

func (r *transactionsRepo) MarkCompleted(ctx context.Context, id string) (models.Transaction, error) {
	return r.settle(ctx, id, models.PaymentCompleted)
}

func (r *transactionsRepo) MarkFailed(ctx context.Context, id string) (models.Transaction, error) {
	return r.settle(ctx, id, models.PaymentFailed)
}

// settle moves a pending row to its final status. A row already in that status
// is returned as is; a row finalised the other way is a conflict.
func (r *transactionsRepo) settle(ctx context.Context, id string, to models.PaymentStatus) (models.Transaction, error) {
	t, err := scanTx(r.pool.QueryRow(ctx,
		`UPDATE transactions SET payment_status=$2 WHERE id=$1 AND payment_status='pending' RETURNING `+txColumns,
		id, to))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, translate(err)
	}

	cur, err := r.FindByID(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if cur.PaymentStatus == to {
		return cur, nil
	}
	return models.Transaction{}, repository.ErrConflict
}

func (r *transactionsRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	limit, offset = repository.ClampPage(limit, offset)
	return r.queryList(ctx,
		`SELECT `+txColumns+`
		   FROM transactions
		  WHERE payer_user_id=$1 OR recipient_user_id=$1
		  ORDER BY transaction_date DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

func (r *transactionsRepo) ListForOffer(ctx context.Context, offerID string) ([]models.Transaction, error) {
	return r.queryList(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE offer_id=$1 ORDER BY transaction_date DESC`, offerID)
}

func (r *transactionsRepo) ListOrphanedCompleted(ctx context.Context, limit int) ([]models.Transaction, error) {
	limit, _ = repository.ClampPage(limit, 0)
	return r.queryList(ctx,
		`SELECT t.id, t.offer_id, t.payer_user_id, t.recipient_user_id, t.amount, t.handling_fee,
		        t.payment_method, t.payment_status, t.transaction_reference, t.transaction_date
		   FROM transactions t
		   JOIN offers o ON o.id = t.offer_id
		  WHERE t.payment_status = 'completed' AND o.status = 'accepted'
		  ORDER BY t.transaction_date
		  LIMIT $1`,
		limit)
}
