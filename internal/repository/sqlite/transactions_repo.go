package sqlite

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

type transactionsRepo struct{ db *gorm.DB }

func toModels(rows []transactionRow) []models.Transaction {
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out
}

func (r *transactionsRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now().UTC()
	}
	row := newTransactionRow(t)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Transaction{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *transactionsRepo) FindByID(ctx context.Context, id string) (models.Transaction, error) {
	var row transactionRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Transaction{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *transactionsRepo) FindCompletedForOffer(ctx context.Context, offerID string) (models.Transaction, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).
		Where("offer_id = ? AND payment_status = ?", offerID, string(models.PaymentCompleted)).
		First(&row).Error
	if err != nil {
		return models.Transaction{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *transactionsRepo) MarkCompleted(ctx context.Context, id string) (models.Transaction, error) {
	return r.settle(ctx, id, models.PaymentCompleted)
}

func (r *transactionsRepo) MarkFailed(ctx context.Context, id string) (models.Transaction, error) {
	return r.settle(ctx, id, models.PaymentFailed)
}

func (r *transactionsRepo) settle(ctx context.Context, id string, to models.PaymentStatus) (models.Transaction, error) {
	var row transactionRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&transactionRow{}).
			Where("id = ? AND payment_status = ?", id, string(models.PaymentPending)).
			Update("payment_status", string(to))
		if res.Error != nil {
			return res.Error
		}
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 && row.PaymentStatus != string(to) {
			return repository.ErrConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.Transaction{}, err
		}
		return models.Transaction{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *transactionsRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	limit, offset = repository.ClampPage(limit, offset)
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("payer_user_id = ? OR recipient_user_id = ?", userID, userID).
		Order("transaction_date DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func (r *transactionsRepo) ListForOffer(ctx context.Context, offerID string) ([]models.Transaction, error) {
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("transaction_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

func (r *transactionsRepo) ListOrphanedCompleted(ctx context.Context, limit int) ([]models.Transaction, error) {
	limit, _ = repository.ClampPage(limit, 0)
	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Joins("JOIN offers ON offers.id = transactions.offer_id").
		Where("transactions.payment_status = ? AND offers.status = ?",
			string(models.PaymentCompleted), string(models.OfferAccepted)).
		Order("transactions.transaction_date").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}
