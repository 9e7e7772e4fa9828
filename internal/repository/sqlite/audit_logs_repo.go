package sqlite

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

type auditLogsRepo struct{ db *gorm.DB }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := auditLogRow{
		ID:         l.ID,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Action:     l.Action,
		ActorID:    l.ActorID,
		Details:    l.Details,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
