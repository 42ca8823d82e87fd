package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

type EditEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.EditEvent) (*types.EditEvent, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]types.EditEvent, error)
}

type editEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEditEventRepo(db *gorm.DB, baseLog *logger.Logger) EditEventRepo {
	return &editEventRepo{db: db, log: baseLog.With("repo", "EditEventRepo")}
}

func (r *editEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.EditEvent) (*types.EditEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *editEventRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]types.EditEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var results []types.EditEvent
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
