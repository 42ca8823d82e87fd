package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

type DocumentSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.DocumentSession) (*types.DocumentSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DocumentSession, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type documentSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentSessionRepo(db *gorm.DB, baseLog *logger.Logger) DocumentSessionRepo {
	return &documentSessionRepo{db: db, log: baseLog.With("repo", "DocumentSessionRepo")}
}

func (r *documentSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.DocumentSession) (*types.DocumentSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *documentSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.DocumentSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.DocumentSession
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *documentSessionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.DocumentSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}
