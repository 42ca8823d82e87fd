package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

// ErrVersionConflict is returned when a version-checked write loses the
// race: the paragraph changed since the caller read it.
var ErrVersionConflict = errors.New("paragraph version conflict")

type ParagraphRepo interface {
	Create(ctx context.Context, tx *gorm.DB, paragraphs []*types.Paragraph) ([]*types.Paragraph, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]types.Paragraph, error)
	GetByIndex(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, index int) (*types.Paragraph, error)
	// UpdateText writes new text iff the stored version still matches
	// expectedVersion, bumping the version. Returns the new version.
	UpdateText(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, index int, text string, expectedVersion int) (int, error)
}

type paragraphRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParagraphRepo(db *gorm.DB, baseLog *logger.Logger) ParagraphRepo {
	return &paragraphRepo{db: db, log: baseLog.With("repo", "ParagraphRepo")}
}

func (r *paragraphRepo) Create(ctx context.Context, tx *gorm.DB, paragraphs []*types.Paragraph) ([]*types.Paragraph, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(paragraphs) == 0 {
		return []*types.Paragraph{}, nil
	}

	const batchSize = 200

	if err := transaction.WithContext(ctx).CreateInBatches(paragraphs, batchSize).Error; err != nil {
		return nil, err
	}
	return paragraphs, nil
}

func (r *paragraphRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]types.Paragraph, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []types.Paragraph
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order(`"index" ASC`).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *paragraphRepo) GetByIndex(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, index int) (*types.Paragraph, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Paragraph
	if err := transaction.WithContext(ctx).
		Where(`session_id = ? AND "index" = ?`, sessionID, index).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *paragraphRepo) UpdateText(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, index int, text string, expectedVersion int) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Paragraph{}).
		Where(`session_id = ? AND "index" = ? AND version = ?`, sessionID, index, expectedVersion).
		Updates(map[string]any{
			"text":       text,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("paragraph %d in session %s: %w", index, sessionID, ErrVersionConflict)
	}
	return expectedVersion + 1, nil
}
