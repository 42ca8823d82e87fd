package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/modules/edit"
	"github.com/escriba-legal/escriba-backend/internal/repos"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

// paragraphStore adapts the paragraph repo to the engine's store contract,
// translating the repo's conflict error into the engine's.
type paragraphStore struct {
	repo repos.ParagraphRepo
}

func NewParagraphStore(repo repos.ParagraphRepo) edit.ParagraphStore {
	return &paragraphStore{repo: repo}
}

func (s *paragraphStore) ListParagraphs(ctx context.Context, sessionID uuid.UUID) ([]types.Paragraph, error) {
	return s.repo.ListBySession(ctx, nil, sessionID)
}

func (s *paragraphStore) ReadParagraph(ctx context.Context, sessionID uuid.UUID, index int) (*types.Paragraph, error) {
	return s.repo.GetByIndex(ctx, nil, sessionID, index)
}

func (s *paragraphStore) WriteParagraph(ctx context.Context, sessionID uuid.UUID, index int, text string, expectedVersion int) (int, error) {
	version, err := s.repo.UpdateText(ctx, nil, sessionID, index, text, expectedVersion)
	if err != nil {
		if errors.Is(err, repos.ErrVersionConflict) {
			return 0, edit.ErrWriteConflict
		}
		return 0, err
	}
	return version, nil
}
