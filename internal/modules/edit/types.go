package edit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

// ErrWriteConflict is reported by a ParagraphStore when the target
// paragraph's version moved since it was read. The request is retryable
// against fresh state.
var ErrWriteConflict = errors.New("store write conflict")

// Config is handed to the coordinator at construction; there is no global
// state toggling engine behavior.
type Config struct {
	EnableAI          bool
	TierTimeout       time.Duration
	ExcerptParagraphs int
	ExcerptRunes      int
}

// ParagraphStore is the narrow document contract the engine depends on.
// How and where paragraphs persist is not the engine's concern.
type ParagraphStore interface {
	ListParagraphs(ctx context.Context, sessionID uuid.UUID) ([]types.Paragraph, error)
	ReadParagraph(ctx context.Context, sessionID uuid.UUID, index int) (*types.Paragraph, error)
	// WriteParagraph returns the new version, or ErrWriteConflict when
	// expectedVersion is stale.
	WriteParagraph(ctx context.Context, sessionID uuid.UUID, index int, text string, expectedVersion int) (int, error)
}

// ResolutionCache memoizes resolved mutations per session. Entries are
// immutable once written and live until the session is cleared.
type ResolutionCache interface {
	Get(ctx context.Context, sessionID uuid.UUID, key domain.ResolutionKey) (*domain.Resolution, bool)
	Put(ctx context.Context, sessionID uuid.UUID, key domain.ResolutionKey, res domain.Resolution)
	ClearSession(ctx context.Context, sessionID uuid.UUID) error
}

// Resolver turns an instruction plus context into a structured mutation,
// or nil when it cannot.
type Resolver interface {
	Resolve(ctx context.Context, req domain.EditRequest, contextText string) *domain.Resolution
}

// EventRecorder persists an audit trail of applied edits. Optional.
type EventRecorder interface {
	RecordEdit(ctx context.Context, req domain.EditRequest, result domain.EditResult) error
}

// OutcomeNotifier pushes edit outcomes (including confidence) toward the
// UI layer. Optional.
type OutcomeNotifier interface {
	EditApplied(sessionID uuid.UUID, result domain.EditResult)
}
