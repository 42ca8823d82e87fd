package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/repos"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// editEngine is the slice of the coordinator the session lifecycle needs.
type editEngine interface {
	ClearSession(ctx context.Context, sessionID uuid.UUID) error
}

type sessionEndListener interface {
	SessionEnded(sessionID uuid.UUID)
}

type SessionService interface {
	CreateSession(ctx context.Context, title string, paragraphs []string) (*types.DocumentSession, []types.Paragraph, error)
	GetDocument(ctx context.Context, sessionID uuid.UUID) (*types.DocumentSession, []types.Paragraph, error)
	ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]types.EditEvent, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) error
	ClearCache(ctx context.Context, sessionID uuid.UUID) error
}

type sessionService struct {
	db          *gorm.DB
	log         *logger.Logger
	sessionRepo repos.DocumentSessionRepo
	paraRepo    repos.ParagraphRepo
	eventRepo   repos.EditEventRepo
	engine      editEngine
	listener    sessionEndListener
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	sessionRepo repos.DocumentSessionRepo,
	paraRepo repos.ParagraphRepo,
	eventRepo repos.EditEventRepo,
	engine editEngine,
	listener sessionEndListener,
) SessionService {
	return &sessionService{
		db:          db,
		log:         log.With("service", "SessionService"),
		sessionRepo: sessionRepo,
		paraRepo:    paraRepo,
		eventRepo:   eventRepo,
		engine:      engine,
		listener:    listener,
	}
}

// CreateSession loads a document into a fresh editing session. Empty
// paragraphs are kept: their indexes anchor positions in the original
// document.
func (s *sessionService) CreateSession(ctx context.Context, title string, paragraphs []string) (*types.DocumentSession, []types.Paragraph, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Documento sin título"
	}
	if len(paragraphs) == 0 {
		return nil, nil, fmt.Errorf("document has no paragraphs")
	}

	session := &types.DocumentSession{
		ID:     uuid.New(),
		Title:  title,
		Status: SessionStatusActive,
	}
	rows := make([]*types.Paragraph, 0, len(paragraphs))
	for i, text := range paragraphs {
		rows = append(rows, &types.Paragraph{
			ID:        uuid.New(),
			SessionID: session.ID,
			Index:     i,
			Text:      text,
			Version:   1,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.sessionRepo.Create(ctx, tx, session); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if _, err := s.paraRepo.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("create paragraphs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	out := make([]types.Paragraph, 0, len(rows))
	for _, p := range rows {
		out = append(out, *p)
	}
	s.log.Info("session created", "session_id", session.ID, "paragraphs", len(out))
	return session, out, nil
}

func (s *sessionService) GetDocument(ctx context.Context, sessionID uuid.UUID) (*types.DocumentSession, []types.Paragraph, error) {
	session, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch session: %w", err)
	}
	paragraphs, err := s.paraRepo.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch paragraphs: %w", err)
	}
	return session, paragraphs, nil
}

func (s *sessionService) ListEvents(ctx context.Context, sessionID uuid.UUID, limit int) ([]types.EditEvent, error) {
	if _, err := s.sessionRepo.GetByID(ctx, nil, sessionID); err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return s.eventRepo.ListBySession(ctx, nil, sessionID, limit)
}

// EndSession closes the session and drops its resolution cache. The
// document rows stay; only the editing vocabulary is discarded.
func (s *sessionService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessionRepo.UpdateStatus(ctx, nil, sessionID, SessionStatusClosed); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := s.engine.ClearSession(ctx, sessionID); err != nil {
		s.log.Warn("resolution cache not cleared", "error", err, "session_id", sessionID)
	}
	if s.listener != nil {
		s.listener.SessionEnded(sessionID)
	}
	s.log.Info("session ended", "session_id", sessionID)
	return nil
}

func (s *sessionService) ClearCache(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.sessionRepo.GetByID(ctx, nil, sessionID); err != nil {
		return fmt.Errorf("fetch session: %w", err)
	}
	return s.engine.ClearSession(ctx, sessionID)
}
