package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// The postgres schema uses uuid/now() defaults sqlite cannot express;
	// create the table by hand for tests.
	if err := db.Exec(`CREATE TABLE paragraph (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		"index" INTEGER NOT NULL,
		text TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (session_id, "index")
	)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func seedParagraphs(t *testing.T, repo ParagraphRepo, sessionID uuid.UUID, texts []string) {
	t.Helper()
	paragraphs := make([]*types.Paragraph, 0, len(texts))
	for i, text := range texts {
		paragraphs = append(paragraphs, &types.Paragraph{
			ID:        uuid.New(),
			SessionID: sessionID,
			Index:     i,
			Text:      text,
			Version:   1,
		})
	}
	if _, err := repo.Create(context.Background(), nil, paragraphs); err != nil {
		t.Fatalf("seed paragraphs: %v", err)
	}
}

func TestParagraphRepoListOrdered(t *testing.T) {
	repo := NewParagraphRepo(newTestDB(t), newTestLogger(t))
	sessionID := uuid.New()
	seedParagraphs(t, repo, sessionID, []string{"uno", "dos", "tres"})

	got, err := repo.ListBySession(context.Background(), nil, sessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(got))
	}
	for i, p := range got {
		if p.Index != i {
			t.Fatalf("paragraph %d out of order: index %d", i, p.Index)
		}
	}
	if got[1].Text != "dos" {
		t.Fatalf("unexpected text at index 1: %q", got[1].Text)
	}
}

func TestParagraphRepoUpdateTextBumpsVersion(t *testing.T) {
	repo := NewParagraphRepo(newTestDB(t), newTestLogger(t))
	sessionID := uuid.New()
	seedParagraphs(t, repo, sessionID, []string{"el demandado compareció"})

	newVersion, err := repo.UpdateText(context.Background(), nil, sessionID, 0, "la demandada compareció", 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if newVersion != 2 {
		t.Fatalf("expected version 2, got %d", newVersion)
	}

	p, err := repo.GetByIndex(context.Background(), nil, sessionID, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Text != "la demandada compareció" {
		t.Fatalf("text not updated: %q", p.Text)
	}
	if p.Version != 2 {
		t.Fatalf("stored version not bumped: %d", p.Version)
	}
}

func TestParagraphRepoUpdateTextVersionConflict(t *testing.T) {
	repo := NewParagraphRepo(newTestDB(t), newTestLogger(t))
	sessionID := uuid.New()
	seedParagraphs(t, repo, sessionID, []string{"texto original"})

	if _, err := repo.UpdateText(context.Background(), nil, sessionID, 0, "primera edición", 1); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Stale expected version must not clobber the newer write.
	_, err := repo.UpdateText(context.Background(), nil, sessionID, 0, "edición obsoleta", 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	p, err := repo.GetByIndex(context.Background(), nil, sessionID, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Text != "primera edición" {
		t.Fatalf("stale write applied: %q", p.Text)
	}
}
