package edit

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/types"
)

// fakeStore is an in-memory ParagraphStore for one session, with the same
// version semantics as the repo-backed one.
type fakeStore struct {
	mu         sync.Mutex
	paragraphs map[int]*types.Paragraph
	conflict   bool
	conflictAt int // 1-based write number that conflicts; 0 never
	writes     int
}

func newFakeStore(texts ...string) *fakeStore {
	s := &fakeStore{paragraphs: make(map[int]*types.Paragraph)}
	for i, text := range texts {
		s.paragraphs[i] = &types.Paragraph{ID: uuid.New(), Index: i, Text: text, Version: 1}
	}
	return s
}

func (s *fakeStore) ListParagraphs(_ context.Context, _ uuid.UUID) ([]types.Paragraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	indexes := make([]int, 0, len(s.paragraphs))
	for i := range s.paragraphs {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]types.Paragraph, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, *s.paragraphs[i])
	}
	return out, nil
}

func (s *fakeStore) ReadParagraph(_ context.Context, _ uuid.UUID, index int) (*types.Paragraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paragraphs[index]
	if !ok {
		return nil, ErrWriteConflict
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) WriteParagraph(_ context.Context, _ uuid.UUID, index int, text string, expectedVersion int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paragraphs[index]
	if !ok || s.conflict || (s.conflictAt > 0 && s.writes+1 == s.conflictAt) || p.Version != expectedVersion {
		return 0, ErrWriteConflict
	}
	p.Text = text
	p.Version++
	s.writes++
	return p.Version, nil
}

func (s *fakeStore) text(index int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paragraphs[index].Text
}

func (s *fakeStore) version(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paragraphs[index].Version
}

// fakeResolver returns a fixed resolution and can trip a cancel func to
// simulate the caller disconnecting mid-call.
type fakeResolver struct {
	res    *domain.Resolution
	onCall func()
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, _ domain.EditRequest, _ string) *domain.Resolution {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.res == nil {
		return nil
	}
	cp := *f.res
	return &cp
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.EditResult
}

func (f *fakeRecorder) RecordEdit(_ context.Context, _ domain.EditRequest, result domain.EditResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, result)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	results []domain.EditResult
}

func (f *fakeNotifier) EditApplied(_ uuid.UUID, result domain.EditResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func newTestCoordinator(t *testing.T, store *fakeStore, resolver Resolver) (*Coordinator, *fakeRecorder, *fakeNotifier) {
	t.Helper()
	log := testLogger(t)
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	cfg := Config{EnableAI: resolver != nil}
	c := NewCoordinator(cfg, Deps{
		Log:       log,
		Store:     store,
		Cache:     NewMemoryCache(0),
		Pattern:   NewPatternMatcher(log),
		Resolver:  resolver,
		Heuristic: NewHeuristic(log),
		Events:    recorder,
		Notify:    notifier,
	})
	return c, recorder, notifier
}

func localReqAt(sessionID uuid.UUID, instruction, selected string, index int) domain.EditRequest {
	return domain.EditRequest{
		SessionID:      sessionID,
		Scope:          domain.ScopeLocal,
		Instruction:    instruction,
		SelectedText:   selected,
		ParagraphIndex: intPtr(index),
	}
}

func TestCoordinatorRejectsInvalidScope(t *testing.T) {
	store := newFakeStore("El locador entrega el inmueble.")
	c, _, _ := newTestCoordinator(t, store, nil)

	req := domain.EditRequest{
		SessionID:    uuid.New(),
		Scope:        domain.ScopeGlobal,
		Instruction:  "cambiar A por B",
		SelectedText: "texto", // not allowed in global scope
	}
	result, err := c.ResolveAndApply(context.Background(), req)
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if result.Success || result.ErrorKind != domain.ErrorInvalidScope {
		t.Fatalf("result = %+v", result)
	}
	if store.writes != 0 {
		t.Fatalf("store written on invalid request")
	}
}

func TestCoordinatorLocalEditStaysInsideSelection(t *testing.T) {
	// "doce meses" appears twice; only the occurrence matching the
	// selection may change, and only inside the selected span.
	store := newFakeStore("El plazo es de doce meses, prorrogable por doce meses.")
	c, recorder, notifier := newTestCoordinator(t, store, nil)
	sessionID := uuid.New()

	req := localReqAt(sessionID, "cambiar doce por veinticuatro", "doce meses", 0)
	result, err := c.ResolveAndApply(context.Background(), req)
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	want := "El plazo es de veinticuatro meses, prorrogable por doce meses."
	if got := store.text(0); got != want {
		t.Fatalf("paragraph = %q, want %q", got, want)
	}
	if len(result.ParagraphsChanged) != 1 || result.ParagraphsChanged[0] != 0 {
		t.Fatalf("paragraphs changed = %v", result.ParagraphsChanged)
	}
	if store.version(0) != 2 {
		t.Fatalf("version = %d, want 2", store.version(0))
	}
	if len(recorder.records) != 1 || len(notifier.results) != 1 {
		t.Fatalf("records=%d notifications=%d", len(recorder.records), len(notifier.results))
	}
}

func TestCoordinatorGlobalSubstitutionAcrossParagraphs(t *testing.T) {
	store := newFakeStore(
		"Entre Gino Gentile, el locador...",
		"El inmueble se entrega en buen estado.",
		"Firma: Gino Gentile.",
	)
	c, _, _ := newTestCoordinator(t, store, nil)
	sessionID := uuid.New()

	result, err := c.ResolveAndApply(context.Background(), domain.EditRequest{
		SessionID:   sessionID,
		Scope:       domain.ScopeGlobal,
		Instruction: `cambiar "Gino Gentile" por "Juan Pérez"`,
	})
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if len(result.ParagraphsChanged) != 2 || result.ParagraphsChanged[0] != 0 || result.ParagraphsChanged[1] != 2 {
		t.Fatalf("paragraphs changed = %v", result.ParagraphsChanged)
	}
	if got := store.text(1); got != "El inmueble se entrega en buen estado." {
		t.Fatalf("untouched paragraph changed: %q", got)
	}
	if store.text(0) != "Entre Juan Pérez, el locador..." || store.text(2) != "Firma: Juan Pérez." {
		t.Fatalf("texts = %q / %q", store.text(0), store.text(2))
	}
	if result.Resolution.SourceTier != domain.TierPattern {
		t.Fatalf("tier = %q", result.Resolution.SourceTier)
	}
}

func TestCoordinatorSecondRequestServedFromCache(t *testing.T) {
	store := newFakeStore("Entre Gino Gentile, el locador...")
	resolver := &fakeResolver{res: &domain.Resolution{
		SourceTier: domain.TierPrimaryAI,
		Kind:       domain.MutationSubstitution,
		OldValue:   "Gino Gentile",
		NewValue:   "Juan Pérez",
		Confidence: domain.ConfidenceHigh,
	}}
	c, _, _ := newTestCoordinator(t, store, resolver)
	sessionID := uuid.New()

	req := domain.EditRequest{SessionID: sessionID, Scope: domain.ScopeGlobal, Instruction: "poner al titular correcto"}
	first, err := c.ResolveAndApply(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.Resolution.SourceTier != domain.TierPrimaryAI {
		t.Fatalf("first tier = %q", first.Resolution.SourceTier)
	}

	// Same instruction, different surface whitespace and casing.
	req.Instruction = "  Poner   al titular correcto "
	second, err := c.ResolveAndApply(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Resolution.SourceTier != domain.TierCache {
		t.Fatalf("second tier = %q", second.Resolution.SourceTier)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.calls)
	}

	// The first application consumed the old value; replaying the cached
	// substitution is an honest no-op.
	if !second.Success || len(second.ParagraphsChanged) != 0 {
		t.Fatalf("second result = %+v", second)
	}
	if second.Resolution.Confidence != domain.ConfidenceLow {
		t.Fatalf("no-op confidence = %q", second.Resolution.Confidence)
	}
	if got := store.text(0); got != "Entre Juan Pérez, el locador..." {
		t.Fatalf("paragraph = %q", got)
	}
}

func TestCoordinatorPatternWinsOverResolver(t *testing.T) {
	store := newFakeStore("El plazo es de doce meses.")
	resolver := &fakeResolver{res: &domain.Resolution{
		SourceTier: domain.TierPrimaryAI,
		Kind:       domain.MutationSubstitution,
		OldValue:   "x",
		NewValue:   "y",
		Confidence: domain.ConfidenceHigh,
	}}
	c, _, _ := newTestCoordinator(t, store, resolver)

	result, err := c.ResolveAndApply(context.Background(), domain.EditRequest{
		SessionID:   uuid.New(),
		Scope:       domain.ScopeGlobal,
		Instruction: "cambiar doce por veinticuatro",
	})
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if result.Resolution.SourceTier != domain.TierPattern {
		t.Fatalf("tier = %q", result.Resolution.SourceTier)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called %d times", resolver.calls)
	}
}

func TestCoordinatorHeuristicWhenAIDisabled(t *testing.T) {
	store := newFakeStore("El contrato se celebra de buena fe.")
	c, _, _ := newTestCoordinator(t, store, nil)

	result, err := c.ResolveAndApply(context.Background(), domain.EditRequest{
		SessionID:   uuid.New(),
		Scope:       domain.ScopeGlobal,
		Instruction: "hacer el tono más solemne",
	})
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Resolution.SourceTier != domain.TierHeuristic {
		t.Fatalf("tier = %q", result.Resolution.SourceTier)
	}
}

func TestCoordinatorWriteConflictSurfaces(t *testing.T) {
	store := newFakeStore("El plazo es de doce meses.")
	store.conflict = true
	c, recorder, _ := newTestCoordinator(t, store, nil)

	result, err := c.ResolveAndApply(context.Background(), domain.EditRequest{
		SessionID:   uuid.New(),
		Scope:       domain.ScopeGlobal,
		Instruction: "cambiar doce por veinticuatro",
	})
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if result.Success || result.ErrorKind != domain.ErrorStoreConflict {
		t.Fatalf("result = %+v", result)
	}
	if len(recorder.records) != 0 {
		t.Fatal("conflict with zero changed paragraphs recorded an event")
	}
}

func TestCoordinatorGlobalConflictReportsPartialChanges(t *testing.T) {
	// A concurrent writer bumps a later paragraph while a global
	// substitution is in flight. The paragraphs written before the
	// conflict stay mutated, so the conflict result has to own them.
	store := newFakeStore(
		"Entre Gino Gentile, el locador...",
		"El inmueble se entrega en buen estado.",
		"Firma: Gino Gentile.",
	)
	store.conflictAt = 2
	c, recorder, notifier := newTestCoordinator(t, store, nil)

	result, err := c.ResolveAndApply(context.Background(), domain.EditRequest{
		SessionID:   uuid.New(),
		Scope:       domain.ScopeGlobal,
		Instruction: `cambiar "Gino Gentile" por "Juan Pérez"`,
	})
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if result.Success || result.ErrorKind != domain.ErrorStoreConflict {
		t.Fatalf("result = %+v", result)
	}
	if len(result.ParagraphsChanged) != 1 || result.ParagraphsChanged[0] != 0 {
		t.Fatalf("paragraphs changed = %v", result.ParagraphsChanged)
	}
	if got := store.text(0); got != "Entre Juan Pérez, el locador..." {
		t.Fatalf("paragraph 0 = %q", got)
	}
	if got := store.text(2); got != "Firma: Gino Gentile." {
		t.Fatalf("conflicted paragraph mutated: %q", got)
	}

	// The partial mutation is audited and broadcast as a conflict.
	if len(recorder.records) != 1 {
		t.Fatalf("records = %d, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.ErrorKind != domain.ErrorStoreConflict || len(rec.ParagraphsChanged) != 1 || rec.ParagraphsChanged[0] != 0 {
		t.Fatalf("recorded = %+v", rec)
	}
	if len(notifier.results) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.results))
	}
	frame := notifier.results[0]
	if frame.ErrorKind != domain.ErrorStoreConflict || len(frame.ParagraphsChanged) != 1 || frame.ParagraphsChanged[0] != 0 {
		t.Fatalf("notified = %+v", frame)
	}
}

func TestCoordinatorCanceledCachesButDoesNotApply(t *testing.T) {
	store := newFakeStore("Entre Gino Gentile, el locador...")
	ctx, cancel := context.WithCancel(context.Background())
	resolver := &fakeResolver{
		res: &domain.Resolution{
			SourceTier: domain.TierPrimaryAI,
			Kind:       domain.MutationSubstitution,
			OldValue:   "Gino Gentile",
			NewValue:   "Juan Pérez",
			Confidence: domain.ConfidenceHigh,
		},
		// The caller disconnects while the model call is in flight.
		onCall: cancel,
	}
	c, _, notifier := newTestCoordinator(t, store, resolver)
	sessionID := uuid.New()
	req := domain.EditRequest{SessionID: sessionID, Scope: domain.ScopeGlobal, Instruction: "poner al titular correcto"}

	result, err := c.ResolveAndApply(ctx, req)
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if result.Success || result.ErrorKind != domain.ErrorCanceled {
		t.Fatalf("result = %+v", result)
	}
	if store.writes != 0 {
		t.Fatal("canceled request mutated the document")
	}
	if len(notifier.results) != 0 {
		t.Fatal("canceled request was notified as applied")
	}

	// The completed resolution survives the cancellation: a retry is a
	// cache hit and applies without another model call.
	retry, err := c.ResolveAndApply(context.Background(), req)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !retry.Success || retry.Resolution.SourceTier != domain.TierCache {
		t.Fatalf("retry = %+v", retry)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", resolver.calls)
	}
	if got := store.text(0); got != "Entre Juan Pérez, el locador..." {
		t.Fatalf("paragraph = %q", got)
	}
}

func TestCoordinatorSelectionGoneIsHonestNoop(t *testing.T) {
	store := newFakeStore("El plazo es de veinticuatro meses.")
	c, _, _ := newTestCoordinator(t, store, nil)

	result, err := c.ResolveAndApply(context.Background(),
		localReqAt(uuid.New(), "cambiar doce por veinticuatro", "doce meses", 0))
	if err != nil {
		t.Fatalf("ResolveAndApply: %v", err)
	}
	if !result.Success || len(result.ParagraphsChanged) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Resolution.Confidence != domain.ConfidenceLow {
		t.Fatalf("confidence = %q", result.Resolution.Confidence)
	}
	if store.writes != 0 {
		t.Fatal("no-op wrote to the store")
	}
}

func TestCoordinatorClearSessionDropsCache(t *testing.T) {
	store := newFakeStore("Entre Gino Gentile, el locador...")
	resolver := &fakeResolver{res: &domain.Resolution{
		SourceTier: domain.TierPrimaryAI,
		Kind:       domain.MutationSubstitution,
		OldValue:   "Gino Gentile",
		NewValue:   "Juan Pérez",
		Confidence: domain.ConfidenceHigh,
	}}
	c, _, _ := newTestCoordinator(t, store, resolver)
	sessionID := uuid.New()
	req := domain.EditRequest{SessionID: sessionID, Scope: domain.ScopeGlobal, Instruction: "poner al titular correcto"}

	if _, err := c.ResolveAndApply(context.Background(), req); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := c.ClearSession(context.Background(), sessionID); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, err := c.ResolveAndApply(context.Background(), req); err != nil {
		t.Fatalf("second: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver called %d times, want 2 after cache clear", resolver.calls)
	}
}
