package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/observability"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

// Deps carries the coordinator's collaborators. Store and Cache are
// required; Resolver, Events and Notify may be nil.
type Deps struct {
	Log       *logger.Logger
	Store     ParagraphStore
	Cache     ResolutionCache
	Pattern   *PatternMatcher
	Resolver  Resolver
	Heuristic *Heuristic
	Events    EventRecorder
	Notify    OutcomeNotifier
}

// Coordinator owns the resolution cache and is the only writer to the
// paragraph store during an edit. Edits are serialized per session;
// cross-session requests run independently.
type Coordinator struct {
	log       *logger.Logger
	cfg       Config
	store     ParagraphStore
	cache     ResolutionCache
	pattern   *PatternMatcher
	resolver  Resolver
	heuristic *Heuristic
	events    EventRecorder
	notify    OutcomeNotifier

	mu       sync.Mutex
	sessions map[uuid.UUID]*semaphore.Weighted
}

func NewCoordinator(cfg Config, deps Deps) *Coordinator {
	return &Coordinator{
		log:       deps.Log.With("service", "EditCoordinator"),
		cfg:       cfg,
		store:     deps.Store,
		cache:     deps.Cache,
		pattern:   deps.Pattern,
		resolver:  deps.Resolver,
		heuristic: deps.Heuristic,
		events:    deps.Events,
		notify:    deps.Notify,
		sessions:  make(map[uuid.UUID]*semaphore.Weighted),
	}
}

func (c *Coordinator) sessionSem(sessionID uuid.UUID) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	sem, ok := c.sessions[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		c.sessions[sessionID] = sem
	}
	return sem
}

// ResolveAndApply resolves one instruction through the tier chain
// (cache, pattern, primary AI, fallback AI, heuristic) and applies the
// resulting mutation in place. Every tier is attempted at most once.
func (c *Coordinator) ResolveAndApply(ctx context.Context, req domain.EditRequest) (domain.EditResult, error) {
	if kind := req.Validate(); kind != domain.ErrorNone {
		return domain.EditResult{ParagraphsChanged: []int{}, ErrorKind: kind}, nil
	}

	sem := c.sessionSem(req.SessionID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return domain.EditResult{ParagraphsChanged: []int{}, ErrorKind: domain.ErrorCanceled}, nil
	}
	defer sem.Release(1)

	ctx, span := observability.Tracer().Start(ctx, "edit.resolve_and_apply")
	defer span.End()

	key := domain.NewResolutionKey(req)
	if cached, ok := c.cache.Get(ctx, req.SessionID, key); ok {
		res := *cached
		res.SourceTier = domain.TierCache
		span.SetAttributes(attribute.String("edit.source_tier", string(domain.TierCache)))
		return c.apply(ctx, req, res)
	}

	contextText, err := c.buildContext(ctx, req)
	if err != nil {
		return domain.EditResult{ParagraphsChanged: []int{}}, err
	}

	res := c.pattern.Match(req, contextText)
	if res == nil && c.cfg.EnableAI && c.resolver != nil {
		// The call outlives a caller disconnect so the result can still
		// populate the cache; the tier timeout bounds it instead.
		res = c.resolver.Resolve(context.WithoutCancel(ctx), req, contextText)
	}
	if res == nil {
		r := c.heuristic.Resolve(req, contextText)
		res = &r
	}
	span.SetAttributes(attribute.String("edit.source_tier", string(res.SourceTier)))

	c.cache.Put(context.WithoutCancel(ctx), req.SessionID, key, *res)

	if ctx.Err() != nil {
		c.log.Debug("caller gone before apply; resolution cached, mutation discarded",
			"session_id", req.SessionID, "tier", string(res.SourceTier))
		return domain.EditResult{ParagraphsChanged: []int{}, Resolution: *res, ErrorKind: domain.ErrorCanceled}, nil
	}
	return c.apply(ctx, req, *res)
}

// ClearSession drops the session's cached resolutions; called when a
// session ends.
func (c *Coordinator) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	return c.cache.ClearSession(ctx, sessionID)
}

// buildContext returns the text some tiers need to locate values: the
// target paragraph for local scope, a bounded representative excerpt for
// global scope. Never the whole document.
func (c *Coordinator) buildContext(ctx context.Context, req domain.EditRequest) (string, error) {
	if req.Scope == domain.ScopeLocal {
		p, err := c.store.ReadParagraph(ctx, req.SessionID, *req.ParagraphIndex)
		if err != nil {
			return "", fmt.Errorf("read paragraph %d: %w", *req.ParagraphIndex, err)
		}
		return p.Text, nil
	}

	paragraphs, err := c.store.ListParagraphs(ctx, req.SessionID)
	if err != nil {
		return "", fmt.Errorf("list paragraphs: %w", err)
	}
	maxParagraphs := c.cfg.ExcerptParagraphs
	if maxParagraphs <= 0 {
		maxParagraphs = 6
	}
	maxRunes := c.cfg.ExcerptRunes
	if maxRunes <= 0 {
		maxRunes = 240
	}
	var b strings.Builder
	for i, p := range paragraphs {
		if i >= maxParagraphs {
			break
		}
		text := p.Text
		if runes := []rune(text); len(runes) > maxRunes {
			text = string(runes[:maxRunes])
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *Coordinator) apply(ctx context.Context, req domain.EditRequest, res domain.Resolution) (domain.EditResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "edit.apply")
	defer span.End()

	var (
		changed []int
		err     error
	)
	if req.Scope == domain.ScopeLocal {
		changed, err = c.applyLocal(ctx, req, res)
	} else {
		changed, err = c.applyGlobal(ctx, req, res)
	}
	if err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return c.conflictResult(ctx, req, res, changed), nil
		}
		return domain.EditResult{ParagraphsChanged: []int{}}, err
	}

	result := domain.EditResult{
		Success:           true,
		ParagraphsChanged: changed,
		Resolution:        res,
	}
	if len(changed) == 0 {
		// Zero matches is a valid outcome, flagged for human review.
		result.Resolution.Confidence = domain.ConfidenceLow
	}

	if c.events != nil {
		if recErr := c.events.RecordEdit(ctx, req, result); recErr != nil {
			c.log.Warn("edit event not recorded", "error", recErr, "session_id", req.SessionID)
		}
	}
	if c.notify != nil {
		c.notify.EditApplied(req.SessionID, result)
	}
	return result, nil
}

// conflictResult reports a version conflict. Paragraphs written before
// the conflict tripped stay mutated, so the result carries their indexes
// and any partial change is recorded and broadcast like an applied one.
func (c *Coordinator) conflictResult(ctx context.Context, req domain.EditRequest, res domain.Resolution, changed []int) domain.EditResult {
	if changed == nil {
		changed = []int{}
	}
	result := domain.EditResult{
		ParagraphsChanged: changed,
		Resolution:        res,
		ErrorKind:         domain.ErrorStoreConflict,
	}
	if c.events != nil && len(changed) > 0 {
		if recErr := c.events.RecordEdit(ctx, req, result); recErr != nil {
			c.log.Warn("edit event not recorded", "error", recErr, "session_id", req.SessionID)
		}
	}
	if c.notify != nil {
		c.notify.EditApplied(req.SessionID, result)
	}
	return result
}

// applyLocal replaces only the selected span inside the target paragraph.
// Everything outside the span, and every other paragraph, stays
// byte-identical.
func (c *Coordinator) applyLocal(ctx context.Context, req domain.EditRequest, res domain.Resolution) ([]int, error) {
	index := *req.ParagraphIndex
	p, err := c.store.ReadParagraph(ctx, req.SessionID, index)
	if err != nil {
		return nil, fmt.Errorf("read paragraph %d: %w", index, err)
	}

	spanStart := strings.Index(p.Text, req.SelectedText)
	if spanStart < 0 {
		// Selection no longer present (e.g. the edit already ran).
		return []int{}, nil
	}

	span := req.SelectedText
	var newSpan string
	switch res.Kind {
	case domain.MutationSpanRewrite:
		newSpan = res.NewValue
	case domain.MutationSubstitution:
		newSpan = strings.ReplaceAll(span, res.OldValue, res.NewValue)
	default:
		return []int{}, nil
	}
	if newSpan == span {
		return []int{}, nil
	}

	newText := p.Text[:spanStart] + newSpan + p.Text[spanStart+len(span):]
	if _, err := c.store.WriteParagraph(ctx, req.SessionID, index, newText, p.Version); err != nil {
		return nil, err
	}
	return []int{index}, nil
}

// applyGlobal performs a literal, case-preserving find-and-replace across
// every paragraph and records each index where a replacement occurred.
func (c *Coordinator) applyGlobal(ctx context.Context, req domain.EditRequest, res domain.Resolution) ([]int, error) {
	if res.Kind != domain.MutationSubstitution || res.OldValue == "" || res.OldValue == res.NewValue {
		return []int{}, nil
	}

	paragraphs, err := c.store.ListParagraphs(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list paragraphs: %w", err)
	}

	changed := []int{}
	for _, p := range paragraphs {
		newText := strings.ReplaceAll(p.Text, res.OldValue, res.NewValue)
		if newText == p.Text {
			continue
		}
		if _, err := c.store.WriteParagraph(ctx, req.SessionID, p.Index, newText, p.Version); err != nil {
			return changed, err
		}
		changed = append(changed, p.Index)
	}
	return changed, nil
}
