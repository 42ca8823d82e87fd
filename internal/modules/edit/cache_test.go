package edit

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/domain"
)

func cacheKey(instruction string) domain.ResolutionKey {
	return domain.ResolutionKey{
		Scope:       domain.ScopeGlobal,
		Selector:    "*",
		Instruction: domain.NormalizeInstruction(instruction),
	}
}

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	sessionID := uuid.New()
	key := cacheKey("cambiar A por B")

	if _, ok := c.Get(ctx, sessionID, key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	want := domain.Resolution{
		SourceTier: domain.TierPattern,
		Kind:       domain.MutationSubstitution,
		OldValue:   "A",
		NewValue:   "B",
		Confidence: domain.ConfidenceHigh,
	}
	c.Put(ctx, sessionID, key, want)

	got, ok := c.Get(ctx, sessionID, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}

	// A different session must not see the entry.
	if _, ok := c.Get(ctx, uuid.New(), key); ok {
		t.Fatal("entry leaked across sessions")
	}
}

func TestMemoryCacheEntriesImmutable(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	sessionID := uuid.New()
	key := cacheKey("cambiar A por B")

	first := domain.Resolution{Kind: domain.MutationSubstitution, OldValue: "A", NewValue: "B"}
	c.Put(ctx, sessionID, key, first)
	c.Put(ctx, sessionID, key, domain.Resolution{Kind: domain.MutationSubstitution, OldValue: "A", NewValue: "C"})

	got, ok := c.Get(ctx, sessionID, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.NewValue != "B" {
		t.Fatalf("entry was overwritten: %+v", got)
	}
}

func TestMemoryCacheClearSession(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()
	sessionID := uuid.New()
	key := cacheKey("cambiar A por B")

	c.Put(ctx, sessionID, key, domain.Resolution{Kind: domain.MutationSubstitution, OldValue: "A", NewValue: "B"})
	if err := c.ClearSession(ctx, sessionID); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, ok := c.Get(ctx, sessionID, key); ok {
		t.Fatal("entry survived ClearSession")
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	c := NewMemoryCache(3)
	ctx := context.Background()
	sessionID := uuid.New()

	for i := 0; i < 4; i++ {
		key := cacheKey(fmt.Sprintf("instruction %d", i))
		c.Put(ctx, sessionID, key, domain.Resolution{Kind: domain.MutationSubstitution, OldValue: "A", NewValue: fmt.Sprintf("B%d", i)})
	}

	if _, ok := c.Get(ctx, sessionID, cacheKey("instruction 0")); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(ctx, sessionID, cacheKey(fmt.Sprintf("instruction %d", i))); !ok {
			t.Fatalf("entry %d missing", i)
		}
	}
}
