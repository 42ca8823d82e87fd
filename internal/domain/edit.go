package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// EditScope says whether an instruction targets one selected span or the
// whole document.
type EditScope string

const (
	ScopeLocal  EditScope = "local"
	ScopeGlobal EditScope = "global"
)

// SourceTier records which resolver produced a mutation.
type SourceTier string

const (
	TierCache      SourceTier = "cache"
	TierPattern    SourceTier = "pattern"
	TierPrimaryAI  SourceTier = "primary_ai"
	TierFallbackAI SourceTier = "fallback_ai"
	TierHeuristic  SourceTier = "heuristic"
)

// MutationKind is the shape of a resolved mutation, independent of how it
// was derived.
type MutationKind string

const (
	MutationSubstitution MutationKind = "substitution"
	MutationSpanRewrite  MutationKind = "span_rewrite"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ErrorKind is the request-level failure taxonomy. Tier timeouts and parse
// failures are absorbed by fallthrough and never appear here.
type ErrorKind string

const (
	ErrorNone          ErrorKind = ""
	ErrorInvalidScope  ErrorKind = "invalid_scope"
	ErrorStoreConflict ErrorKind = "store_conflict"
	ErrorCanceled      ErrorKind = "canceled"
)

// EditRequest is one natural-language editing instruction scoped to a
// selected span or to the whole document. SelectedText and ParagraphIndex
// are present iff Scope is local.
type EditRequest struct {
	SessionID      uuid.UUID `json:"session_id"`
	Scope          EditScope `json:"scope"`
	Instruction    string    `json:"instruction"`
	SelectedText   string    `json:"selected_text,omitempty"`
	ParagraphIndex *int      `json:"paragraph_index,omitempty"`
}

// Validate enforces the scope invariants up front.
func (r EditRequest) Validate() ErrorKind {
	if r.SessionID == uuid.Nil || strings.TrimSpace(r.Instruction) == "" {
		return ErrorInvalidScope
	}
	switch r.Scope {
	case ScopeLocal:
		if strings.TrimSpace(r.SelectedText) == "" || r.ParagraphIndex == nil || *r.ParagraphIndex < 0 {
			return ErrorInvalidScope
		}
	case ScopeGlobal:
		if r.SelectedText != "" || r.ParagraphIndex != nil {
			return ErrorInvalidScope
		}
	default:
		return ErrorInvalidScope
	}
	return ErrorNone
}

// Resolution is a resolved mutation. For a substitution, OldValue/NewValue
// are the literal pair applied wherever OldValue matches. For a span
// rewrite, OldValue is the original span and NewValue its replacement.
type Resolution struct {
	SourceTier SourceTier   `json:"source_tier"`
	Kind       MutationKind `json:"kind"`
	OldValue   string       `json:"old_value"`
	NewValue   string       `json:"new_value"`
	Confidence Confidence   `json:"confidence"`
}

// EditResult is the outcome surfaced to the caller. Confidence rides on the
// resolution so the UI can flag low-confidence and no-op outcomes.
type EditResult struct {
	Success           bool       `json:"success"`
	ParagraphsChanged []int      `json:"paragraphs_changed"`
	Resolution        Resolution `json:"resolution"`
	ErrorKind         ErrorKind  `json:"error,omitempty"`
}

// ResolutionKey identifies a resolution in the cache. Selector is the
// selected text for local scope and "*" for global. The instruction is
// normalized so semantically identical instructions collide.
type ResolutionKey struct {
	Scope       EditScope
	Selector    string
	Instruction string
}

func NewResolutionKey(req EditRequest) ResolutionKey {
	selector := "*"
	if req.Scope == ScopeLocal {
		selector = req.SelectedText
	}
	return ResolutionKey{
		Scope:       req.Scope,
		Selector:    selector,
		Instruction: NormalizeInstruction(req.Instruction),
	}
}

// Hash returns a stable short digest used as the cache field name.
func (k ResolutionKey) Hash() string {
	h := sha256.New()
	_, _ = h.Write([]byte(string(k.Scope)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.Selector))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.Instruction))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NormalizeInstruction lower-cases and collapses whitespace.
func NormalizeInstruction(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
