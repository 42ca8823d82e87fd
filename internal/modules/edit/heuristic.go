package edit

import (
	"regexp"
	"strings"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

// Heuristic is the last resort: it always returns a resolution so an edit
// request always produces some outcome. It never errors; when no plausible
// replacement token exists it degrades to an explicit no-op.
type Heuristic struct {
	log *logger.Logger
}

func NewHeuristic(log *logger.Logger) *Heuristic {
	return &Heuristic{log: log.With("component", "Heuristic")}
}

// Connector words that tend to precede the value the user wants. Ordered;
// the last occurrence in the instruction wins so trailing operands beat
// leading verbs.
var connectors = []string{" por ", " a ", " es ", " usar ", " con ", ": "}

var (
	reQuoted  = regexp.MustCompile(`"([^"]+)"|'([^']+)'|«([^»]+)»`)
	reCapsTok = regexp.MustCompile(`\b\p{Lu}[\p{Lu}\p{N}.&\- ]{3,}\b`)
)

func (h *Heuristic) Resolve(req domain.EditRequest, contextText string) domain.Resolution {
	newValue := extractTrailingSegment(req.Instruction)

	if req.Scope == domain.ScopeLocal {
		if newValue == "" || newValue == req.SelectedText {
			// True no-op: the span maps to itself, nothing changes.
			return h.noop(req.SelectedText)
		}
		return domain.Resolution{
			SourceTier: domain.TierHeuristic,
			Kind:       domain.MutationSpanRewrite,
			OldValue:   req.SelectedText,
			NewValue:   newValue,
			Confidence: domain.ConfidenceLow,
		}
	}

	oldValue := extractProminentToken(contextText)
	if newValue == "" || oldValue == "" || oldValue == newValue {
		if oldValue != "" {
			// Self-substitution: applies cleanly and changes nothing.
			return domain.Resolution{
				SourceTier: domain.TierHeuristic,
				Kind:       domain.MutationSubstitution,
				OldValue:   oldValue,
				NewValue:   oldValue,
				Confidence: domain.ConfidenceLow,
			}
		}
		return h.noop(strings.TrimSpace(req.Instruction))
	}
	return domain.Resolution{
		SourceTier: domain.TierHeuristic,
		Kind:       domain.MutationSubstitution,
		OldValue:   oldValue,
		NewValue:   newValue,
		Confidence: domain.ConfidenceLow,
	}
}

func (h *Heuristic) noop(span string) domain.Resolution {
	if span == "" {
		span = " "
	}
	return domain.Resolution{
		SourceTier: domain.TierHeuristic,
		Kind:       domain.MutationSpanRewrite,
		OldValue:   span,
		NewValue:   span,
		Confidence: domain.ConfidenceLow,
	}
}

// extractTrailingSegment takes the text after the last connector word,
// preferring a quoted literal anywhere in the instruction.
func extractTrailingSegment(instruction string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return ""
	}
	if g := reQuoted.FindStringSubmatch(instruction); g != nil {
		for _, group := range g[1:] {
			if group != "" {
				return strings.TrimSpace(group)
			}
		}
	}

	best := -1
	bestLen := 0
	lower := strings.ToLower(instruction)
	for _, conn := range connectors {
		if idx := strings.LastIndex(lower, conn); idx > best {
			best = idx
			bestLen = len(conn)
		}
	}
	if best < 0 {
		return ""
	}
	segment := strings.TrimSpace(instruction[best+bestLen:])
	segment = strings.TrimRight(segment, ".,;")
	return segment
}

// extractProminentToken finds the most plausible replacement target in a
// document sample: the longest quoted literal, else the longest
// capitalized run (names, company names, defined terms).
func extractProminentToken(contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return ""
	}
	longest := ""
	for _, g := range reQuoted.FindAllStringSubmatch(contextText, -1) {
		for _, group := range g[1:] {
			if len(group) > len(longest) {
				longest = group
			}
		}
	}
	if longest != "" {
		return strings.TrimSpace(longest)
	}
	for _, tok := range reCapsTok.FindAllString(contextText, -1) {
		tok = strings.TrimSpace(tok)
		if len(tok) > len(longest) {
			longest = tok
		}
	}
	return longest
}
