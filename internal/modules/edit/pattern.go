package edit

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

// PatternMatcher recognizes common instruction shapes without touching a
// model. Rules are ordered; the first match wins. An instruction matching
// no rule returns nil and the pipeline proceeds to AI.
type PatternMatcher struct {
	log *logger.Logger
}

func NewPatternMatcher(log *logger.Logger) *PatternMatcher {
	return &PatternMatcher{log: log.With("component", "PatternMatcher")}
}

var (
	reDirect    = regexp.MustCompile(`(?i)^\s*(?:cambiar|cambia|reemplazar|reemplaza|sustituir|sustituye)\s+(.+?)\s+por\s+(.+?)\s*$`)
	reDirectSel = regexp.MustCompile(`(?i)^\s*(?:cambiar|cambia|reemplazar|reemplaza|sustituir|sustituye)\s+por\s+(.+?)\s*$`)
	reAssign    = regexp.MustCompile(`(?i)^\s*(?:el\s+|la\s+|los\s+|las\s+|mi\s+|nuestro\s+|nuestra\s+)?(\p{L}[\p{L} ]*?)\s+es\s+(.+?)\s*$`)
	reInsert    = regexp.MustCompile(`(?i)^\s*(?:agregar|agrega|añadir|añade|insertar|inserta)\s+(.+?)(?:\s+(?:al|a\s+la|a\s+el|en\s+el|en\s+la)\s+\p{L}+)?\s*$`)
	reDate      = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reAmount    = regexp.MustCompile(`\$\s?\d[\d.,]*\d|\$\s?\d`)
)

// Match runs the rule list against the instruction. contextText is the
// target paragraph (local scope) or a document sample (global scope); some
// rules need it to locate the value being replaced.
func (m *PatternMatcher) Match(req domain.EditRequest, contextText string) *domain.Resolution {
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return nil
	}

	if res := m.matchDirect(req, instruction); res != nil {
		return res
	}
	if res := m.matchAssignment(instruction, contextText); res != nil {
		return res
	}
	if res := m.matchMorphological(req, instruction); res != nil {
		return res
	}
	if res := m.matchCanonical(instruction, contextText); res != nil {
		return res
	}
	return nil
}

// Rule 1: direct substitution, "cambiar <A> por <B>". With a selection the
// short form "cambiar por <B>" pairs the selection against <B>.
func (m *PatternMatcher) matchDirect(req domain.EditRequest, instruction string) *domain.Resolution {
	if g := reDirect.FindStringSubmatch(instruction); g != nil {
		oldValue := unquote(g[1])
		newValue := unquote(g[2])
		if oldValue == "" || newValue == "" {
			return nil
		}
		return &domain.Resolution{
			SourceTier: domain.TierPattern,
			Kind:       domain.MutationSubstitution,
			OldValue:   oldValue,
			NewValue:   newValue,
			Confidence: domain.ConfidenceHigh,
		}
	}
	if g := reDirectSel.FindStringSubmatch(instruction); g != nil && req.Scope == domain.ScopeLocal {
		newValue := unquote(g[1])
		if newValue == "" {
			return nil
		}
		return &domain.Resolution{
			SourceTier: domain.TierPattern,
			Kind:       domain.MutationSubstitution,
			OldValue:   req.SelectedText,
			NewValue:   newValue,
			Confidence: domain.ConfidenceHigh,
		}
	}
	return nil
}

// Rule 2: declarative assignment, "<field> es <value>". Only matches when
// the current value occupying the field is discoverable in context as a
// placeholder; otherwise the rule falls through.
func (m *PatternMatcher) matchAssignment(instruction, contextText string) *domain.Resolution {
	g := reAssign.FindStringSubmatch(instruction)
	if g == nil {
		return nil
	}
	field := strings.TrimSpace(g[1])
	value := unquote(g[2])
	if field == "" || value == "" {
		return nil
	}
	placeholder := findFieldPlaceholder(contextText, field)
	if placeholder == "" {
		return nil
	}
	return &domain.Resolution{
		SourceTier: domain.TierPattern,
		Kind:       domain.MutationSubstitution,
		OldValue:   placeholder,
		NewValue:   value,
		Confidence: domain.ConfidenceMedium,
	}
}

// findFieldPlaceholder looks for the conventional empty-field markers used
// by document templates: [CAMPO], «campo», or an underscore run next to
// the field label.
func findFieldPlaceholder(contextText, field string) string {
	if strings.TrimSpace(contextText) == "" {
		return ""
	}
	// Case-insensitive matching on the original string. Upper/lower
	// mapping can change byte lengths, so indexes computed on a folded
	// copy must never be used to slice the original.
	quoted := regexp.QuoteMeta(field)
	for _, pat := range []string{`(?i)\[` + quoted + `\]`, `(?i)«` + quoted + `»`} {
		re, err := regexp.Compile(pat)
		if err != nil {
			return ""
		}
		if m := re.FindString(contextText); m != "" {
			return m
		}
	}
	re, err := regexp.Compile(`(?i)` + quoted + `\s*:?\s*(_{3,})`)
	if err != nil {
		return ""
	}
	if g := re.FindStringSubmatch(contextText); g != nil {
		return g[1]
	}
	return ""
}

// Rule 3: morphological rewrites of the selection. Inherently local: they
// transform the selected span and nothing else.
func (m *PatternMatcher) matchMorphological(req domain.EditRequest, instruction string) *domain.Resolution {
	if req.Scope != domain.ScopeLocal || strings.TrimSpace(req.SelectedText) == "" {
		return nil
	}
	sel := req.SelectedText
	norm := domain.NormalizeInstruction(instruction)

	var rewritten string
	switch {
	case containsAny(norm, "plural"):
		rewritten = mapWords(sel, pluralizeWord)
	case containsAny(norm, "mayuscula inicial", "mayúscula inicial", "capitaliza", "capitalizar"):
		rewritten = mapWords(sel, titleWord)
	case containsAny(norm, "mayusculas", "mayúsculas"):
		rewritten = strings.ToUpper(sel)
	case containsAny(norm, "minusculas", "minúsculas"):
		rewritten = strings.ToLower(sel)
	case containsAny(norm, "femenino"):
		rewritten = mapWords(sel, toFeminine)
	case containsAny(norm, "masculino"):
		rewritten = mapWords(sel, toMasculine)
	case containsAny(norm, "pasado"):
		rewritten = toPastTense(sel)
	default:
		if g := reInsert.FindStringSubmatch(instruction); g != nil {
			rewritten = insertBeforeLastWord(sel, unquote(g[1]))
		}
	}

	if rewritten == "" || rewritten == sel {
		return nil
	}
	return &domain.Resolution{
		SourceTier: domain.TierPattern,
		Kind:       domain.MutationSpanRewrite,
		OldValue:   sel,
		NewValue:   rewritten,
		Confidence: domain.ConfidenceHigh,
	}
}

// Rule 4: canonical value normalization. A date- or amount-shaped literal
// in the instruction becomes the target; the first differing token of the
// same shape in context is the value to replace.
func (m *PatternMatcher) matchCanonical(instruction, contextText string) *domain.Resolution {
	norm := domain.NormalizeInstruction(instruction)
	if !containsAny(norm, "fecha", "importe", "monto", "moneda") {
		return nil
	}
	for _, re := range []*regexp.Regexp{reDate, reAmount} {
		target := re.FindString(instruction)
		if target == "" {
			continue
		}
		for _, found := range re.FindAllString(contextText, -1) {
			if found != target {
				return &domain.Resolution{
					SourceTier: domain.TierPattern,
					Kind:       domain.MutationSubstitution,
					OldValue:   found,
					NewValue:   target,
					Confidence: domain.ConfidenceMedium,
				}
			}
		}
	}
	return nil
}

// ---------------- helpers ----------------

func unquote(s string) string {
	s = strings.TrimSpace(s)
	for _, pair := range [][2]string{{`"`, `"`}, {`'`, `'`}, {"«", "»"}, {"“", "”"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) && len(s) > len(pair[0])+len(pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func mapWords(s string, f func(string) string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = f(w)
	}
	return strings.Join(words, " ")
}

func pluralizeWord(w string) string {
	if w == "" {
		return w
	}
	lower := strings.ToLower(w)
	switch {
	case strings.HasSuffix(lower, "z"):
		return w[:len(w)-1] + "ces"
	case strings.HasSuffix(lower, "s"):
		return w
	case endsInVowel(lower):
		return w + "s"
	default:
		return w + "es"
	}
}

func endsInVowel(w string) bool {
	runes := []rune(w)
	if len(runes) == 0 {
		return false
	}
	return strings.ContainsRune("aeiouáéíóú", runes[len(runes)-1])
}

func titleWord(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func toFeminine(w string) string {
	switch {
	case strings.HasSuffix(w, "os"):
		return w[:len(w)-2] + "as"
	case strings.HasSuffix(w, "o"):
		return w[:len(w)-1] + "a"
	default:
		return w
	}
}

func toMasculine(w string) string {
	switch {
	case strings.HasSuffix(w, "as"):
		return w[:len(w)-2] + "os"
	case strings.HasSuffix(w, "a"):
		return w[:len(w)-1] + "o"
	default:
		return w
	}
}

// toPastTense handles regular present-tense endings only; anything else
// falls through to AI.
func toPastTense(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	last := words[len(words)-1]
	var converted string
	switch {
	case strings.HasSuffix(last, "an"):
		converted = last[:len(last)-2] + "aron"
	case strings.HasSuffix(last, "en"):
		converted = last[:len(last)-2] + "ieron"
	case strings.HasSuffix(last, "a"):
		converted = last[:len(last)-1] + "ó"
	case strings.HasSuffix(last, "e"):
		converted = last[:len(last)-1] + "ió"
	default:
		return ""
	}
	words[len(words)-1] = converted
	return strings.Join(words, " ")
}

// insertBeforeLastWord places token before the final word of the selection
// ("agregar Gustavo al nombre" over "Gino Gentile" -> "Gino Gustavo
// Gentile").
func insertBeforeLastWord(sel, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	words := strings.Fields(sel)
	if len(words) < 2 {
		return strings.TrimSpace(sel + " " + token)
	}
	out := make([]string, 0, len(words)+1)
	out = append(out, words[:len(words)-1]...)
	out = append(out, token, words[len(words)-1])
	return strings.Join(out, " ")
}
