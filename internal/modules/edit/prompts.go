package edit

import (
	"strings"

	"github.com/escriba-legal/escriba-backend/internal/domain"
)

func promptResolveEdit(req domain.EditRequest, contextText string) (system string, user string) {
	system = `You resolve natural-language editing instructions for a legal document into a single minimal mutation.
Return ONLY JSON matching the schema. Never rewrite prose beyond the mutation.
For kind "substitution": old_value is a literal string that occurs in the document, new_value its replacement.
For kind "span_rewrite": old_value is the selected span exactly as given, new_value the rewritten span.
Preserve casing, punctuation and legal terminology. Instructions are usually Spanish.`

	var b strings.Builder
	b.WriteString("Instruction:\n" + strings.TrimSpace(req.Instruction) + "\n\n")
	if req.Scope == domain.ScopeLocal {
		b.WriteString("Selected span (edit applies to this span only):\n" + req.SelectedText + "\n\n")
		b.WriteString("Paragraph containing the span:\n" + contextText + "\n\n")
		b.WriteString("Task: produce the mutation for the selected span. Prefer span_rewrite unless the instruction names a literal pair.")
	} else {
		b.WriteString("Document excerpt (representative, not complete):\n" + contextText + "\n\n")
		b.WriteString("Task: reduce the instruction to one literal substitution pair that applies across the whole document. Use kind \"substitution\".")
	}
	return system, b.String()
}

func schemaResolveEdit() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind": map[string]any{
				"type": "string",
				"enum": []any{"substitution", "span_rewrite"},
			},
			"old_value": map[string]any{"type": "string"},
			"new_value": map[string]any{"type": "string"},
		},
		"required":             []any{"kind", "old_value", "new_value"},
		"additionalProperties": false,
	}
}
