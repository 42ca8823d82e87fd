package promptstyle

import "strings"

const marker = "ESCRIBA_PROMPT_STYLE_V1"

// ApplySystem prepends a concise guidance block to system prompts. It is
// intentionally minimal to avoid changing task semantics.
func ApplySystem(system string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful assistant for Escriba, a legal document editor.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nIf an output format or schema is specified, output only that format.")
	b.WriteString("\nDo not add analysis or extra commentary.")
	b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
