package edit

import (
	"testing"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func intPtr(i int) *int { return &i }

func localReq(instruction, selected string) domain.EditRequest {
	return domain.EditRequest{
		SessionID:      uuid.New(),
		Scope:          domain.ScopeLocal,
		Instruction:    instruction,
		SelectedText:   selected,
		ParagraphIndex: intPtr(0),
	}
}

func globalReq(instruction string) domain.EditRequest {
	return domain.EditRequest{
		SessionID:   uuid.New(),
		Scope:       domain.ScopeGlobal,
		Instruction: instruction,
	}
}

func TestPatternDirectSubstitution(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	res := m.Match(globalReq(`cambiar "Gino Gentile" por "Juan Pérez"`), "")
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.Kind != domain.MutationSubstitution {
		t.Fatalf("kind = %q, want substitution", res.Kind)
	}
	if res.OldValue != "Gino Gentile" || res.NewValue != "Juan Pérez" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}
	if res.SourceTier != domain.TierPattern || res.Confidence != domain.ConfidenceHigh {
		t.Fatalf("tier=%q confidence=%q", res.SourceTier, res.Confidence)
	}
}

func TestPatternDirectShortFormUsesSelection(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	res := m.Match(localReq("cambiar por arrendatario", "inquilino"), "El inquilino paga.")
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.OldValue != "inquilino" || res.NewValue != "arrendatario" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}

	// The short form is meaningless without a selection.
	if res := m.Match(globalReq("cambiar por arrendatario"), ""); res != nil {
		t.Fatalf("global short form matched: %+v", res)
	}
}

func TestPatternAssignmentNeedsPlaceholder(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))
	req := globalReq("el arrendador es Juan Pérez")

	res := m.Match(req, "Entre [ARRENDADOR], en adelante el locador...")
	if res == nil {
		t.Fatal("expected a match against the bracketed placeholder")
	}
	if res.OldValue != "[ARRENDADOR]" || res.NewValue != "Juan Pérez" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}
	if res.Confidence != domain.ConfidenceMedium {
		t.Fatalf("confidence = %q", res.Confidence)
	}

	// Without a discoverable placeholder the rule must fall through so a
	// smarter tier can locate the current value.
	if res := m.Match(req, "Entre Pedro Gómez, en adelante el locador..."); res != nil {
		t.Fatalf("matched without placeholder: %+v", res)
	}
}

func TestPatternAssignmentPlaceholderCaseFolding(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	// "ﬁ" grows a byte when upper-cased; the placeholder after it must
	// still come back intact.
	contextText := "La ﬁrma solicitante completa: la empresa es [EMPRESA]."
	res := m.Match(globalReq("la empresa es ACME Construcciones S.A."), contextText)
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.OldValue != "[EMPRESA]" || res.NewValue != "ACME Construcciones S.A." {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}

	// Mixed-case placeholders still count.
	res = m.Match(globalReq("el arrendador es Juan Pérez"), "Entre «Arrendador», en adelante...")
	if res == nil || res.OldValue != "«Arrendador»" {
		t.Fatalf("res = %+v", res)
	}
}

func TestPatternAssignmentUnderscoreRun(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	res := m.Match(globalReq("el domicilio es Av. Callao 1234"), "Domicilio: _____ de la ciudad")
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.OldValue != "_____" || res.NewValue != "Av. Callao 1234" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}
}

func TestPatternMorphological(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	cases := []struct {
		name        string
		instruction string
		selected    string
		want        string
	}{
		{"plural", "poner en plural", "documento", "documentos"},
		{"plural z", "poner en plural", "juez", "jueces"},
		{"capitalize", "capitalizar", "juan pérez", "Juan Pérez"},
		{"uppercase", "poner en mayúsculas", "el locador", "EL LOCADOR"},
		{"lowercase", "poner en minúsculas", "EL LOCADOR", "el locador"},
		{"feminine", "cambiar a femenino", "el abogado", "el abogada"},
		{"past", "cambiar a pasado", "las partes firman", "las partes firmaron"},
		{"insert", "agregar Gustavo al nombre", "Gino Gentile", "Gino Gustavo Gentile"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := m.Match(localReq(tc.instruction, tc.selected), tc.selected)
			if res == nil {
				t.Fatalf("no match for %q", tc.instruction)
			}
			if res.Kind != domain.MutationSpanRewrite {
				t.Fatalf("kind = %q, want span_rewrite", res.Kind)
			}
			if res.OldValue != tc.selected || res.NewValue != tc.want {
				t.Fatalf("rewrite = %q -> %q, want -> %q", res.OldValue, res.NewValue, tc.want)
			}
		})
	}
}

func TestPatternMorphologicalRequiresSelection(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))
	if res := m.Match(globalReq("poner en plural"), "documento firmado"); res != nil {
		t.Fatalf("morphological rule matched a global request: %+v", res)
	}
}

func TestPatternMorphologicalIrregularFallsThrough(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))
	// "crisis" keeps its form; an unchanged rewrite is not a match.
	if res := m.Match(localReq("poner en plural", "crisis"), "crisis"); res != nil {
		t.Fatalf("expected fallthrough, got %+v", res)
	}
}

func TestPatternCanonicalDate(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	res := m.Match(globalReq("corregir la fecha a 01/02/2026"), "Firmado el 15/03/2025 en Buenos Aires.")
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.OldValue != "15/03/2025" || res.NewValue != "01/02/2026" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}
}

func TestPatternCanonicalAmount(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))

	res := m.Match(globalReq("actualizar el monto a $150.000"), "El importe mensual es de $120.000 pagadero...")
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.OldValue != "$120.000" || res.NewValue != "$150.000" {
		t.Fatalf("pair = %q -> %q", res.OldValue, res.NewValue)
	}
}

func TestPatternNoMatch(t *testing.T) {
	m := NewPatternMatcher(testLogger(t))
	if res := m.Match(globalReq("hacer el tono más formal"), "El contrato dice cosas."); res != nil {
		t.Fatalf("expected nil, got %+v", res)
	}
}
