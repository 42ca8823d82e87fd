package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestEditRequestValidate(t *testing.T) {
	sessionID := uuid.New()
	index := 0

	cases := []struct {
		name string
		req  EditRequest
		want ErrorKind
	}{
		{
			"valid local",
			EditRequest{SessionID: sessionID, Scope: ScopeLocal, Instruction: "cambiar", SelectedText: "x", ParagraphIndex: &index},
			ErrorNone,
		},
		{
			"valid global",
			EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "cambiar"},
			ErrorNone,
		},
		{
			"local without selection",
			EditRequest{SessionID: sessionID, Scope: ScopeLocal, Instruction: "cambiar", ParagraphIndex: &index},
			ErrorInvalidScope,
		},
		{
			"local without paragraph index",
			EditRequest{SessionID: sessionID, Scope: ScopeLocal, Instruction: "cambiar", SelectedText: "x"},
			ErrorInvalidScope,
		},
		{
			"global with selection",
			EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "cambiar", SelectedText: "x"},
			ErrorInvalidScope,
		},
		{
			"global with paragraph index",
			EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "cambiar", ParagraphIndex: &index},
			ErrorInvalidScope,
		},
		{
			"missing instruction",
			EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "   "},
			ErrorInvalidScope,
		},
		{
			"missing session",
			EditRequest{Scope: ScopeGlobal, Instruction: "cambiar"},
			ErrorInvalidScope,
		},
		{
			"unknown scope",
			EditRequest{SessionID: sessionID, Scope: "paragraph", Instruction: "cambiar"},
			ErrorInvalidScope,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.req.Validate(); got != tc.want {
				t.Fatalf("Validate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolutionKeyNormalization(t *testing.T) {
	sessionID := uuid.New()
	a := NewResolutionKey(EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "Cambiar  A por  B"})
	b := NewResolutionKey(EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: " cambiar a POR b "})
	if a != b {
		t.Fatalf("keys differ: %+v vs %+v", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Fatal("hashes differ for normalized-equal keys")
	}
	if a.Selector != "*" {
		t.Fatalf("global selector = %q", a.Selector)
	}
}

func TestResolutionKeyScopeDiscrimination(t *testing.T) {
	sessionID := uuid.New()
	index := 0
	local := NewResolutionKey(EditRequest{
		SessionID: sessionID, Scope: ScopeLocal, Instruction: "cambiar a por b",
		SelectedText: "a", ParagraphIndex: &index,
	})
	global := NewResolutionKey(EditRequest{SessionID: sessionID, Scope: ScopeGlobal, Instruction: "cambiar a por b"})
	if local.Hash() == global.Hash() {
		t.Fatal("local and global keys must not collide")
	}
}
