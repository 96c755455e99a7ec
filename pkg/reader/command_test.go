package reader

import (
	"testing"

	"tide.sh/pkg/term"
)

func TestLookupFindsBoundKey(t *testing.T) {
	table := DefaultBindings()
	cmd, ok := Lookup(table, term.K('a', term.Ctrl))
	if !ok || cmd != MoveHome {
		t.Fatalf("Lookup(Ctrl-A) = %v, %v, want MoveHome, true", cmd, ok)
	}
}

func TestLookupFallsBackToInsertSelf(t *testing.T) {
	table := DefaultBindings()
	cmd, ok := Lookup(table, term.K('x'))
	if !ok || cmd != InsertSelf {
		t.Fatalf("Lookup('x') = %v, %v, want InsertSelf, true", cmd, ok)
	}
}

func TestLookupRejectsUnboundModifiedKey(t *testing.T) {
	table := DefaultBindings()
	_, ok := Lookup(table, term.K('z', term.Alt))
	if ok {
		t.Fatalf("Lookup(Alt-z) should have no binding")
	}
}

func TestDefaultBindingsMapsEnterToExecute(t *testing.T) {
	table := DefaultBindings()
	if table[term.K('m', term.Ctrl)] != Execute {
		t.Fatalf("Ctrl-M (Enter) should map to Execute")
	}
}
