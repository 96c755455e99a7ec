package reader

import "testing"

func TestClassifyComplete(t *testing.T) {
	state, _ := Classify("echo hi")
	if state != StateComplete {
		t.Fatalf("Classify(%q) = %v, want StateComplete", "echo hi", state)
	}
}

func TestClassifyUnterminatedQuoteIsIncomplete(t *testing.T) {
	state, _ := Classify(`echo "hi`)
	if state != StateIncomplete {
		t.Fatalf("Classify(unterminated quote) = %v, want StateIncomplete", state)
	}
}

func TestClassifyTrailingOddBackslashForcesIncomplete(t *testing.T) {
	state, _ := Classify(`echo hi\`)
	if state != StateIncomplete {
		t.Fatalf("Classify(trailing single backslash) = %v, want StateIncomplete", state)
	}
}

func TestClassifyTrailingEvenBackslashesDoNotForceIncomplete(t *testing.T) {
	state, _ := Classify(`echo hi\\`)
	if state != StateComplete {
		t.Fatalf("Classify(trailing double backslash) = %v, want StateComplete", state)
	}
}
