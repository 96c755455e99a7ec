package reader

import (
	"tide.sh/pkg/token"
)

// State is the syntactic completeness of a buffer's contents, per
// spec.md §4.12's Execute semantics.
type State int

const (
	StateComplete State = iota
	StateIncomplete
	StateSyntaxError
)

// Classify determines whether text is ready to execute. A trailing odd
// number of backslashes always forces Incomplete, regardless of what the
// tokenizer itself reports, per spec.md §4.12's explicit override.
func Classify(text string) (State, []token.Token) {
	if trailingBackslashesOdd(text) {
		return StateIncomplete, nil
	}
	toks := token.Tokenize(text, token.Config{})
	for _, t := range toks {
		if t.Type != token.ERROR {
			continue
		}
		switch t.ErrorKind {
		case token.UnterminatedQuote, token.UnterminatedBrace, token.UnterminatedCmdsubst:
			return StateIncomplete, toks
		default:
			return StateSyntaxError, toks
		}
	}
	return StateComplete, toks
}

func trailingBackslashesOdd(text string) bool {
	n := 0
	for i := len(text) - 1; i >= 0 && text[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
