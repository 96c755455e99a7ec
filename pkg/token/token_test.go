package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func concatLen(toks []Token) int {
	n := 0
	for _, t := range toks {
		if t.Type == TERMINATE {
			continue
		}
		n += t.SourceLength
	}
	return n
}

func TestRoundTripCoversEveryByte(t *testing.T) {
	cases := []string{
		"ls /tmp",
		"echo 'a b' | grep c",
		"echo hi > out.txt 2>> err.txt",
		"# a comment\necho hi",
		"echo hi   ",
		"   echo hi",
	}
	for _, s := range cases {
		toks := Tokenize(s, Config{ShowComments: true})
		if got, want := concatLen(toks), len([]rune(s)); got != want {
			t.Errorf("Tokenize(%q): covered %d runes, want %d (%v)", s, got, want, toks)
		}
	}
}

func TestRedirectionKinds(t *testing.T) {
	toks := Tokenize("cmd < in.txt > out.txt >> app.txt >| clob.txt 2<&1", Config{})
	var kinds []Type
	for _, tok := range toks {
		if tok.Type != STRING && tok.Type != TERMINATE {
			kinds = append(kinds, tok.Type)
		}
	}
	want := []Type{REDIRECT_IN, REDIRECT_OUT, REDIRECT_APPEND, REDIRECT_NOCLOB, REDIRECT_FD}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("redirection kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestUnterminatedQuoteError(t *testing.T) {
	toks := Tokenize(`echo "hi`, Config{})
	var found bool
	for _, tok := range toks {
		if tok.Type == ERROR && tok.ErrorKind == UnterminatedQuote {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unterminated-quote error token, got %v", toks)
	}
}

func TestUnterminatedBraceError(t *testing.T) {
	toks := Tokenize(`echo {a,b`, Config{})
	var found bool
	for _, tok := range toks {
		if tok.Type == ERROR && tok.ErrorKind == UnterminatedBrace {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unterminated-brace error token, got %v", toks)
	}
}

func TestAcceptUnfinishedSquashesQuoteError(t *testing.T) {
	toks := Tokenize(`echo "hi`, Config{AcceptUnfinished: true})
	for _, tok := range toks {
		if tok.Type == ERROR {
			t.Fatalf("AcceptUnfinished should not produce an ERROR token, got %v", toks)
		}
	}
}

func TestCommentsDroppedByDefault(t *testing.T) {
	toks := Tokenize("# hi\necho hi", Config{})
	for _, tok := range toks {
		if tok.Type == COMMENT {
			t.Fatalf("COMMENT should be dropped when ShowComments is false")
		}
	}
}

func TestSingleQuoteOnlyEscapesQuoteAndBackslash(t *testing.T) {
	toks := Tokenize(`'a\nb'`, Config{})
	if len(toks) < 1 || toks[0].Type != STRING {
		t.Fatalf("expected a single STRING token, got %v", toks)
	}
	if toks[0].Text != `'a\nb'` {
		t.Fatalf("Text = %q, want the literal source since \\n is not an escape in single quotes", toks[0].Text)
	}
}

func TestPipeAndBackgroundAndEnd(t *testing.T) {
	toks := Tokenize("a | b & c ; d", Config{})
	var types []Type
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	wantContains := []Type{PIPE, BACKGROUND, END}
	for _, w := range wantContains {
		ok := false
		for _, got := range types {
			if got == w {
				ok = true
			}
		}
		if !ok {
			t.Errorf("expected a %v token among %v", w, types)
		}
	}
}
