// Package highlight implements C4: the multi-pass syntax highlighter. The
// pass pipeline and its async caching are grounded in the teacher's
// pkg/edit/highlight (highlight.go's pass structure, highlighter.go's
// cache-and-late-callback pattern); the passes themselves implement the
// command/parameter/redirection/path/bracket rules this spec defines
// instead of elvish's own grammar-driven highlighting.
package highlight

import (
	"strings"

	"tide.sh/pkg/buffer"
	"tide.sh/pkg/extent"
	"tide.sh/pkg/token"
)

// Issue is a single highlighter-reported problem, consumed by the reader to
// show a one-line description below the prompt per spec.md §7.
type Issue struct {
	Range extent.Range
	Kind  string
}

// Env is the read-only environment snapshot the highlighter consults. It is
// immutable by convention so the highlighter, which the concurrency model
// runs off the UI thread, never races the interactive variable map.
type Env struct {
	Vars map[string]string
}

func (e Env) Path() []string {
	p := e.Vars["PATH"]
	if p == "" {
		return nil
	}
	return strings.Split(p, ":")
}

// Resolver answers the filesystem and registry questions pass 2 and pass 5
// need. A real reader backs this with C8/C9 and os.Stat; tests supply a
// fake.
type Resolver interface {
	IsKeyword(name string) bool
	IsFunction(name string) bool
	IsBuiltin(name string) bool
	LookPath(name string, path []string) bool
	Stat(cwd, path string) (isDir bool, exists bool)
}

var redirectTypes = map[token.Type]bool{
	token.REDIRECT_IN:     true,
	token.REDIRECT_OUT:    true,
	token.REDIRECT_APPEND: true,
	token.REDIRECT_NOCLOB: true,
	token.REDIRECT_FD:     true,
}

// Highlight runs all seven passes over buf, writing into buf's colour array
// in place and returning the issues found. cursor and cwd drive the
// cursor-relative overlays (passes 5 and 6).
func Highlight(buf *buffer.Buffer, cursor int, env Env, cwd string, res Resolver) []Issue {
	runes := buf.Runes()
	n := len(runes)

	// Pass 1: sentinel init.
	for i := 0; i <= n; i++ {
		buf.SetColorAt(i, buffer.Uncolored)
	}

	src := string(runes)
	var issues []Issue

	// Pass 2 + 3: token pass with command-substitution recursion.
	highlightRange(buf, src, 0, n, env, cwd, res, &issues)

	// Pass 4: fill-forward.
	prev := buffer.Normal
	for i := 0; i <= n; i++ {
		c := buf.ColorAt(i)
		if c == buffer.Uncolored {
			buf.SetColorAt(i, prev)
		} else {
			prev = c.Role()
		}
	}

	// Pass 5: path overlay for the token under the cursor.
	tr := extent.TokenExtent(src, cursor)
	if !tr.Empty() {
		tokenText := src[tr.Start:tr.End]
		isDir, exists := res.Stat(cwd, tokenText)
		valid := exists || (strings.HasSuffix(tokenText, "/") && isDir)
		if valid {
			for i := tr.Start; i < tr.End; i++ {
				if buf.ColorAt(i).Role() != buffer.ErrorColor {
					buf.SetColorAt(i, buf.ColorAt(i)|buffer.ValidPath)
				}
			}
		}
	}

	// Pass 6: bracket/quote match overlay relative to the cursor.
	highlightMatch(buf, runes, cursor)

	// Pass 7: whitespace forcing.
	for i, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' {
			buf.SetColorAt(i, buffer.Normal)
		}
	}

	return issues
}

// highlightRange runs passes 2-3 over runes[start:end] (absolute offsets
// into the full buffer), recursing into every (...) located within via
// extent.LocateCmdsubst before classifying its own tokens, so inner
// substitutions are painted before the outer command line that contains
// them.
func highlightRange(buf *buffer.Buffer, src string, start, end int, env Env, cwd string, res Resolver, issues *[]Issue) {
	region := src[start:end]
	for _, sub := range extent.LocateCmdsubst(region, true) {
		innerStart := start + sub.Range.Start + 1
		innerEnd := start + sub.Range.End - 1
		if sub.Unfinished {
			innerEnd = start + sub.Range.End
		}
		if innerEnd > innerStart {
			highlightRange(buf, src, innerStart, innerEnd, env, cwd, res, issues)
		}
		if !sub.Unfinished {
			closeAt := start + sub.Range.End - 1
			buf.SetColorAt(closeAt, buffer.Operator)
		}
	}

	toks := token.Tokenize(region, token.Config{AcceptUnfinished: true, SquashErrors: true, ShowComments: true})
	atCommandPosition := true
	nextIsCdTarget := false
	haveRedirectTarget := false
	var pendingRedirect token.Type
	lookupPrefix := ""
	for _, tok := range toks {
		s := start + tok.SourceStart
		e := s + tok.SourceLength
		if tok.Type == token.STRING && !withinParen(region, tok.SourceStart) {
			if haveRedirectTarget {
				classifyRedirectTarget(buf, tok.Text, s, e, cwd, res, pendingRedirect, issues)
				haveRedirectTarget = false
				continue
			}
			classifyString(buf, tok.Text, s, e, env, res, atCommandPosition, lookupPrefix, nextIsCdTarget, issues)
			if atCommandPosition {
				switch tok.Text {
				case "builtin", "command":
					lookupPrefix = tok.Text
					continue
				case "cd":
					nextIsCdTarget = true
					atCommandPosition = false
					continue
				}
				atCommandPosition = false
				nextIsCdTarget = false
			} else if nextIsCdTarget {
				nextIsCdTarget = false
			}
			lookupPrefix = ""
			continue
		}
		switch tok.Type {
		case token.PIPE, token.BACKGROUND, token.END:
			paintRange(buf, s, e, buffer.End)
			atCommandPosition = true
			nextIsCdTarget = false
			haveRedirectTarget = false
			lookupPrefix = ""
		case token.COMMENT:
			paintRange(buf, s, e, buffer.CommentColor)
		case token.ERROR:
			paintRange(buf, s, e, buffer.ErrorColor)
			*issues = append(*issues, Issue{Range: extent.Range{Start: s, End: e}, Kind: string(tok.ErrorKind)})
		default:
			if redirectTypes[tok.Type] {
				paintRange(buf, s, e, buffer.Redirection)
				haveRedirectTarget = true
				pendingRedirect = tok.Type
			}
		}
	}
}

// withinParen reports whether offset (relative to the region passed to
// highlightRange) sits inside an already-recursed-into command
// substitution; such text was already painted by the recursive call and
// must not be reclassified by the enclosing pass.
func withinParen(region string, offset int) bool {
	depth := 0
	for i, r := range region {
		if i >= offset {
			break
		}
		if r == '(' {
			depth++
		} else if r == ')' && depth > 0 {
			depth--
		}
	}
	return depth > 0
}

func classifyString(buf *buffer.Buffer, text string, s, e int, env Env, res Resolver, commandPos bool, prefix string, cdTarget bool, issues *[]Issue) {
	if cdTarget {
		isDir, exists := res.Stat(env.Vars["PWD"], text)
		if !exists || !isDir {
			paintRange(buf, s, e, buffer.ErrorColor)
			*issues = append(*issues, Issue{Range: extent.Range{Start: s, End: e}, Kind: "missing-file"})
			return
		}
		paintRange(buf, s, e, buffer.Param)
		return
	}
	if !commandPos {
		highlightParam(buf, text, s, issues)
		return
	}
	// "builtin"/"command" narrow the lookup set for the next word: builtin
	// skips function resolution, command skips both function and builtin.
	isKeyword := res.IsKeyword(text)
	isFunction := prefix == "" && res.IsFunction(text)
	isBuiltin := prefix != "command" && res.IsBuiltin(text)
	switch {
	case isKeyword:
		paintRange(buf, s, e, buffer.Keyword)
	case isFunction:
		paintRange(buf, s, e, buffer.Command)
	case isBuiltin:
		paintRange(buf, s, e, buffer.Command)
	case res.LookPath(text, env.Path()):
		paintRange(buf, s, e, buffer.Command)
	default:
		paintRange(buf, s, e, buffer.ErrorColor)
		*issues = append(*issues, Issue{Range: extent.Range{Start: s, End: e}, Kind: "missing-command"})
	}
}

// classifyRedirectTarget applies spec.md §4.4 pass 2's redirection-target
// existence rule: the target's parent directory must exist, "<" and ">>"
// additionally require the target itself to already exist as a file, and
// ">|" (REDIRECT_NOCLOB) requires it not to, mirroring the cd-target
// special case above but keyed off the operator that preceded it.
func classifyRedirectTarget(buf *buffer.Buffer, text string, s, e int, cwd string, res Resolver, kind token.Type, issues *[]Issue) {
	fail := func(k string) {
		paintRange(buf, s, e, buffer.ErrorColor)
		*issues = append(*issues, Issue{Range: extent.Range{Start: s, End: e}, Kind: k})
	}
	if dir := redirectTargetDir(text); dir != "" {
		if dirIsDir, dirExists := res.Stat(cwd, dir); !dirExists || !dirIsDir {
			fail("bad-redirection")
			return
		}
	}
	isDir, exists := res.Stat(cwd, text)
	switch kind {
	case token.REDIRECT_IN, token.REDIRECT_APPEND:
		if !exists || isDir {
			fail("missing-file")
			return
		}
	case token.REDIRECT_NOCLOB:
		if exists && !isDir {
			fail("bad-redirection")
			return
		}
	}
	paintRange(buf, s, e, buffer.Param)
}

// redirectTargetDir returns the directory portion of a redirect target, or
// "" if it has none (a bare filename resolved against cwd, which is always
// assumed to exist).
func redirectTargetDir(text string) string {
	idx := strings.LastIndexByte(text, '/')
	switch {
	case idx < 0:
		return ""
	case idx == 0:
		return "/"
	default:
		return text[:idx]
	}
}

// highlightParam colours a non-command string's sub-characters: sigils,
// quote runs, and escape sequences, per spec.md §4.4 pass 2.
func highlightParam(buf *buffer.Buffer, text string, base int, issues *[]Issue) {
	rs := []rune(text)
	braceDepth := 0
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch r {
		case '\'':
			j := i + 1
			for j < len(rs) && rs[j] != '\'' {
				j++
			}
			paintRange(buf, base+i, base+j+1, buffer.Quote)
			if j >= len(rs) {
				buf.SetColorAt(base+i, buffer.ErrorColor)
				*issues = append(*issues, Issue{Range: extent.Range{Start: base + i, End: base + i + 1}, Kind: string(token.UnterminatedQuote)})
			}
			i = j + 1
			continue
		case '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			paintRange(buf, base+i, base+j+1, buffer.Quote)
			if j >= len(rs) {
				buf.SetColorAt(base+i, buffer.ErrorColor)
				*issues = append(*issues, Issue{Range: extent.Range{Start: base + i, End: base + i + 1}, Kind: string(token.UnterminatedQuote)})
			}
			i = j + 1
			continue
		case '\\':
			n, ok := escapeLen(rs, i)
			if !ok {
				buf.SetColorAt(base+i, buffer.ErrorColor)
				*issues = append(*issues, Issue{Range: extent.Range{Start: base + i, End: base + i + 1}, Kind: "bad-escape"})
				i++
				continue
			}
			paintRange(buf, base+i, base+i+n, buffer.Escape)
			i += n
			continue
		case '$', '~', '%', '*', '?':
			buf.SetColorAt(base+i, buffer.Param)
			i++
		case '(':
			// A nested command substitution: its interior was already
			// coloured by the recursive call in highlightRange. Paint only
			// the parens and skip over the already-painted interior.
			depth := 1
			j := i + 1
			for j < len(rs) && depth > 0 {
				if rs[j] == '(' {
					depth++
				} else if rs[j] == ')' {
					depth--
				}
				j++
			}
			buf.SetColorAt(base+i, buffer.Operator)
			if depth == 0 {
				buf.SetColorAt(base+j-1, buffer.Operator)
			}
			i = j
			continue
		case '{':
			braceDepth++
			buf.SetColorAt(base+i, buffer.Param)
			i++
		case '}':
			if braceDepth > 0 {
				braceDepth--
			}
			buf.SetColorAt(base+i, buffer.Param)
			i++
		case ',':
			if braceDepth > 0 {
				buf.SetColorAt(base+i, buffer.Param)
			} else {
				buf.SetColorAt(base+i, buffer.Param)
			}
			i++
		default:
			buf.SetColorAt(base+i, buffer.Param)
			i++
		}
	}
}

// escapeLen validates a backslash escape starting at i, returning its
// length in runes and whether it is well-formed. Numeric escapes overflow
// their digit range ⇒ not ok, per spec.md §4.4.
func escapeLen(rs []rune, i int) (int, bool) {
	if i+1 >= len(rs) {
		return 0, false
	}
	switch rs[i+1] {
	case 'x', 'X':
		return fixedHex(rs, i, 2)
	case 'u':
		return fixedHex(rs, i, 4)
	case 'U':
		return fixedHex(rs, i, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 2
		for n < 4 && i+n < len(rs) && rs[i+n] >= '0' && rs[i+n] <= '7' {
			n++
		}
		return n, true
	default:
		return 2, true
	}
}

func fixedHex(rs []rune, i, digits int) (int, bool) {
	n := 0
	for n < digits && i+2+n < len(rs) && isHex(rs[i+2+n]) {
		n++
	}
	if n == 0 {
		return 2, false
	}
	return 2 + n, true
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func paintRange(buf *buffer.Buffer, s, e int, c buffer.Color) {
	for i := s; i < e; i++ {
		buf.SetColorAt(i, c)
	}
}

// highlightMatch implements pass 6: if the cursor sits on a quote or
// bracket character, mark it and its partner with the Match overlay;
// otherwise, if it sits on one with no partner, mark it Error.
func highlightMatch(buf *buffer.Buffer, runes []rune, cursor int) {
	if cursor >= len(runes) {
		return
	}
	r := runes[cursor]
	pairs := map[rune]rune{'(': ')', '[': ']', '{': '}'}
	openers := map[rune]bool{'(': true, '[': true, '{': true}
	closers := map[rune]rune{')': '(', ']': '[', '}': '{'}

	switch {
	case r == '\'' || r == '"':
		partner := findQuotePartner(runes, cursor, r)
		if partner == -1 {
			buf.SetColorAt(cursor, buffer.ErrorColor)
			return
		}
		buf.SetColorAt(cursor, buf.ColorAt(cursor)|buffer.Match)
		buf.SetColorAt(partner, buf.ColorAt(partner)|buffer.Match)
	case openers[r]:
		partner := findBracketForward(runes, cursor, r, pairs[r])
		if partner == -1 {
			buf.SetColorAt(cursor, buffer.ErrorColor)
			return
		}
		buf.SetColorAt(cursor, buf.ColorAt(cursor)|buffer.Match)
		buf.SetColorAt(partner, buf.ColorAt(partner)|buffer.Match)
	default:
		if open, ok := closers[r]; ok {
			partner := findBracketBackward(runes, cursor, open, r)
			if partner == -1 {
				buf.SetColorAt(cursor, buffer.ErrorColor)
				return
			}
			buf.SetColorAt(cursor, buf.ColorAt(cursor)|buffer.Match)
			buf.SetColorAt(partner, buf.ColorAt(partner)|buffer.Match)
		}
	}
}

// findQuotePartner finds the other quote of the same kind at depth 0,
// honoring backslash escapes, searching both directions from cursor.
func findQuotePartner(runes []rune, cursor int, q rune) int {
	for i := cursor + 1; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == q {
			return i
		}
	}
	for i := cursor - 1; i >= 0; i-- {
		if i > 0 && runes[i-1] == '\\' {
			continue
		}
		if runes[i] == q {
			return i
		}
	}
	return -1
}

func findBracketForward(runes []rune, cursor int, open, close rune) int {
	depth := 0
	for i := cursor; i < len(runes); i++ {
		if runes[i] == open {
			depth++
		} else if runes[i] == close {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func findBracketBackward(runes []rune, cursor int, open, close rune) int {
	depth := 0
	for i := cursor; i >= 0; i-- {
		if runes[i] == close {
			depth++
		} else if runes[i] == open {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Suggest is the autosuggestion helper: a lighter pass-2 variant that
// decides whether a completed command line is plausibly executable.
// handled reports whether the first word resolved to anything recognized;
// suggestionOK additionally requires cd's target (if any) to be reachable.
func Suggest(line string, env Env, cwd string, res Resolver) (handled, suggestionOK bool) {
	toks := token.Tokenize(line, token.Config{AcceptUnfinished: true})
	var words []string
	for _, tok := range toks {
		if tok.Type == token.STRING {
			words = append(words, tok.Text)
		}
		if len(words) >= 2 {
			break
		}
	}
	if len(words) == 0 {
		return false, false
	}
	cmd := words[0]
	resolved := res.IsKeyword(cmd) || res.IsFunction(cmd) || res.IsBuiltin(cmd) || res.LookPath(cmd, env.Path())
	if !resolved {
		return false, false
	}
	if cmd == "cd" && len(words) > 1 {
		isDir, exists := res.Stat(cwd, words[1])
		return true, exists && isDir
	}
	return true, true
}
