// Package extent implements C3: cursor-relative source extents over a
// buffer, grounded in the teacher's node-path-from-cursor matchers
// (pkg/edit/complete/node_path.go, pkg/parse/np) adapted from full-AST
// walks to direct scans over the C2 token stream, since this component's
// contract only needs ranges, not a tree.
package extent

import (
	"strings"

	"tide.sh/pkg/token"
)

// Range is a half-open source span [Start, End).
type Range struct {
	Start, End int
}

// Empty reports whether the range contains no bytes.
func (r Range) Empty() bool { return r.Start >= r.End }

func at(cursor int) Range { return Range{cursor, cursor} }

// LineOf counts newlines in buf[:offset] to map a byte offset to a
// 0-indexed line number.
func LineOf(buf string, offset int) int {
	if offset > len(buf) {
		offset = len(buf)
	}
	return strings.Count(buf[:offset], "\n")
}

// locateParen finds the smallest enclosing (...) pair around cursor,
// returning the offsets of the opening and closing parens (Start points at
// '(', End points just past ')'). ok is false if cursor is not inside any
// parens.
func locateParen(buf string, cursor int) (open, close int, ok bool) {
	depth := 0
	open = -1
	var stack []int
	for i, r := range buf {
		if i >= cursor {
			break
		}
		switch r {
		case '(':
			stack = append(stack, i)
			depth++
		case ')':
			if depth > 0 {
				stack = stack[:len(stack)-1]
				depth--
			}
		}
	}
	if depth == 0 {
		return 0, 0, false
	}
	open = stack[len(stack)-1]
	// Find the matching close by scanning forward from open with depth
	// tracking.
	d := 0
	for i, r := range buf[open:] {
		switch r {
		case '(':
			d++
		case ')':
			d--
			if d == 0 {
				return open, open + i + 1, true
			}
		}
	}
	return open, len(buf), true // unterminated; caller decides based on allow_incomplete
}

// CmdsubstExtent returns the innermost enclosing command-substitution
// range, including the parens, or an empty range at cursor if none
// encloses it.
func CmdsubstExtent(buf string, cursor int) Range {
	open, close, ok := locateParen(buf, cursor)
	if !ok {
		return at(cursor)
	}
	return Range{open, close}
}

// Cmdsubst is one located command-substitution pair.
type Cmdsubst struct {
	Range      Range // includes the parens
	Unfinished bool
}

// LocateCmdsubst returns every top-level-down (...) pair found in buf,
// innermost-complete-first, matching fish's locate_cmdsubst recursion
// order: a pair nested inside another is returned before its enclosing
// pair. If allowIncomplete is false, unterminated pairs are omitted.
func LocateCmdsubst(buf string, allowIncomplete bool) []Cmdsubst {
	type open struct{ pos int }
	var stack []open
	var found []Cmdsubst
	for i, r := range buf {
		switch r {
		case '(':
			stack = append(stack, open{i})
		case ')':
			if len(stack) == 0 {
				continue
			}
			o := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			found = append(found, Cmdsubst{Range: Range{o.pos, i + 1}})
		}
	}
	if allowIncomplete {
		for _, o := range stack {
			found = append(found, Cmdsubst{Range: Range{o.pos, len(buf)}, Unfinished: true})
		}
	}
	// Sort so innermost (latest opened, i.e. largest Start) comes first,
	// matching the recursion fish describes.
	for i := 0; i < len(found); i++ {
		for j := i + 1; j < len(found); j++ {
			if found[j].Range.Start > found[i].Range.Start {
				found[i], found[j] = found[j], found[i]
			}
		}
	}
	return found
}

// isJobBoundary reports the top-level (depth-0 w.r.t. parens) boundaries
// that delimit a job: newline and semicolon.
func isJobBoundary(tok token.Token) bool {
	return tok.Type == token.END
}

func isProcessBoundary(tok token.Token) bool {
	return tok.Type == token.PIPE || tok.Type == token.BACKGROUND || tok.Type == token.END || tok.Type == token.TERMINATE
}

// JobExtent returns the range of the job (one or more piped processes)
// enclosing cursor, bounded by END tokens (or buffer edges), not
// descending into command substitutions (a cursor inside one is resolved
// by the caller via CmdsubstExtent first, per spec's recursion order).
func JobExtent(buf string, cursor int) Range {
	toks := token.Tokenize(buf, token.Config{AcceptUnfinished: true, ShowComments: true})
	return boundedExtent(buf, toks, cursor, isJobBoundary)
}

// ProcessExtent returns the range of the single pipeline stage enclosing
// cursor, bounded by PIPE, BACKGROUND, or END tokens.
func ProcessExtent(buf string, cursor int) Range {
	toks := token.Tokenize(buf, token.Config{AcceptUnfinished: true, ShowComments: true})
	return boundedExtent(buf, toks, cursor, isProcessBoundary)
}

// boundedExtent finds the run of tokens around cursor not containing a
// boundary token, returning the covered source range. Ties at a boundary
// character favor the extent that ends at cursor, per spec.md §4.3.
func boundedExtent(buf string, toks []token.Token, cursor int, isBoundary func(token.Token) bool) Range {
	if len(toks) == 0 {
		return at(cursor)
	}
	// Find index of the token whose range covers cursor, preferring one
	// that ends exactly at cursor over one that starts exactly at cursor.
	idx := -1
	for i, tok := range toks {
		s, e := tok.SourceStart, tok.SourceStart+tok.SourceLength
		if e == cursor {
			idx = i
			break
		}
		if s <= cursor && cursor < e {
			idx = i
		}
	}
	if idx == -1 {
		idx = len(toks) - 1
	}
	if isBoundary(toks[idx]) {
		return at(cursor)
	}
	lo := idx
	for lo > 0 && !isBoundary(toks[lo-1]) {
		lo--
	}
	hi := idx
	for hi < len(toks)-1 && !isBoundary(toks[hi+1]) {
		hi++
	}
	start := lexeme(buf, toks[lo]).Start
	end := lexeme(buf, toks[hi]).End
	if end < start {
		end = start
	}
	return Range{start, end}
}

// TokenExtent returns the range of the token under (or ending at) cursor.
func TokenExtent(buf string, cursor int) Range {
	toks := token.Tokenize(buf, token.Config{AcceptUnfinished: true, ShowComments: true})
	idx := tokenIndexAt(toks, cursor)
	if idx == -1 {
		return at(cursor)
	}
	return lexeme(buf, toks[idx])
}

// PrevTokenExtent returns the range of the token immediately before the
// one TokenExtent would return.
func PrevTokenExtent(buf string, cursor int) Range {
	toks := token.Tokenize(buf, token.Config{AcceptUnfinished: true, ShowComments: true})
	idx := tokenIndexAt(toks, cursor)
	if idx <= 0 {
		return at(cursor)
	}
	return lexeme(buf, toks[idx-1])
}

// lexeme returns the part of tok's range that holds tok.Text, without the
// separator whitespace Tokenize folds into token ranges.
func lexeme(buf string, tok token.Token) Range {
	rs := []rune(buf)
	s := tok.SourceStart
	for s < tok.SourceStart+tok.SourceLength && s < len(rs) && (rs[s] == ' ' || rs[s] == '\t') {
		s++
	}
	return Range{s, s + len([]rune(tok.Text))}
}

func tokenIndexAt(toks []token.Token, cursor int) int {
	idx := -1
	for i, tok := range toks {
		s, e := tok.SourceStart, tok.SourceStart+tok.SourceLength
		if e == cursor {
			idx = i
			break
		}
		if s <= cursor && cursor < e {
			idx = i
		}
	}
	return idx
}
