// Package buffer implements C1: the live input buffer, its parallel
// colour/indent arrays, and the screen diff that paints it. It is grounded
// in the teacher's pkg/cli/tk.CodeArea (buffer mutation, InsertAtDot-style
// operations) and pkg/cli/term.Buffer/Writer (the diffed repaint).
package buffer

import (
	"unicode/utf8"

	"tide.sh/pkg/term"
)

// Color is a 16-bit role tag per code point. The high bits are reserved for
// the valid-path and search-match overlays so they can be OR'd onto a base
// role without losing it.
type Color uint16

const (
	Normal Color = iota
	Command
	Param
	Redirection
	End
	CommentColor
	ErrorColor
	Escape
	Quote
	Operator
	Keyword
	Autosuggestion

	roleMask Color = 0x0FFF
)

const (
	// ValidPath and Match are overlay bits, OR'd onto a base role.
	ValidPath Color = 1 << 12
	Match     Color = 1 << 13
)

// Uncolored is the sentinel role a highlight pass starts from; fill-forward
// (pass 4 of C4) replaces any byte still carrying it with the preceding
// byte's colour.
const Uncolored Color = roleMask

// Role strips overlay bits, returning the base color.
func (c Color) Role() Color { return c & roleMask }

// Buffer is the resizable code-point sequence the reader edits. Colour and
// indent are always kept one longer than the rune sequence: the sentinel
// slot at `length` is what pass 4 of the highlighter (fill-forward) writes
// into when there's trailing uncoloured space.
type Buffer struct {
	runes  []rune
	cursor int
	color  []Color
	indent []int

	killRing    []string
	killIndex   int
	lastYankLen int
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{runes: nil, color: []Color{Normal}, indent: []int{0}}
}

// Set replaces the entire contents and moves the cursor, clamping it to
// [0, length].
func (b *Buffer) Set(text string, cursor int) {
	b.runes = []rune(text)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(b.runes) {
		cursor = len(b.runes)
	}
	b.cursor = cursor
	b.resizeAuxArrays()
}

// Get returns the buffer's contents as a string.
func (b *Buffer) Get() string { return string(b.runes) }

// Cursor returns the current cursor code-point offset.
func (b *Buffer) Cursor() int { return b.cursor }

// Length returns the number of code points in the buffer.
func (b *Buffer) Length() int { return len(b.runes) }

// SetCursor moves the cursor, clamping to [0, length].
func (b *Buffer) SetCursor(p int) {
	if p < 0 {
		p = 0
	}
	if p > len(b.runes) {
		p = len(b.runes)
	}
	b.cursor = p
}

func (b *Buffer) resizeAuxArrays() {
	n := len(b.runes) + 1
	if len(b.color) != n {
		b.color = make([]Color, n)
	}
	if len(b.indent) != n {
		b.indent = make([]int, n)
	}
}

// Insert inserts text at the cursor and advances the cursor past it.
func (b *Buffer) Insert(text string) {
	rs := []rune(text)
	b.runes = append(b.runes[:b.cursor:b.cursor], append(rs, b.runes[b.cursor:]...)...)
	b.cursor += len(rs)
	b.resizeAuxArrays()
}

// DeleteBackward removes the rune immediately before the cursor.
func (b *Buffer) DeleteBackward() {
	if b.cursor == 0 {
		return
	}
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
	b.resizeAuxArrays()
}

// DeleteForward removes the rune immediately after the cursor.
func (b *Buffer) DeleteForward() {
	if b.cursor >= len(b.runes) {
		return
	}
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
	b.resizeAuxArrays()
}

// Direction for Kill and word motions.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// Kill removes the runes in [from, to) and pushes them onto the kill ring.
// If coalesce is true and the ring is non-empty, the text is merged into the
// most recent ring element instead of pushing a new one -- this is how
// successive kill-word invocations accumulate into one yankable chunk.
func (b *Buffer) Kill(from, to int, dir Direction, coalesce bool) {
	if from > to {
		from, to = to, from
	}
	if from < 0 {
		from = 0
	}
	if to > len(b.runes) {
		to = len(b.runes)
	}
	if from >= to {
		return
	}
	killed := string(b.runes[from:to])
	b.runes = append(b.runes[:from:from], b.runes[to:]...)
	b.cursor = from
	b.resizeAuxArrays()

	const ringCap = 60
	if coalesce && len(b.killRing) > 0 {
		last := len(b.killRing) - 1
		if dir == Forward {
			b.killRing[last] = b.killRing[last] + killed
		} else {
			b.killRing[last] = killed + b.killRing[last]
		}
	} else {
		b.killRing = append(b.killRing, killed)
		if len(b.killRing) > ringCap {
			b.killRing = b.killRing[len(b.killRing)-ringCap:]
		}
	}
	b.killIndex = len(b.killRing) - 1
}

// Yank inserts the most recently killed text at the cursor.
func (b *Buffer) Yank() {
	if len(b.killRing) == 0 {
		return
	}
	b.killIndex = len(b.killRing) - 1
	text := b.killRing[b.killIndex]
	b.Insert(text)
	b.lastYankLen = len([]rune(text))
}

// YankRotate replaces the just-yanked text with the previous kill-ring
// element, cycling from the oldest back to the newest.
func (b *Buffer) YankRotate() {
	if len(b.killRing) == 0 || b.lastYankLen == 0 {
		return
	}
	b.cursor -= b.lastYankLen
	b.runes = append(b.runes[:b.cursor:b.cursor], b.runes[b.cursor+b.lastYankLen:]...)
	b.killIndex--
	if b.killIndex < 0 {
		b.killIndex = len(b.killRing) - 1
	}
	text := b.killRing[b.killIndex]
	b.Insert(text)
	b.lastYankLen = len([]rune(text))
}

// MoveByWord returns the cursor position one word away in dir, using a
// simple alnum/space/other categorization. If kill is true, the word is
// also removed via Kill with coalesce so repeated word-kills merge.
func (b *Buffer) MoveByWord(dir Direction, kill bool) int {
	pos := b.cursor
	if dir == Forward {
		pos = skipCategory(b.runes, pos, 1, category(b.runes, pos))
		pos = skipSpaces(b.runes, pos, 1)
	} else {
		pos = skipSpacesBack(b.runes, pos)
		if pos > 0 {
			pos = skipCategory(b.runes, pos-1, -1, category(b.runes, pos-1)) + 1
		}
	}
	if kill {
		if dir == Forward {
			b.Kill(b.cursor, pos, Forward, true)
		} else {
			b.Kill(pos, b.cursor, Backward, true)
		}
		return b.cursor
	}
	b.cursor = pos
	return pos
}

func category(rs []rune, i int) int {
	if i < 0 || i >= len(rs) {
		return 0
	}
	r := rs[i]
	switch {
	case r == ' ' || r == '\t' || r == '\n':
		return 0
	case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
		return 1
	default:
		return 2
	}
}

func skipCategory(rs []rune, i, step, cat int) int {
	for i >= 0 && i < len(rs) && category(rs, i) == cat {
		i += step
	}
	return i
}

func skipSpaces(rs []rune, i, step int) int {
	for i < len(rs) && category(rs, i) == 0 {
		i += step
	}
	return i
}

func skipSpacesBack(rs []rune, i int) int {
	for i > 0 && category(rs, i-1) == 0 {
		i--
	}
	return i
}

// ColorAt returns the color at code-point index i (i may equal Length, for
// the sentinel).
func (b *Buffer) ColorAt(i int) Color { return b.color[i] }

// SetColorAt sets the color at code-point index i.
func (b *Buffer) SetColorAt(i int, c Color) { b.color[i] = c }

// Colors returns the live colour slice (length+1) for the highlighter to
// populate in place.
func (b *Buffer) Colors() []Color { return b.color }

// Runes returns the live rune slice, read-only by convention.
func (b *Buffer) Runes() []rune { return b.runes }

// IndentAt returns the indent depth at code-point index i.
func (b *Buffer) IndentAt(i int) int { return b.indent[i] }

// SetIndentAt sets the indent depth at code-point index i.
func (b *Buffer) SetIndentAt(i int, d int) { b.indent[i] = d }

// ByteOffsetOf converts a code-point offset to a byte offset into Get().
func (b *Buffer) ByteOffsetOf(codePoint int) int {
	n := 0
	for i := 0; i < codePoint && i < len(b.runes); i++ {
		n += utf8.RuneLen(b.runes[i])
	}
	return n
}

// Render paints the buffer through its colour array into a term.Buffer,
// honoring indent by rendering two spaces of leading space per depth
// when a line begins, matching how the teacher's codearea rendering walks
// styled Text into a term.Buffer line by line.
func Render(b *Buffer, styleOf func(Color) string, width int) *term.Buffer {
	tb := term.NewBuffer(width)
	atLineStart := true
	for i, r := range b.runes {
		if atLineStart {
			depth := b.IndentAt(i)
			for d := 0; d < depth; d++ {
				tb.WriteString("  ", "")
			}
			atLineStart = false
		}
		if i == b.cursor {
			tb.SetDotHere()
		}
		style := styleOf(b.ColorAt(i).Role())
		tb.WriteString(string(r), style)
		if r == '\n' {
			atLineStart = true
		}
	}
	if b.cursor == len(b.runes) {
		tb.SetDotHere()
	}
	return tb
}
