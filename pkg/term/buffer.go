package term

import "tide.sh/pkg/wcwidth"

// Cell is an indivisible unit on the screen.
type Cell struct {
	Text  string
	Style string
}

// Pos is a line/column position.
type Pos struct {
	Line, Col int
}

// Buffer reflects a rectangle of the terminal plus a cursor ("dot").
// Screen diffing (Writer.CommitBuffer, in writer.go) computes the minimal set of writes
// to transform a previous Buffer into a new one -- the same one-way
// reflection idea the teacher's pkg/cli/term.Buffer uses, since terminals
// provide no good way to query what is already on screen.
type Buffer struct {
	Width int
	Lines [][]Cell
	Dot   Pos
}

func cellsWidth(cs []Cell) int {
	w := 0
	for _, c := range cs {
		w += wcwidth.Of(c.Text)
	}
	return w
}

// NewBuffer starts a buffer with a single empty line.
func NewBuffer(width int) *Buffer {
	return &Buffer{Width: width, Lines: [][]Cell{nil}}
}

// WriteString appends text in the given style to the last line, wrapping
// onto new lines at Width and honoring embedded newlines.
func (b *Buffer) WriteString(text, style string) {
	for _, r := range text {
		if r == '\n' {
			b.Lines = append(b.Lines, nil)
			continue
		}
		last := len(b.Lines) - 1
		cell := Cell{Text: string(r), Style: style}
		if cellsWidth(b.Lines[last])+wcwidth.OfRune(r) > b.Width && b.Width > 0 {
			b.Lines = append(b.Lines, nil)
			last++
		}
		b.Lines[last] = append(b.Lines[last], cell)
	}
}

// SetDotHere records the current write position as the cursor.
func (b *Buffer) SetDotHere() {
	last := len(b.Lines) - 1
	b.Dot = Pos{Line: last, Col: cellsWidth(b.Lines[last])}
}

// TrimToLines keeps only lines [low, high).
func (b *Buffer) TrimToLines(low, high int) {
	if low < 0 {
		low = 0
	}
	if high > len(b.Lines) {
		high = len(b.Lines)
	}
	b.Lines = b.Lines[low:high]
	b.Dot.Line -= low
	if b.Dot.Line < 0 {
		b.Dot.Line = 0
	}
}
