package term

import (
	"fmt"
	"io"
	"strings"
)

// Writer drives a terminal file descriptor through minimal updates between
// successive Buffers, the way the teacher's pkg/cli/term.Writer drives the
// screen from the CLI app's render loop.
type Writer struct {
	out  io.Writer
	prev *Buffer
}

// NewWriter returns a Writer with no prior screen state, so its first
// CommitBuffer does a full draw.
func NewWriter(out io.Writer) *Writer { return &Writer{out: out} }

// CommitBuffer transforms the previously committed Buffer into cur, writing
// only the bytes necessary: unchanged line prefixes are skipped, a line is
// rewritten from the first differing cell onward and then erased to end of
// line, and the cursor is moved only once, last.
func (w *Writer) CommitBuffer(cur *Buffer) {
	var b strings.Builder
	b.WriteString("\r")
	prevLines := 0
	if w.prev != nil {
		prevLines = len(w.prev.Lines)
	}
	for i, line := range cur.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		var old []Cell
		if w.prev != nil && i < len(w.prev.Lines) {
			old = w.prev.Lines[i]
		}
		same, at := compareCells(old, line)
		if same {
			continue
		}
		// Move past the unchanged prefix, then rewrite from the divergence
		// point.
		b.WriteString("\r")
		if col := cellsWidth(line[:at]); col > 0 {
			fmt.Fprintf(&b, "\x1b[%dC", col)
		}
		b.WriteString(renderLine(line[at:]))
		b.WriteString("\x1b[K") // erase to end of line
	}
	if prevLines > len(cur.Lines) {
		// Old screen had more lines; clear the remainder.
		for i := len(cur.Lines); i < prevLines; i++ {
			b.WriteString("\n\x1b[K")
		}
		for i := len(cur.Lines); i < prevLines; i++ {
			b.WriteString("\x1b[A")
		}
	}
	moveCursor(&b, cur)
	io.WriteString(w.out, b.String())
	w.prev = cur
}

func compareCells(a, b []Cell) (bool, int) {
	for i, c := range a {
		if i >= len(b) || c != b[i] {
			return false, i
		}
	}
	if len(a) < len(b) {
		return false, len(a)
	}
	return true, 0
}

func renderLine(cells []Cell) string {
	var b strings.Builder
	last := ""
	for _, c := range cells {
		if c.Style != last {
			if c.Style == "" {
				b.WriteString("\x1b[m")
			} else {
				b.WriteString("\x1b[" + c.Style + "m")
			}
			last = c.Style
		}
		b.WriteString(c.Text)
	}
	if last != "" {
		b.WriteString("\x1b[m")
	}
	return b.String()
}

func moveCursor(b *strings.Builder, cur *Buffer) {
	lastLine := len(cur.Lines) - 1
	up := lastLine - cur.Dot.Line
	if up > 0 {
		fmt.Fprintf(b, "\x1b[%dA", up)
	}
	b.WriteString("\r")
	if cur.Dot.Col > 0 {
		fmt.Fprintf(b, "\x1b[%dC", cur.Dot.Col)
	}
}
