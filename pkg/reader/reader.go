// Package reader implements C12: the interactive reader loop composing
// C1 (buffer/screen diff), C2/C3 (tokenizer/extents, via Classify and the
// completion/highlight packages that already depend on them), C4
// (highlighter), C5 (completion), and C6 (pager). Its input loop blocks on
// the next key and, before each read, takes a finished late highlight
// without waiting (a select with a default case); that select and the
// generation-number cancellation of stale async work are grounded on
// pkg/daemon/server.go's "select over signal/work/done channels" loop,
// per spec.md §5's suspension-and-blocking rule, and on
// pkg/cli/tk/codearea.go's handleKeyEvent dispatch for per-keystroke
// command resolution.
package reader

import (
	"bufio"
	"io"
	"sync/atomic"

	"tide.sh/pkg/buffer"
	"tide.sh/pkg/complete"
	"tide.sh/pkg/extent"
	"tide.sh/pkg/highlight"
	"tide.sh/pkg/history"
	"tide.sh/pkg/logging"
	"tide.sh/pkg/pager"
	"tide.sh/pkg/term"
	"tide.sh/pkg/token"
)

var log = logging.New("reader")

// Config bundles everything a Reader needs from the rest of the shell.
type Config struct {
	In    io.Reader
	Out   io.Writer
	Width int

	History *history.Session

	HighlightEnv highlight.Env
	Cwd          string
	Resolver     highlight.Resolver

	// Sources returns a fresh completion source set; called once per
	// Tab press, so a caller can reflect the latest function/autoload
	// state without the reader needing to know about C8/C9 directly.
	Sources func() complete.Sources

	// PagerCommand is the external pager program C6 spawns when
	// completion can't resolve to a single insertion.
	PagerCommand string

	Bindings map[term.Key]Command
	StyleOf  func(buffer.Color) string
}

// Reader drives one terminal's interactive input loop.
type Reader struct {
	cfg Config

	frames []*frame

	termReader *term.Reader
	writer     *term.Writer
	hl         *highlight.Highlighter

	generation uint64 // bumped on every buffer mutation; see §5 ordering rule

	pasting bool
}

// New returns a Reader ready to read lines from cfg.In.
func New(cfg Config) *Reader {
	if cfg.Bindings == nil {
		cfg.Bindings = DefaultBindings()
	}
	r := &Reader{
		cfg:        cfg,
		termReader: term.NewReader(bufio.NewReader(cfg.In)),
		writer:     term.NewWriter(cfg.Out),
		hl:         highlight.New(highlight.Config{Env: cfg.HighlightEnv, Cwd: cfg.Cwd, Res: cfg.Resolver}),
	}
	r.pushFrame()
	return r
}

// Result is what ReadLine returns: either a complete command line, or EOF.
type Result struct {
	Text string
	EOF  bool
}

// ReadLine reads and edits a line until Enter produces a syntactically
// Complete buffer (appending it to History) or the input stream ends.
func (r *Reader) ReadLine() (Result, error) {
	f := r.top()
	f.buf.Set("", 0)
	r.redraw()

	for {
		// Drain a pending late highlight before blocking on the next key,
		// so a slow recompute that finished while we were idle gets
		// painted without waiting for the user's next keystroke.
		select {
		case <-r.hl.LateUpdates():
			r.redraw()
		default:
		}

		ev, err := r.termReader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return Result{EOF: true}, nil
			}
			return Result{}, err
		}
		switch e := ev.(type) {
		case term.PasteSetting:
			r.pasting = bool(e)
			continue
		case term.KeyEvent:
			done, result := r.handleKey(term.Key(e))
			r.redraw()
			if done {
				return result, nil
			}
		}
	}
}

// handleKey resolves and executes one keystroke. done is true once the
// buffer is ready to return from ReadLine, which happens only when Execute
// finds a Complete buffer.
func (r *Reader) handleKey(key term.Key) (done bool, result Result) {
	cmd, ok := Lookup(r.cfg.Bindings, key)
	if !ok {
		return false, Result{}
	}
	f := r.top()

	if cmd != HistoryPrevMatch && cmd != HistoryNextMatch && cmd != HistorySearchToggle {
		f.clearSearch()
	}

	switch cmd {
	case InsertSelf:
		f.buf.Insert(string(key.Rune))
		r.bump()
	case InsertNewline:
		f.buf.Insert("\n")
		r.bump()
	case MoveLeft:
		f.buf.SetCursor(f.buf.Cursor() - 1)
	case MoveRight:
		f.buf.SetCursor(f.buf.Cursor() + 1)
	case MoveHome:
		f.buf.SetCursor(lineStart(f.buf.Get(), f.buf.Cursor()))
	case MoveEnd:
		f.buf.SetCursor(lineEnd(f.buf.Get(), f.buf.Cursor()))
	case MoveWordLeft:
		f.buf.MoveByWord(buffer.Backward, false)
	case MoveWordRight:
		f.buf.MoveByWord(buffer.Forward, false)
	case DeleteBackward:
		f.buf.DeleteBackward()
		r.bump()
	case DeleteForward:
		f.buf.DeleteForward()
		r.bump()
	case KillWordBackward:
		f.buf.MoveByWord(buffer.Backward, true)
		r.bump()
	case KillWordForward:
		f.buf.MoveByWord(buffer.Forward, true)
		r.bump()
	case KillLine:
		f.buf.Kill(f.buf.Cursor(), lineEnd(f.buf.Get(), f.buf.Cursor()), buffer.Forward, false)
		r.bump()
	case KillWholeLine:
		f.buf.Kill(lineStart(f.buf.Get(), f.buf.Cursor()), lineEnd(f.buf.Get(), f.buf.Cursor()), buffer.Backward, false)
		r.bump()
	case Yank:
		f.buf.Yank()
		r.bump()
	case YankRotate:
		f.buf.YankRotate()
		r.bump()
	case Complete:
		r.doComplete(f)
		r.bump()
	case Execute:
		return r.doExecute(f)
	case HistoryPrevMatch:
		r.doHistorySearch(f, -1)
	case HistoryNextMatch:
		r.doHistorySearch(f, 1)
	case HistorySearchToggle:
		f.searchActive = !f.searchActive
	case Cancel:
		f.buf.Set("", 0)
		f.clearSearch()
		r.bump()
	}
	return false, Result{}
}

// bump advances the generation counter, invalidating any async highlight
// result still in flight for an older generation per spec.md §5.
func (r *Reader) bump() {
	atomic.AddUint64(&r.generation, 1)
	r.hl.InvalidateCache()
}

func (r *Reader) doExecute(f *frame) (bool, Result) {
	text := f.buf.Get()
	state, _ := Classify(text)
	switch state {
	case StateComplete:
		if r.cfg.History != nil {
			r.cfg.History.Add(text, nil)
		}
		return true, Result{Text: text}
	case StateIncomplete:
		f.buf.Insert("\n")
		r.bump()
		return false, Result{}
	default: // StateSyntaxError
		return false, Result{}
	}
}

func (r *Reader) doComplete(f *frame) {
	if r.cfg.Sources == nil {
		return
	}
	text := f.buf.Get()
	cursor := f.buf.Cursor()
	tr, cands := complete.Complete(text, cursor, r.cfg.Sources())
	currentToken := text[tr.Start:tr.End]
	ins := complete.Insert(currentToken, cands)

	switch {
	case ins.LaunchPager:
		r.launchPager(f, tr, cands)
	case ins.Text != "":
		replacement := ins.Text
		if ins.Space {
			replacement += " "
		}
		f.buf.Set(text[:tr.Start]+replacement+text[tr.End:], tr.Start+len([]rune(replacement)))
	}
}

func (r *Reader) launchPager(f *frame, tr extent.Range, cands []complete.Candidate) {
	lines := make([]string, len(cands))
	for i, c := range cands {
		lines[i] = c.Replacement
		if c.Description != "" {
			lines[i] += "\t" + c.Description
		}
	}
	res := pager.Run(r.cfg.PagerCommand, lines, func() {})
	if res.Beep {
		log.Debug("pager exited abnormally")
		return
	}
	if len(res.Typed) == 0 {
		return
	}
	text := f.buf.Get()
	f.buf.Set(text[:tr.Start]+string(res.Typed)+text[tr.End:], tr.Start+len(res.Typed))
}

func (r *Reader) doHistorySearch(f *frame, dir int) {
	if r.cfg.History == nil {
		return
	}
	f.searchActive = true
	needle := f.buf.Get()
	var item history.Item
	var ok bool
	if dir < 0 {
		item, ok = r.cfg.History.PrevMatch(needle)
	} else {
		item, ok = r.cfg.History.NextMatch()
	}
	if !ok {
		return
	}
	f.buf.Set(item.Command, len([]rune(item.Command)))
}

func (r *Reader) redraw() {
	f := r.top()
	r.hl.Get(f.buf, f.buf.Cursor(), atomic.LoadUint64(&r.generation))
	r.applySuggestion(f)
	tb := buffer.Render(f.buf, r.cfg.StyleOf, r.cfg.Width)
	r.writer.CommitBuffer(tb)
}

// applySuggestion runs the §4.4 autosuggestion helper over a syntactically
// complete line and, when it reports the command looks executable, repaints
// the command word with the Autosuggestion role so the reader can style it
// as a readiness hint distinct from the ordinary command/error coloring
// pass 2 already assigned it.
func (r *Reader) applySuggestion(f *frame) {
	if r.cfg.Resolver == nil {
		return
	}
	text := f.buf.Get()
	state, toks := Classify(text)
	if state != StateComplete {
		return
	}
	handled, ok := highlight.Suggest(text, r.cfg.HighlightEnv, r.cfg.Cwd, r.cfg.Resolver)
	if !handled || !ok {
		return
	}
	for _, tok := range toks {
		if tok.Type != token.STRING {
			continue
		}
		for i := tok.SourceStart; i < tok.SourceStart+tok.SourceLength; i++ {
			overlay := f.buf.ColorAt(i) & (buffer.ValidPath | buffer.Match)
			f.buf.SetColorAt(i, buffer.Autosuggestion|overlay)
		}
		return
	}
}

func lineStart(text string, cursor int) int {
	rs := []rune(text)
	for i := cursor - 1; i >= 0; i-- {
		if rs[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func lineEnd(text string, cursor int) int {
	rs := []rune(text)
	for i := cursor; i < len(rs); i++ {
		if rs[i] == '\n' {
			return i
		}
	}
	return len(rs)
}
