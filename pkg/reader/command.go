// The reader's fixed abstract-command dispatch table, grounded on
// pkg/cli/tk/codearea.go's handleKeyEvent (a Bindings.Handle lookup
// followed by a default-insert fallback), generalized from elvish's
// user-rebindable Bindings interface to the single fixed table spec.md
// §4.12 calls for ("key bindings are resolved by C-level input layer out
// of scope here").
package reader

import "tide.sh/pkg/term"

// Command is one abstract editing action the dispatch table maps keys to.
type Command string

const (
	MoveLeft            Command = "move-left"
	MoveRight           Command = "move-right"
	MoveWordLeft        Command = "move-word-left"
	MoveWordRight       Command = "move-word-right"
	MoveHome            Command = "move-home"
	MoveEnd             Command = "move-end"
	DeleteBackward      Command = "delete-backward"
	DeleteForward       Command = "delete-forward"
	KillWordBackward    Command = "kill-word-backward"
	KillWordForward     Command = "kill-word-forward"
	KillLine            Command = "kill-line"
	KillWholeLine       Command = "kill-whole-line"
	Yank                Command = "yank"
	YankRotate          Command = "yank-rotate"
	Complete            Command = "complete"
	Execute             Command = "execute"
	HistoryPrevMatch    Command = "history-prev-match"
	HistoryNextMatch    Command = "history-next-match"
	HistorySearchToggle Command = "history-search-toggle"
	Cancel              Command = "cancel"
	InsertSelf          Command = "insert-self"
	InsertNewline       Command = "insert-newline"
)

// DefaultBindings is the fixed key→command table, chosen to match fish's
// own Emacs-style defaults: Ctrl-A/E for line start/end, Ctrl-B/F and the
// arrow keys for character motion, Alt-B/F for word motion, Ctrl-K/U/W for
// the three kill variants, Ctrl-Y for yank, Tab for completion, Enter for
// execute, Up/Down for history search, Ctrl-R for an incremental search
// toggle, Ctrl-C to cancel the current line.
func DefaultBindings() map[term.Key]Command {
	return map[term.Key]Command{
		term.K('a', term.Ctrl): MoveHome,
		term.K('e', term.Ctrl): MoveEnd,
		term.K('b', term.Ctrl): MoveLeft,
		term.K('f', term.Ctrl): MoveRight,
		term.K(term.Left):      MoveLeft,
		term.K(term.Right):     MoveRight,
		term.K(term.Home):      MoveHome,
		term.K(term.End):       MoveEnd,
		term.K('b', term.Alt):  MoveWordLeft,
		term.K('f', term.Alt):  MoveWordRight,
		term.K(term.Backspace): DeleteBackward,
		term.K(term.Delete):    DeleteForward,
		term.K('d', term.Ctrl): DeleteForward,
		term.K('w', term.Ctrl): KillWordBackward,
		term.K('d', term.Alt):  KillWordForward,
		term.K('k', term.Ctrl): KillLine,
		term.K('u', term.Ctrl): KillWholeLine,
		term.K('y', term.Ctrl): Yank,
		term.K('y', term.Alt):  YankRotate,
		term.K('i', term.Ctrl): Complete, // Tab
		term.K('m', term.Ctrl): Execute,  // Enter (\r)
		term.K('j', term.Ctrl): Execute,  // Enter (\n)
		term.K(term.Up):        HistoryPrevMatch,
		term.K(term.Down):      HistoryNextMatch,
		term.K('p', term.Ctrl): HistoryPrevMatch,
		term.K('n', term.Ctrl): HistoryNextMatch,
		term.K('r', term.Ctrl): HistorySearchToggle,
		term.K('c', term.Ctrl): Cancel,
	}
}

// Lookup resolves key against table, falling back to InsertSelf for an
// unmodified printable rune and to the zero Command (ignored) otherwise.
func Lookup(table map[term.Key]Command, key term.Key) (Command, bool) {
	if cmd, ok := table[key]; ok {
		return cmd, true
	}
	if key.Mod == 0 && key.Rune >= 0 {
		return InsertSelf, true
	}
	return "", false
}
