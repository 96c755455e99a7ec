// Package term owns raw-mode terminal discipline and key decoding for the
// reader loop (C12), grounded in the teacher's pkg/sys termios helpers and
// pkg/cli/term reader.
package term

import (
	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// State is a saved terminal mode, returned by Setup so it can be restored.
type State struct {
	fd    int
	saved unix.Termios
	valid bool
}

// Setup puts fd into raw mode (no echo, no line buffering, no signal
// generation from control characters) and returns a restore function that
// puts it back exactly as it was. Every external child invocation
// (the pager, the executed command) is expected to bracket itself with
// Setup and restore the same way, on every exit path including panics, so
// callers should usually `defer restore()`.
func Setup(fd int) (restore func(), err error) {
	saved, err := unix.IoctlGetTermios(fd, ioctlGets())
	if err != nil {
		return func() {}, err
	}
	st := State{fd: fd, saved: *saved, valid: true}

	raw := *saved
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSets(), &raw); err != nil {
		return func() {}, err
	}
	return func() { st.restore() }, nil
}

func (st *State) restore() {
	if !st.valid {
		return
	}
	_ = unix.IoctlSetTermios(st.fd, ioctlSets(), &st.saved)
}

func ioctlGets() uint { return unix.TCGETS }
func ioctlSets() uint { return unix.TCSETS }

// IsATTY reports whether fd refers to a terminal, covering both native and
// Cygwin/MSYS ttys the way the teacher's pkg/sys.IsATTY does.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Size reports the terminal's width and height in columns/rows.
func Size(fd int) (width, height int, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
