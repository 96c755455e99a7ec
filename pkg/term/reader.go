package term

import (
	"bufio"
	"errors"
)

// Event is anything the Reader can deliver: a KeyEvent, or a PasteSetting
// marking the start/end of a bracketed paste.
type Event interface{}

// KeyEvent is a decoded keystroke.
type KeyEvent Key

// PasteSetting marks bracketed-paste start (true) or end (false).
type PasteSetting bool

// Reader decodes a raw byte stream from a terminal into Events, unescaping
// CSI sequences for arrow/home/end/delete and detecting bracketed-paste
// markers, the same job the teacher's pkg/cli/term.Reader does for its
// platform-specific raw readers.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r *bufio.Reader) *Reader { return &Reader{r: r} }

// ReadEvent blocks until the next Event is available or an error (including
// io.EOF) occurs.
func (rd *Reader) ReadEvent() (Event, error) {
	r, _, err := rd.r.ReadRune()
	if err != nil {
		return nil, err
	}
	switch r {
	case 0x1b:
		return rd.readEscape()
	case 0x7f:
		return KeyEvent(K(Backspace)), nil
	default:
		if r < 0x20 {
			return KeyEvent(K(r+0x60, Ctrl)), nil
		}
		return KeyEvent(K(r)), nil
	}
}

func (rd *Reader) readEscape() (Event, error) {
	r, _, err := rd.r.ReadRune()
	if err != nil {
		// A lone ESC with nothing following; treat as Alt with no base key
		// is nonsensical, report a bare escape as Ctrl-[.
		return KeyEvent(K('[', Ctrl)), nil
	}
	if r != '[' && r != 'O' {
		return KeyEvent(K(r, Alt)), nil
	}
	body, err := rd.readCSIBody()
	if err != nil {
		return nil, err
	}
	switch body {
	case "A":
		return KeyEvent(K(Up)), nil
	case "B":
		return KeyEvent(K(Down)), nil
	case "C":
		return KeyEvent(K(Right)), nil
	case "D":
		return KeyEvent(K(Left)), nil
	case "H":
		return KeyEvent(K(Home)), nil
	case "F":
		return KeyEvent(K(End)), nil
	case "3~":
		return KeyEvent(K(Delete)), nil
	case "200~":
		return PasteSetting(true), nil
	case "201~":
		return PasteSetting(false), nil
	default:
		return nil, errors.New("term: unrecognized CSI sequence ESC[" + body)
	}
}

func (rd *Reader) readCSIBody() (string, error) {
	var buf []rune
	for {
		r, _, err := rd.r.ReadRune()
		if err != nil {
			return "", err
		}
		buf = append(buf, r)
		if r >= '@' && r <= '~' {
			return string(buf), nil
		}
		if len(buf) > 8 {
			return string(buf), nil
		}
	}
}
