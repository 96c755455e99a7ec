package univar

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Verb is one of the five wire commands spec.md §4.11 defines.
type Verb string

const (
	VerbSet         Verb = "set"
	VerbSetExport   Verb = "set_export"
	VerbErase       Verb = "erase"
	VerbBarrier     Verb = "barrier"
	VerbBarrierReply Verb = "barrier_reply"
)

// Message is one parsed protocol line.
type Message struct {
	Verb  Verb
	Key   string
	Value string // unescaped; empty for erase/barrier/barrier_reply
}

// Encode renders m back into a newline-terminated wire line.
func (m Message) Encode() string {
	switch m.Verb {
	case VerbSet, VerbSetExport:
		return fmt.Sprintf("%s %s:%s\n", m.Verb, m.Key, Escape(m.Value))
	case VerbErase:
		return fmt.Sprintf("erase %s\n", m.Key)
	case VerbBarrier:
		return "barrier\n"
	case VerbBarrierReply:
		return "barrier_reply\n"
	default:
		return ""
	}
}

// ParseLine parses one line (without its trailing newline) into a Message.
// Unknown verbs and malformed UTF-8 both parse as ok=false, per spec.md
// §4.11's "unknown commands are ignored" and "malformed UTF-8 lines are
// dropped entirely".
func ParseLine(line string) (Message, bool) {
	if !utf8.ValidString(line) {
		return Message{}, false
	}
	sp := strings.IndexByte(line, ' ')
	var verb, rest string
	if sp < 0 {
		verb, rest = line, ""
	} else {
		verb, rest = line[:sp], line[sp+1:]
	}
	switch Verb(verb) {
	case VerbSet, VerbSetExport:
		colon := strings.IndexByte(rest, ':')
		if colon < 0 {
			return Message{}, false
		}
		// A value containing ':' is accepted as-is; only the first colon
		// delimits key from value, per the REDESIGN FLAGS note that the
		// source's undocumented truncate-at-first-colon behaviour is kept
		// rather than fixed.
		return Message{Verb: Verb(verb), Key: rest[:colon], Value: Unescape(rest[colon+1:])}, true
	case VerbErase:
		if rest == "" {
			return Message{}, false
		}
		return Message{Verb: VerbErase, Key: rest}, true
	case VerbBarrier:
		return Message{Verb: VerbBarrier}, true
	case VerbBarrierReply:
		return Message{Verb: VerbBarrierReply}, true
	default:
		return Message{}, false
	}
}

// Escape renders s with every byte <32 or >127 as a C-style backslash
// escape (\n, \t, \\ and \xHH for everything else needing escaping),
// leaving printable ASCII untouched.
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 32 || c > 127:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. Malformed escape sequences pass their backslash
// through literally rather than erroring, matching the daemon's general
// "log and skip, never abort" error posture from spec.md §7.
func Unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'x':
			if i+3 < len(s) {
				var v byte
				if n, err := fmt.Sscanf(s[i+2:i+4], "%02x", &v); err == nil && n == 1 {
					b.WriteByte(v)
					i += 3
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
