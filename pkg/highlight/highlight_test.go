package highlight

import "testing"

import "tide.sh/pkg/buffer"

type fakeResolver struct {
	keywords map[string]bool
	funcs    map[string]bool
	builtins map[string]bool
	path     map[string]bool
	dirs     map[string]bool
	files    map[string]bool
}

func (f fakeResolver) IsKeyword(name string) bool { return f.keywords[name] }
func (f fakeResolver) IsFunction(name string) bool { return f.funcs[name] }
func (f fakeResolver) IsBuiltin(name string) bool  { return f.builtins[name] }
func (f fakeResolver) LookPath(name string, path []string) bool {
	return f.path[name]
}
func (f fakeResolver) Stat(cwd, path string) (isDir, exists bool) {
	if f.dirs[path] {
		return true, true
	}
	if f.files[path] {
		return false, true
	}
	return false, false
}

func newBuf(s string, cursor int) *buffer.Buffer {
	b := buffer.New()
	b.Set(s, cursor)
	return b
}

func TestHighlightCoverage(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"echo": true, "date": true}}
	b := newBuf("echo (date +(echo %Y))", 0)
	Highlight(b, 0, Env{}, "/", res)
	for i := 0; i < b.Length(); i++ {
		if b.ColorAt(i) == buffer.Uncolored {
			t.Fatalf("byte %d left uncoloured", i)
		}
	}
}

func TestScenarioS1PathOverlay(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"ls": true}, dirs: map[string]bool{"/tmp": true}}
	b := newBuf("ls /tmp", 7)
	Highlight(b, 7, Env{}, "/", res)
	for i := 3; i < 7; i++ {
		if b.ColorAt(i)&buffer.ValidPath == 0 {
			t.Errorf("byte %d should carry valid-path", i)
		}
	}
	if b.ColorAt(0).Role() != buffer.Command {
		t.Errorf("ls should be Command, got %v", b.ColorAt(0).Role())
	}
}

func TestScenarioS2CmdsubstRecursion(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"echo": true, "date": true}}
	b := newBuf("echo (date +(echo %Y))", 0)
	Highlight(b, 0, Env{}, "/", res)
	s := b.Get()
	for i, r := range s {
		if r == ')' {
			if b.ColorAt(i).Role() != buffer.Operator {
				t.Errorf(") at %d should be Operator, got %v", i, b.ColorAt(i).Role())
			}
		}
	}
	if b.ColorAt(0).Role() != buffer.Command {
		t.Errorf("outer echo should be Command")
	}
	innerEchoAt := indexOfNth(s, "echo", 1)
	if b.ColorAt(innerEchoAt).Role() != buffer.Command {
		t.Errorf("inner echo at %d should be Command, got %v", innerEchoAt, b.ColorAt(innerEchoAt).Role())
	}
}

func indexOfNth(s, sub string, n int) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			if count == n {
				return i
			}
			count++
		}
	}
	return -1
}

func TestScenarioS3QuoteMismatch(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"echo": true}}
	b := newBuf(`echo "hi`, len(`echo "hi`))
	Highlight(b, b.Length(), Env{}, "/", res)
	quoteAt := 5
	if b.ColorAt(quoteAt).Role() != buffer.ErrorColor {
		t.Errorf("lone quote should carry error, got %v", b.ColorAt(quoteAt).Role())
	}
}

func TestQuoteMatch(t *testing.T) {
	res := fakeResolver{}
	b := newBuf(`"ab'cd"`, 0)
	Highlight(b, 0, Env{}, "/", res)
	if b.ColorAt(0)&buffer.Match == 0 {
		t.Errorf("first quote should carry match overlay")
	}
	if b.ColorAt(6)&buffer.Match == 0 {
		t.Errorf("last quote should carry match overlay")
	}
}

func TestPathOverlayRejectsNonexistent(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"ls": true}}
	b := newBuf("ls /definitely-nonexistent-xyz/", b2len())
	Highlight(b, b.Length(), Env{}, "/", res)
	for i := 3; i < b.Length(); i++ {
		if b.ColorAt(i)&buffer.ValidPath != 0 {
			t.Errorf("byte %d should not carry valid-path for a nonexistent target", i)
		}
	}
}

func b2len() int { return len("ls /definitely-nonexistent-xyz/") }
