package extent

import "testing"

func TestCmdsubstExtentRecursion(t *testing.T) {
	buf := "echo (date +(echo %Y))"
	inner := CmdsubstExtent(buf, len("echo (date +(echo %Y")) // cursor inside innermost
	if buf[inner.Start:inner.End] != "(echo %Y)" {
		t.Fatalf("innermost extent = %q", buf[inner.Start:inner.End])
	}
}

func TestCmdsubstExtentIdempotent(t *testing.T) {
	buf := "echo (date +(echo %Y))"
	cursor := len("echo (date +(echo %Y")
	r1 := CmdsubstExtent(buf, cursor)
	mid := (r1.Start + r1.End) / 2
	r2 := CmdsubstExtent(buf, mid)
	if r1 != r2 {
		t.Fatalf("not idempotent: r1=%v r2=%v", r1, r2)
	}
}

func TestLocateCmdsubstInnermostFirst(t *testing.T) {
	buf := "echo (date +(echo %Y))"
	subs := LocateCmdsubst(buf, false)
	if len(subs) != 2 {
		t.Fatalf("expected 2 substitutions, got %d: %v", len(subs), subs)
	}
	if buf[subs[0].Range.Start:subs[0].Range.End] != "(echo %Y)" {
		t.Fatalf("first result should be innermost, got %q", buf[subs[0].Range.Start:subs[0].Range.End])
	}
}

func TestTokenExtent(t *testing.T) {
	buf := "ls /tmp"
	r := TokenExtent(buf, len(buf))
	if buf[r.Start:r.End] != "/tmp" {
		t.Fatalf("TokenExtent at end = %q", buf[r.Start:r.End])
	}
}

func TestPrevTokenExtent(t *testing.T) {
	buf := "ls /tmp"
	r := PrevTokenExtent(buf, len(buf))
	if buf[r.Start:r.End] != "ls" {
		t.Fatalf("PrevTokenExtent = %q", buf[r.Start:r.End])
	}
}

func TestJobExtentBoundedByEnd(t *testing.T) {
	buf := "a | b; c | d"
	r := JobExtent(buf, 1)
	if buf[r.Start:r.End] != "a | b" {
		t.Fatalf("JobExtent = %q", buf[r.Start:r.End])
	}
}

func TestProcessExtentBoundedByPipe(t *testing.T) {
	buf := "a b | c d"
	r := ProcessExtent(buf, 2)
	if buf[r.Start:r.End] != "a b" {
		t.Fatalf("ProcessExtent = %q", buf[r.Start:r.End])
	}
}

func TestLineOf(t *testing.T) {
	buf := "a\nb\nc"
	if LineOf(buf, 0) != 0 || LineOf(buf, 2) != 1 || LineOf(buf, 4) != 2 {
		t.Fatalf("line mapping wrong")
	}
}
