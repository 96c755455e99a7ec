package buffer

import "testing"

func TestInsertAndCursor(t *testing.T) {
	b := New()
	b.Insert("echo hi")
	if got := b.Get(); got != "echo hi" {
		t.Fatalf("Get() = %q", got)
	}
	if b.Cursor() != len("echo hi") {
		t.Fatalf("Cursor() = %d", b.Cursor())
	}
	if len(b.Colors()) != b.Length()+1 {
		t.Fatalf("colour array length = %d, want %d", len(b.Colors()), b.Length()+1)
	}
}

func TestDeleteBackwardAtStart(t *testing.T) {
	b := New()
	b.DeleteBackward()
	if b.Get() != "" || b.Cursor() != 0 {
		t.Fatalf("deleting at start of empty buffer should be a no-op")
	}
}

func TestKillAndYank(t *testing.T) {
	b := New()
	b.Set("echo hello world", len("echo hello world"))
	b.Kill(5, 10, Forward, false)
	if b.Get() != "echo  world" {
		t.Fatalf("Get() after kill = %q", b.Get())
	}
	b.SetCursor(5)
	b.Yank()
	if b.Get() != "echo hello world" {
		t.Fatalf("Get() after yank = %q", b.Get())
	}
}

func TestKillCoalesce(t *testing.T) {
	b := New()
	b.Set("one two three", 0)
	b.MoveByWord(Forward, true)
	b.MoveByWord(Forward, true)
	if len(b.killRing) != 1 {
		t.Fatalf("coalesced kills should share one ring slot, got %d", len(b.killRing))
	}
}

func TestMoveByWordBackward(t *testing.T) {
	b := New()
	b.Set("one two three", len("one two three"))
	b.MoveByWord(Backward, false)
	if b.Cursor() != len("one two ") {
		t.Fatalf("cursor = %d, want %d", b.Cursor(), len("one two "))
	}
}

func TestColorSentinelSurvivesResize(t *testing.T) {
	b := New()
	b.Set("ab", 2)
	b.SetColorAt(2, Command)
	b.Insert("c")
	if len(b.Colors()) != 4 {
		t.Fatalf("colour array should grow to length+1 = 4, got %d", len(b.Colors()))
	}
}

func TestRoleStripsOverlay(t *testing.T) {
	c := Command | ValidPath
	if c.Role() != Command {
		t.Fatalf("Role() = %v, want Command", c.Role())
	}
}
