package highlight

import (
	"testing"

	"tide.sh/pkg/buffer"
)

// TestHighlighterDiscardsStaleGeneration simulates a background recompute
// that finished after the buffer advanced to a newer generation: its
// result, including its (wrong) colours, sits in the cache under the old
// generation number. Get, called at the newer generation, must ignore that
// entry rather than painting the live buffer with a stale result.
func TestHighlighterDiscardsStaleGeneration(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"echo": true}}
	h := New(Config{Res: res})
	buf := newBuf("echo hi", 0)

	poison := make([]buffer.Color, buf.Length()+1)
	for i := range poison {
		poison[i] = buffer.ErrorColor
	}
	h.store("echo hi", 0, 1, poison, nil)

	h.Get(buf, 0, 2)

	if buf.ColorAt(0).Role() == buffer.ErrorColor {
		t.Fatalf("Get applied a cache entry from a stale generation")
	}
}

// TestHighlighterAppliesFreshCache exercises the cache-hit path: a second
// Get at the same generation, text and cursor reuses the stored colours
// rather than recomputing.
func TestHighlighterAppliesFreshCache(t *testing.T) {
	res := fakeResolver{builtins: map[string]bool{"echo": true}}
	h := New(Config{Res: res})
	buf := newBuf("echo hi", 0)

	h.Get(buf, 0, 1)
	want := buf.ColorAt(0)

	buf.SetColorAt(0, buffer.Uncolored)
	h.Get(buf, 0, 1)

	if got := buf.ColorAt(0); got != want {
		t.Fatalf("cache-hit Get repainted colour 0 as %v, want %v", got, want)
	}
}
