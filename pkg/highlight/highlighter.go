package highlight

import (
	"sync"
	"time"

	"tide.sh/pkg/buffer"
)

// maxBlockForLate bounds how long a cache miss blocks the caller before the
// result is instead delivered asynchronously via LateUpdates, mirroring the
// teacher's highlighter.go block budget for off-thread recomputation.
const maxBlockForLate = 10 * time.Millisecond

// Config bundles the inputs Highlight needs beyond the buffer itself.
type Config struct {
	Env Env
	Cwd string
	Res Resolver
}

type cacheEntry struct {
	text       string
	cursor     int
	generation uint64
	colors     []buffer.Color
	issues     []Issue
}

// Highlighter caches the last highlighted generation of a buffer and
// recomputes off the calling goroutine when the buffer changes, the same
// cache-or-recompute-then-notify-late design as the teacher's
// pkg/edit/highlight.Highlighter.
//
// The buffer passed to Get is only ever mutated by the goroutine that calls
// Get: a cache miss is recomputed against a private snapshot buffer, never
// the live one, so a recompute still running past maxBlockForLate can never
// race with the reader loop's own edits to buf. The snapshot's colours are
// copied onto the live buffer only when Get is the one doing the copying,
// and only after confirming, via generation, that the snapshot still
// describes the buffer's current content.
type Highlighter struct {
	cfg Config

	mu    sync.Mutex
	cache cacheEntry

	lates chan struct{}
}

// New returns a Highlighter configured with cfg.
func New(cfg Config) *Highlighter {
	return &Highlighter{cfg: cfg, lates: make(chan struct{}, 1)}
}

// Get returns the issues for buf's current content at cursor, recomputing if
// the cache is stale. generation is the reader's generation counter at call
// time (see spec.md §5); a recompute that finishes after the counter has
// since advanced is cached for bookkeeping but its colours are never applied
// to buf, since by then some other edit -- and likely some other Get call --
// has moved the buffer on.
//
// Get is meant to be called only from the reader's own goroutine. The
// recompute itself runs on a private snapshot off-goroutine, but painting
// the result onto buf always happens back on the caller's goroutine, never
// from the background goroutine spawned for a slow recompute.
func (h *Highlighter) Get(buf *buffer.Buffer, cursor int, generation uint64) []Issue {
	text := buf.Get()

	h.mu.Lock()
	if h.cache.generation == generation && h.cache.text == text && h.cache.cursor == cursor {
		issues, colors := h.cache.issues, h.cache.colors
		h.mu.Unlock()
		applyColors(buf, colors)
		return issues
	}
	h.mu.Unlock()

	snap := buffer.New()
	snap.Set(text, cursor)

	done := make(chan []Issue, 1)
	go func() {
		done <- Highlight(snap, cursor, h.cfg.Env, h.cfg.Cwd, h.cfg.Res)
	}()

	select {
	case issues := <-done:
		colors := snapshotColors(snap)
		h.store(text, cursor, generation, colors, issues)
		applyColors(buf, colors)
		return issues
	case <-time.After(maxBlockForLate):
		go func() {
			issues := <-done
			// Only the cache is touched from here; buf itself is never
			// touched off the reader's goroutine. A later Get call, on
			// the reader's goroutine, is what applies these colours --
			// and only if generation still matches.
			h.store(text, cursor, generation, snapshotColors(snap), issues)
			select {
			case h.lates <- struct{}{}:
			default:
			}
		}()
		return nil
	}
}

func (h *Highlighter) store(text string, cursor int, generation uint64, colors []buffer.Color, issues []Issue) {
	h.mu.Lock()
	h.cache = cacheEntry{text: text, cursor: cursor, generation: generation, colors: colors, issues: issues}
	h.mu.Unlock()
}

func snapshotColors(buf *buffer.Buffer) []buffer.Color {
	live := buf.Colors()
	return append([]buffer.Color(nil), live...)
}

// applyColors copies colors onto buf's live colour array, provided the
// lengths still agree -- a mismatch means buf has since been edited and the
// colours describe a buffer that no longer exists, so they're dropped
// silently rather than applied to the wrong positions.
func applyColors(buf *buffer.Buffer, colors []buffer.Color) {
	live := buf.Colors()
	if len(live) != len(colors) {
		return
	}
	copy(live, colors)
}

// LateUpdates signals when a recompute that missed the synchronous block
// budget has finished; the reader should re-fetch via Get and repaint.
func (h *Highlighter) LateUpdates() <-chan struct{} { return h.lates }

// InvalidateCache forces the next Get to recompute, used when the
// environment snapshot or working directory changes without a buffer edit.
func (h *Highlighter) InvalidateCache() {
	h.mu.Lock()
	h.cache = cacheEntry{}
	h.mu.Unlock()
}
