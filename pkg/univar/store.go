package univar

import "sync"

// Entry is one universal variable's current value.
type Entry struct {
	Value    string
	Exported bool
}

// Hook is notified of mutations applied to a Store, so that a server can
// rewrite its persistence file or a shell can react to an incoming set. It
// mirrors spec.md §9's callback-to-interface mapping for "broadcast hook in
// the universal broker": on_set(k, v, exported), on_erased(k).
type Hook interface {
	OnSet(key, value string, exported bool)
	OnErase(key string)
}

// Store is the guarded key/value table shared by every connection a Server
// serves, and by a standalone client-side cache. Locking follows the same
// single-mutex, interior-locking shape as pkg/function.Registry and
// pkg/autoload.Cache.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	hooks   []Hook
}

// NewStore returns an empty Store.
func NewStore() *Store { return &Store{entries: map[string]Entry{}} }

// AddHook registers h to be told about every future Set/Erase.
func (s *Store) AddHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Set stores value for key and notifies hooks.
func (s *Store) Set(key, value string, exported bool) {
	s.mu.Lock()
	s.entries[key] = Entry{Value: value, Exported: exported}
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h.OnSet(key, value, exported)
	}
}

// Erase removes key, notifying hooks even if it was already absent (the
// daemon makes no distinction, and neither does a client replaying a
// broadcast).
func (s *Store) Erase(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h.OnErase(key)
	}
}

// Get returns key's current entry and whether it exists.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Snapshot returns a copy of every entry, for persistence or initial
// client sync.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// apply applies a single incoming Message to the store, without notifying
// hooks a second time over the wire -- used by both the server (applying a
// client's mutation before broadcasting it onward) and a client (applying
// an incoming broadcast to its local cache).
func (s *Store) apply(m Message) {
	switch m.Verb {
	case VerbSet:
		s.Set(m.Key, m.Value, false)
	case VerbSetExport:
		s.Set(m.Key, m.Value, true)
	case VerbErase:
		s.Erase(m.Key)
	}
}
