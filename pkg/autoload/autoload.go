// Package autoload implements C8: on-demand loading of function definition
// files, keyed by an mtime cache with placeholder-on-absence entries and
// search-path invalidation. The teacher has no direct analog (elvish loads
// modules eagerly via "use"), so this is authored from spec.md §4.8's own
// contract and fish's autoload.cpp semantics in original_source/, cast into
// the guarded-service idiom spec.md §9 asks for -- the same single-struct,
// interior-locking shape as pkg/daemon/server.go's connection set.
package autoload

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader parses and executes a file in a distinguished scope that marks
// any function it defines as autoloaded, and is told when an entry is
// explicitly unloaded so it can remove derived state.
type Loader interface {
	Load(name, path string) error
	Unload(name string)
}

type entry struct {
	pathResolved  string
	mtimeAtLoad   int64
	isPlaceholder bool
	searchPath    string // the search-path variable's value when this entry was made
}

// Cache is the guarded autoload service for one (file-suffix, loader) pair.
type Cache struct {
	mu      sync.Mutex
	suffix  string
	loader  Loader
	entries map[string]entry
}

// New returns a Cache that looks for "<name><suffix>" (e.g. ".fish") files
// across a search path, invoking loader on first load.
func New(suffix string, loader Loader) *Cache {
	return &Cache{suffix: suffix, loader: loader, entries: map[string]entry{}}
}

// Exists resolves name against searchPath (a colon-separated list of
// directories, mirroring a $fish_function_path-style variable), loading it
// if not already cached with a matching mtime. It returns true if the name
// is now known to be loaded.
func (c *Cache) Exists(name, searchPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[name]; ok {
		if e.isPlaceholder {
			if e.searchPath == searchPath {
				return false
			}
			// Falls through to re-scan: the path changed since we recorded
			// "absent".
		} else {
			if st, err := os.Stat(e.pathResolved); err == nil && st.ModTime().Unix() == e.mtimeAtLoad {
				return true
			}
			// Mtime changed or file vanished; re-resolve below.
		}
	}

	for _, dir := range strings.Split(searchPath, ":") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+c.suffix)
		st, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if err := c.loader.Load(name, candidate); err != nil {
			continue
		}
		c.entries[name] = entry{pathResolved: candidate, mtimeAtLoad: st.ModTime().Unix(), searchPath: searchPath}
		return true
	}

	c.entries[name] = entry{isPlaceholder: true, searchPath: searchPath}
	return false
}

// InvalidatePath drops every cached entry whose searchPath matches the
// given value, mirroring "a change to the search-path variable flushes all
// entries for that variable".
func (c *Cache) InvalidatePath(oldSearchPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, e := range c.entries {
		if e.searchPath == oldSearchPath {
			delete(c.entries, name)
		}
	}
}

// Unload explicitly drops name, first invoking the loader's Unload hook so
// the owner can remove derived state.
func (c *Cache) Unload(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		return
	}
	c.loader.Unload(name)
	delete(c.entries, name)
}
