// Package function implements C9: the function registry. Mutations are
// serialised by a single lock, replacing the original's scattered
// LOCK/UNLOCK macros with "interior locking on a single guarded service
// type" per spec.md §9 -- the same guarded-state idiom as
// pkg/daemon/server.go's conns map.
package function

import "sync"

// EventHandler is notified of an event a function subscribes to, e.g. a
// variable-change or signal hook.
type EventHandler interface {
	OnEvent(name string, args []string)
}

// Record is one registered function.
type Record struct {
	Name             string
	Body             string
	Description      string
	DefinitionFile   string
	DefinitionLine   int
	NamedParameters  []string
	ShadowsScope     bool
	IsAutoloaded     bool
	EventHandlers    []EventHandler
}

// Autoloader is the subset of the C8 cache the registry needs to tell
// about explicit removals, so a manual `remove` doesn't get immediately
// reloaded behind the caller's back.
type Autoloader interface {
	Unload(name string)
}

// EventRegistry is where a function's event handlers get registered and
// deregistered as it comes and goes.
type EventRegistry interface {
	Register(name string, h EventHandler)
	Deregister(name string, h EventHandler)
}

// Registry is the guarded function table.
type Registry struct {
	mu         sync.Mutex
	records    map[string]Record
	autoloader Autoloader
	events     EventRegistry
}

// New returns an empty Registry. autoloader and events may be nil if the
// caller does not need autoload-drop-on-remove or event wiring.
func New(autoloader Autoloader, events EventRegistry) *Registry {
	return &Registry{records: map[string]Record{}, autoloader: autoloader, events: events}
}

// Add overwrites any prior entry of the same name and registers its event
// handlers.
func (r *Registry) Add(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.records[rec.Name]; ok && r.events != nil {
		for _, h := range old.EventHandlers {
			r.events.Deregister(rec.Name, h)
		}
	}
	r.records[rec.Name] = rec
	if r.events != nil {
		for _, h := range rec.EventHandlers {
			r.events.Register(rec.Name, h)
		}
	}
}

// Remove deregisters name's event handlers and drops its record. Unless
// calledByAutoloader is true, it also tells the autoloader to drop the
// entry, avoiding a reload loop when the autoloader itself is the one
// removing a stale entry.
func (r *Registry) Remove(name string, calledByAutoloader bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return
	}
	if r.events != nil {
		for _, h := range rec.EventHandlers {
			r.events.Deregister(name, h)
		}
	}
	delete(r.records, name)
	if !calledByAutoloader && r.autoloader != nil {
		r.autoloader.Unload(name)
	}
}

// Get returns the named record and whether it exists.
func (r *Registry) Get(name string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	return rec, ok
}

// Exists reports whether name is registered, optionally triggering
// autoload via the supplied resolver first. allowAutoload should be false
// for off-thread callers like the highlighter, per spec.md §4.9.
func (r *Registry) Exists(name string, allowAutoload bool, autoload func(name string) bool) bool {
	r.mu.Lock()
	_, ok := r.records[name]
	r.mu.Unlock()
	if ok || !allowAutoload || autoload == nil {
		return ok
	}
	return autoload(name)
}

// Names returns every currently-registered function name.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.records))
	for n := range r.records {
		names = append(names, n)
	}
	return names
}
