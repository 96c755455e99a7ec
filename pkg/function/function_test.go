package function

import "testing"

type fakeAutoloader struct{ unloaded []string }

func (f *fakeAutoloader) Unload(name string) { f.unloaded = append(f.unloaded, name) }

type fakeEvents struct {
	registered, deregistered []string
}

func (f *fakeEvents) Register(name string, h EventHandler)   { f.registered = append(f.registered, name) }
func (f *fakeEvents) Deregister(name string, h EventHandler) { f.deregistered = append(f.deregistered, name) }

type noopHandler struct{}

func (noopHandler) OnEvent(name string, args []string) {}

func TestAddOverwritesAndReregisters(t *testing.T) {
	ev := &fakeEvents{}
	r := New(nil, ev)
	r.Add(Record{Name: "f", EventHandlers: []EventHandler{noopHandler{}}})
	r.Add(Record{Name: "f", EventHandlers: []EventHandler{noopHandler{}}})
	if len(ev.registered) != 2 || len(ev.deregistered) != 1 {
		t.Fatalf("registered=%v deregistered=%v", ev.registered, ev.deregistered)
	}
}

func TestRemoveTellsAutoloaderUnlessCalledByIt(t *testing.T) {
	al := &fakeAutoloader{}
	r := New(al, nil)
	r.Add(Record{Name: "f"})
	r.Remove("f", false)
	if len(al.unloaded) != 1 {
		t.Fatalf("Remove should tell the autoloader, got %v", al.unloaded)
	}

	r.Add(Record{Name: "g"})
	r.Remove("g", true)
	if len(al.unloaded) != 1 {
		t.Fatalf("Remove called by the autoloader itself should not re-notify it, got %v", al.unloaded)
	}
}

func TestExistsTriggersAutoloadOnlyWhenAllowed(t *testing.T) {
	r := New(nil, nil)
	calls := 0
	autoload := func(name string) bool { calls++; return name == "lazy" }

	if r.Exists("lazy", false, autoload) {
		t.Fatalf("Exists with allowAutoload=false should not find an unregistered name")
	}
	if calls != 0 {
		t.Fatalf("autoload should not be called when allowAutoload is false")
	}
	if !r.Exists("lazy", true, autoload) {
		t.Fatalf("Exists with allowAutoload=true should trigger autoload")
	}
	if calls != 1 {
		t.Fatalf("autoload should have been called exactly once, got %d", calls)
	}
}
