package univar

import (
	"path/filepath"
	"testing"
	"time"
)

func startTestServer(t *testing.T, dir string) string {
	t.Helper()
	sockPath := filepath.Join(dir, "sock")
	persistPath := filepath.Join(dir, "fishd.testid")
	ready := make(chan struct{})
	go Serve(sockPath, persistPath, ServeOpts{Ready: ready})
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never became ready")
	}
	return sockPath
}

func TestScenarioS5UniversalBroadcastOrdering(t *testing.T) {
	dir := t.TempDir()
	sockPath := startTestServer(t, dir)

	a, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer a.Close()
	b, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer b.Close()

	// Give both connections a moment to reach the active state and drain
	// their banner line before the real exchange starts.
	time.Sleep(100 * time.Millisecond)

	if err := a.Set("X", "hi"); err != nil {
		t.Fatalf("A.Set: %v", err)
	}
	// Give the server a chance to have actually read and broadcast A's set
	// before B's barrier request reaches it -- the ordering guarantee this
	// test checks is about per-connection queue order once both messages
	// have arrived at the server, not about network race timing between
	// two independent sockets.
	time.Sleep(50 * time.Millisecond)
	if err := b.Barrier(); err != nil {
		t.Fatalf("B.Barrier: %v", err)
	}

	e, ok := b.Store().Get("X")
	if !ok || e.Value != "hi" {
		t.Fatalf("B must have observed X=hi before its barrier_reply arrived, got %+v ok=%v", e, ok)
	}
}

func TestSetExportAndErasePropagate(t *testing.T) {
	dir := t.TempDir()
	sockPath := startTestServer(t, dir)

	a, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer a.Close()
	b, err := Dial(sockPath)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer b.Close()
	time.Sleep(100 * time.Millisecond)

	if err := a.SetExport("EXP", "v"); err != nil {
		t.Fatalf("SetExport: %v", err)
	}
	if err := b.Barrier(); err != nil {
		t.Fatalf("Barrier: %v", err)
	}
	e, ok := b.Store().Get("EXP")
	if !ok || !e.Exported || e.Value != "v" {
		t.Fatalf("expected EXP to propagate as exported, got %+v ok=%v", e, ok)
	}

	if err := a.Erase("EXP"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if err := b.Barrier(); err != nil {
		t.Fatalf("Barrier: %v", err)
	}
	if _, ok := b.Store().Get("EXP"); ok {
		t.Fatalf("expected EXP to be erased on B after the barrier")
	}
}
