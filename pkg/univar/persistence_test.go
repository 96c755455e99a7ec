package univar

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadPersistedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fishd.testid")

	s1 := NewStore()
	s1.Set("FOO", "bar", false)
	s1.Set("BAZ", "qux", true)
	if err := SavePersisted(path, s1); err != nil {
		t.Fatalf("SavePersisted: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if data[0] != '#' {
		t.Fatalf("expected the file to start with the banner, got %q", data[:20])
	}

	s2 := NewStore()
	if err := LoadPersisted(path, s2); err != nil {
		t.Fatalf("LoadPersisted: %v", err)
	}
	e, ok := s2.Get("FOO")
	if !ok || e.Value != "bar" || e.Exported {
		t.Fatalf("FOO mismatch: %+v ok=%v", e, ok)
	}
	e, ok = s2.Get("BAZ")
	if !ok || e.Value != "qux" || !e.Exported {
		t.Fatalf("BAZ mismatch: %+v ok=%v", e, ok)
	}
}

func TestLoadPersistedMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	s := NewStore()
	if err := LoadPersisted(filepath.Join(dir, "nope"), s); err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
}

func TestPersistencePathUpgradesFromHostnameFile(t *testing.T) {
	dir := t.TempDir()
	host, err := os.Hostname()
	if err != nil {
		t.Skip("no hostname available")
	}
	hostID := host
	if len(hostID) > 32 {
		hostID = hostID[:32]
	}
	legacy := filepath.Join(dir, "fishd."+hostID)
	os.WriteFile(legacy, []byte(banner), 0600)

	target, err := PersistencePath(dir, "deadbeefdeadbeef")
	if err != nil {
		t.Fatalf("PersistencePath: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected legacy file to be renamed into place: %v", err)
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Fatalf("expected legacy file to be gone after upgrade")
	}
}
