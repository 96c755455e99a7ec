package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"echo hi",
		"echo line1\nline2",
		`echo a\b`,
		"echo trailing\\",
	}
	for _, c := range cases {
		enc := encodeBody(c)
		dec := decodeBody([]byte(enc))
		if dec != c {
			t.Errorf("round trip %q -> %q -> %q", c, enc, dec)
		}
	}
}

func TestSaveDedupAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "fish")
	if err != nil {
		t.Fatal(err)
	}
	s.Add("A", nil)
	s.Add("B", nil)
	s.Add("A", nil)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := Open(dir, "fish")
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 (A deduped)", reopened.Count())
	}
	first, _ := reopened.ItemAt(0)
	second, _ := reopened.ItemAt(1)
	if first.Command != "A" || second.Command != "B" {
		t.Fatalf("items = %q, %q, want A (newest-last dedup keeps the later occurrence), B", first.Command, second.Command)
	}
}

func TestPrevMatchAndNextMatch(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, "fish")
	s.Add("cmd", nil)
	s.Add("foo", nil)
	s.Add("cmd", nil)

	it1, ok := s.PrevMatch("")
	if !ok || it1.Command != "cmd" {
		t.Fatalf("first PrevMatch = %+v, %v", it1, ok)
	}
	it2, ok := s.PrevMatch("")
	if !ok || it2.Command != "foo" {
		t.Fatalf("second PrevMatch = %+v, %v", it2, ok)
	}
	back, ok := s.NextMatch()
	if !ok || back.Command != "cmd" {
		t.Fatalf("NextMatch = %+v, %v", back, ok)
	}
}

func TestSaveIsAtomicTempFile(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, "fish")
	s.Add("x", nil)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "fish_history.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file should not survive a successful save")
	}
	if _, err := os.Stat(filepath.Join(dir, "fish_history")); err != nil {
		t.Fatalf("target file should exist after save: %v", err)
	}
}

func TestPrevTokenMatch(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir, "fish")
	s.Add("grep needle file.txt", nil)
	it, ok := s.PrevTokenMatch("needle")
	if !ok || it.Command != "grep needle file.txt" {
		t.Fatalf("PrevTokenMatch = %+v, %v", it, ok)
	}
}
