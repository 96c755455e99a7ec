package argspec

import "testing"

const sampleDoc = `Usage:
  grep [-i] [-v] <pattern> <file>

Options:
  -i, --ignore-case  search case-insensitively
  -v, --invert-match  <N>  select non-matching lines
`

func TestRegisterParsesUsageAndOptions(t *testing.T) {
	r := New()
	errs, g := r.Register("grep", "grep.txt", sampleDoc, 0)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(g.Usages) != 1 {
		t.Fatalf("expected one usage line, got %v", g.Usages)
	}
	if len(g.Options) != 2 {
		t.Fatalf("expected two options, got %v", g.Options)
	}
}

func TestRegisterMissingUsageIsError(t *testing.T) {
	r := New()
	errs, _ := r.Register("x", "x.txt", "Options:\n  -a  do a\n", 0)
	if len(errs) == 0 {
		t.Fatalf("expected a missing-Usage error")
	}
}

func TestFirstRegisteredWinsForQueries(t *testing.T) {
	r := New()
	r.Register("grep", "a.txt", "Usage:\n  grep <pattern>\n\nOptions:\n  -i, --ignore-case  case insensitive\n", 0)
	r.Register("grep", "b.txt", "Usage:\n  grep <pattern>\n\nOptions:\n  -z, --null  zero terminated\n", 0)

	if _, ok := r.DescriptionFor("grep", "--null"); ok {
		t.Fatalf("--null belongs to the second registration and should not win")
	}
	desc, ok := r.DescriptionFor("grep", "--ignore-case")
	if !ok || desc != "case insensitive" {
		t.Fatalf("expected first-registered description, got %q ok=%v", desc, ok)
	}
}

func TestSameDocNameReplacesInPlace(t *testing.T) {
	r := New()
	r.Register("grep", "grep.txt", "Usage:\n  grep <pattern>\n\nOptions:\n  -i, --ignore-case  v1\n", 0)
	r.Register("grep", "grep.txt", "Usage:\n  grep <pattern>\n\nOptions:\n  -i, --ignore-case  v2\n", 0)
	desc, ok := r.DescriptionFor("grep", "--ignore-case")
	if !ok || desc != "v2" {
		t.Fatalf("expected replaced description v2, got %q ok=%v", desc, ok)
	}
}

func TestValidateFlagsUnknownOptions(t *testing.T) {
	r := New()
	r.Register("grep", "grep.txt", sampleDoc, 0)
	statuses := r.Validate("grep", []string{"-i", "--bogus", "needle"})
	if statuses[0].Valid != true {
		t.Fatalf("-i should be valid: %+v", statuses[0])
	}
	if statuses[1].Valid {
		t.Fatalf("--bogus should be invalid: %+v", statuses[1])
	}
	if !statuses[2].Valid {
		t.Fatalf("a bare positional should be valid: %+v", statuses[2])
	}
}

func TestSuggestNextExcludesUsedOptions(t *testing.T) {
	r := New()
	r.Register("grep", "grep.txt", sampleDoc, 0)
	sugg := r.SuggestNext("grep", []string{"--ignore-case"})
	for _, s := range sugg {
		if s == "--ignore-case" {
			t.Fatalf("already-used option should not be suggested again: %v", sugg)
		}
	}
}

func TestConditionsForFindsPositionalVariable(t *testing.T) {
	r := New()
	r.Register("grep", "grep.txt", sampleDoc, 0)
	if !r.ConditionsFor("grep", "pattern") {
		t.Fatalf("expected pattern to appear in a usage line")
	}
	if r.ConditionsFor("grep", "nonexistent") {
		t.Fatalf("did not expect nonexistent to appear in any usage line")
	}
}

type fakeGrammarCache struct {
	store map[string][]byte
	gets  int
	puts  int
}

func newFakeGrammarCache() *fakeGrammarCache {
	return &fakeGrammarCache{store: map[string][]byte{}}
}

func (c *fakeGrammarCache) key(command, docName string, mtime int64) string {
	return command + "\x00" + docName + "\x00" + string(rune(mtime))
}

func (c *fakeGrammarCache) Get(command, docName string, mtime int64) ([]byte, bool) {
	c.gets++
	v, ok := c.store[c.key(command, docName, mtime)]
	return v, ok
}

func (c *fakeGrammarCache) Put(command, docName string, mtime int64, grammar []byte) error {
	c.puts++
	c.store[c.key(command, docName, mtime)] = grammar
	return nil
}

func TestRegisterPopulatesAndReusesCache(t *testing.T) {
	cache := newFakeGrammarCache()
	r1 := NewCached(cache)
	errs, g1 := r1.Register("grep", "grep.txt", sampleDoc, 42)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if cache.puts != 1 {
		t.Fatalf("expected the fresh parse to populate the cache, got %d puts", cache.puts)
	}

	r2 := NewCached(cache)
	_, g2 := r2.Register("grep", "grep.txt", "garbage that would fail to parse", 42)
	if len(g2.Options) != len(g1.Options) || len(g2.Usages) != len(g1.Usages) {
		t.Fatalf("expected a cache hit to return the previously parsed grammar, got %+v", g2)
	}
}
