// Package complete implements C5: candidate generation, ranking, and
// merging for the current token. It is grounded in the teacher's
// pkg/edit/complete (Config{Filterer, ArgGenerator}, the RawItem/PlainItem
// merge-and-dedup pattern, generateFileNames's dir/prefix split) adapted to
// this spec's command-position/argument-position source list and its
// explicit fuzzy/case/length/lexicographic ranking order.
package complete

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tide.sh/pkg/extent"
)

// Quoting identifies the quote context the current token sits in.
type Quoting int

const (
	NoQuote Quoting = iota
	SingleQuote
	DoubleQuote
)

// Candidate is one completion result.
type Candidate struct {
	Replacement   string
	Description   string
	NoSpace       bool
	ReplaceToken  bool
	DuplicatesArg bool
	FuzzyMatch    bool
}

// Sources supplies the lookups the generator needs; a real reader backs
// this with C8/C9/C10 and the filesystem, tests supply a fake.
type Sources struct {
	Builtins  []string
	Functions []string
	Path      []string
	ArgSpec   func(command string) []Candidate
	Env       map[string]string
	Users     []string
	Stat      func(path string) (isDir, exists bool)
	ReadDir   func(dir string) []os.DirEntry
}

// Complete isolates the current token in buf at cursor, determines its
// role and quoting, gathers candidates from the appropriate sources, dedups
// them, and returns the ranked list alongside the token's source range.
func Complete(buf string, cursor int, src Sources) (extent.Range, []Candidate) {
	tr := extent.TokenExtent(buf, cursor)
	token := buf[tr.Start:tr.End]
	prefix, quoting := unquote(token)

	var cands []Candidate
	if isCommandPosition(buf, tr) {
		cands = commandCandidates(prefix, src)
	} else {
		cmd := commandWord(buf, tr)
		cands = argumentCandidates(prefix, cmd, quoting, src)
	}
	cands = rank(cands, prefix)
	return tr, cands
}

// isCommandPosition reports whether tr is the first word of its job, i.e.
// nothing but whitespace precedes it since the last job/process boundary.
func isCommandPosition(buf string, tr extent.Range) bool {
	before := buf[:tr.Start]
	before = strings.TrimRight(before, " \t")
	if before == "" {
		return true
	}
	last := before[len(before)-1]
	return last == '|' || last == ';' || last == '\n' || last == '&' || last == '('
}

func commandWord(buf string, tr extent.Range) string {
	pr := extent.ProcessExtent(buf, tr.Start)
	word := strings.TrimSpace(buf[pr.Start:tr.Start])
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word = word[:i]
	}
	return word
}

func unquote(token string) (string, Quoting) {
	if len(token) >= 1 && token[0] == '\'' {
		return strings.TrimSuffix(token[1:], "'"), SingleQuote
	}
	if len(token) >= 1 && token[0] == '"' {
		return strings.TrimSuffix(token[1:], "\""), DoubleQuote
	}
	return token, NoQuote
}

func commandCandidates(prefix string, src Sources) []Candidate {
	var out []Candidate
	seen := map[string]bool{}
	add := func(name, desc string) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Candidate{Replacement: name, Description: desc})
	}
	for _, b := range src.Builtins {
		if matches(b, prefix) {
			add(b, "builtin")
		}
	}
	for _, f := range src.Functions {
		if matches(f, prefix) {
			add(f, "function")
		}
	}
	for _, dir := range src.Path {
		entries := src.ReadDir(dir)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if matches(e.Name(), prefix) {
				add(e.Name(), "command")
			}
		}
	}
	return out
}

func argumentCandidates(prefix, command string, quoting Quoting, src Sources) []Candidate {
	var out []Candidate
	switch {
	case quoting != SingleQuote && strings.HasPrefix(prefix, "$"):
		name := prefix[1:]
		for k := range src.Env {
			if matches(k, name) {
				out = append(out, Candidate{Replacement: "$" + k, Description: "variable"})
			}
		}
	case quoting == NoQuote && strings.HasPrefix(prefix, "~"):
		name := prefix[1:]
		for _, u := range src.Users {
			if matches(u, name) {
				out = append(out, Candidate{Replacement: "~" + u, Description: "user"})
			}
		}
	case quoting == NoQuote && strings.ContainsAny(prefix, "*?"):
		out = append(out, wildcardCandidates(prefix, src)...)
	default:
		if src.ArgSpec != nil {
			out = append(out, src.ArgSpec(command)...)
		}
		out = append(out, fileCandidates(prefix, src)...)
	}
	return out
}

func wildcardCandidates(pattern string, src Sources) []Candidate {
	dir, base := filepath.Split(pattern)
	if dir == "" {
		dir = "."
	}
	var out []Candidate
	for _, e := range src.ReadDir(dir) {
		ok, _ := filepath.Match(base, e.Name())
		if ok {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			out = append(out, Candidate{Replacement: filepath.Join(dir, name), FuzzyMatch: false})
		}
	}
	return out
}

func fileCandidates(prefix string, src Sources) []Candidate {
	dir, base := filepath.Split(prefix)
	lookDir := dir
	if lookDir == "" {
		lookDir = "."
	}
	var out []Candidate
	for _, e := range src.ReadDir(lookDir) {
		name := e.Name()
		if base == "" && strings.HasPrefix(name, ".") {
			continue
		}
		if !matches(name, base) {
			continue
		}
		full := dir + name
		if e.IsDir() {
			full += "/"
		}
		out = append(out, Candidate{Replacement: full})
	}
	return out
}

func matches(name, prefix string) bool {
	if strings.HasPrefix(name, prefix) {
		return true
	}
	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		return true
	}
	return fuzzySubsequence(strings.ToLower(name), strings.ToLower(prefix))
}

func fuzzySubsequence(name, needle string) bool {
	i := 0
	for _, r := range name {
		if i >= len(needle) {
			return true
		}
		if rune(needle[i]) == r {
			i++
		}
	}
	return i >= len(needle)
}

// tier computes the ranking tier for sorting: 0 = exact prefix, 1 =
// case-insensitive prefix, 2 = fuzzy subsequence.
func tier(name, prefix string) int {
	if strings.HasPrefix(name, prefix) {
		return 0
	}
	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		return 1
	}
	return 2
}

// rank sorts candidates by (tier, case-match, length, lexicographic) and
// collapses candidates with equal Replacement, concatenating descriptions.
func rank(cands []Candidate, prefix string) []Candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		ti, tj := tier(cands[i].Replacement, prefix), tier(cands[j].Replacement, prefix)
		if ti != tj {
			return ti < tj
		}
		ci := strings.HasPrefix(cands[i].Replacement, prefix)
		cj := strings.HasPrefix(cands[j].Replacement, prefix)
		if ci != cj {
			return ci
		}
		if len(cands[i].Replacement) != len(cands[j].Replacement) {
			return len(cands[i].Replacement) < len(cands[j].Replacement)
		}
		return cands[i].Replacement < cands[j].Replacement
	})
	var out []Candidate
	for _, c := range cands {
		if len(out) > 0 && out[len(out)-1].Replacement == c.Replacement {
			last := &out[len(out)-1]
			if c.Description != "" {
				if last.Description == "" {
					last.Description = c.Description
				} else {
					last.Description += ", " + c.Description
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// CommonPrefix returns the longest string that is a prefix of every
// candidate's Replacement, or "" if there is no such prefix or fewer than
// one candidate.
func CommonPrefix(cands []Candidate) string {
	if len(cands) == 0 {
		return ""
	}
	p := cands[0].Replacement
	for _, c := range cands[1:] {
		p = commonPrefixOf(p, c.Replacement)
		if p == "" {
			return ""
		}
	}
	return p
}

func commonPrefixOf(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// Insertion describes what the reader should do with a completion result,
// implementing spec.md §4.5's insertion rule.
type Insertion struct {
	// Text to insert, replacing the token range returned by Complete.
	Text string
	// Space reports whether a trailing separator should be appended.
	Space bool
	// LaunchPager reports that the candidate list should instead go to the
	// pager (C6) because no single insertion resolves the ambiguity.
	LaunchPager bool
}

// Insert decides the Insertion for a completed token, given its current
// text and the ranked candidate list.
func Insert(currentToken string, cands []Candidate) Insertion {
	if len(cands) == 1 {
		c := cands[0]
		return Insertion{Text: c.Replacement, Space: !c.NoSpace}
	}
	if len(cands) == 0 {
		return Insertion{}
	}
	prefix := CommonPrefix(cands)
	unquoted, _ := unquote(currentToken)
	if len(prefix) > len(unquoted) {
		return Insertion{Text: prefix, Space: false}
	}
	return Insertion{LaunchPager: true}
}
