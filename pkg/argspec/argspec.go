// Package argspec implements C10: a docopt-style argument grammar
// registry keyed by (command, doc_name). The registration contract is
// grounded conceptually on fish's docopt_registration.cpp under
// original_source/; the grammar parser itself is authored fresh (no
// docopt library appears anywhere in the example pack), in the error-
// carries-a-byte-offset style the rest of this codebase's parsers use
// (pkg/token, pkg/diag). Parsed grammars are cached via the C14
// pkg/argcache bbolt store, keyed by mtime, so a shell restart does not
// re-parse every doc_text on every command invocation.
package argspec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"

	"tide.sh/pkg/diag"
)

// GrammarCache is the subset of pkg/argcache.Cache this package needs, kept
// as an interface so tests can exercise the cache-hit/cache-miss paths
// without an on-disk bbolt file.
type GrammarCache interface {
	Get(command, docName string, mtime int64) (grammar []byte, ok bool)
	Put(command, docName string, mtime int64, grammar []byte) error
}

// ErrorTag satisfies diag.ErrorTag for docopt grammar errors.
type ErrorTag struct{}

func (ErrorTag) ErrorTag() string { return "docopt" }

// ParseError is one grammar parse failure with a byte offset into doc_text.
type ParseError = diag.Error[ErrorTag]

// Option is one `-x`/`--long` descriptor parsed out of a usage line.
type Option struct {
	Short       string // e.g. "-v"
	Long        string // e.g. "--verbose"
	TakesArg    bool
	ArgName     string
	Description string
}

// Grammar is one parsed docopt-style usage block.
type Grammar struct {
	Command string
	DocName string
	Usages  [][]string // each usage line, tokenized
	Options []Option
}

// record is an entry in the registry, preserving registration order so
// "first-registered wins" queries can be answered.
type record struct {
	docName string
	grammar Grammar
}

// Registry maps command name to an ordered list of registered grammars.
type Registry struct {
	byCommand map[string][]record
	cache     GrammarCache
}

// New returns an empty Registry with no backing cache: every Register call
// parses docText from scratch.
func New() *Registry { return &Registry{byCommand: map[string][]record{}} }

// NewCached returns an empty Registry that consults cache (ordinarily a
// *pkg/argcache.Cache) before re-parsing a doc_text whose mtime it has
// already seen, and populates it after a successful fresh parse.
func NewCached(cache GrammarCache) *Registry {
	return &Registry{byCommand: map[string][]record{}, cache: cache}
}

// Register parses docText as a docopt-style grammar for command and
// inserts it keyed by (command, docName); a prior registration with the
// same docName is replaced in place (same position), preserving
// first-registered-wins semantics for any name registered even earlier.
// mtime identifies docText's source file for cache lookups; pass 0 if the
// caller has no cache wired (New) or no meaningful mtime to offer.
func (r *Registry) Register(command, docName, docText string, mtime int64) ([]*ParseError, Grammar) {
	g, errs := r.parseOrLoadCached(command, docName, docText, mtime)
	if len(errs) > 0 {
		return errs, g
	}
	recs := r.byCommand[command]
	for i, rec := range recs {
		if rec.docName == docName {
			recs[i] = record{docName: docName, grammar: g}
			r.byCommand[command] = recs
			return nil, g
		}
	}
	r.byCommand[command] = append(recs, record{docName: docName, grammar: g})
	return nil, g
}

func (r *Registry) parseOrLoadCached(command, docName, docText string, mtime int64) (Grammar, []*ParseError) {
	if r.cache != nil {
		if raw, ok := r.cache.Get(command, docName, mtime); ok {
			var g Grammar
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err == nil {
				return g, nil
			}
			// Corrupt or stale-format cache entry; fall through to a fresh parse.
		}
	}
	g, errs := parseGrammar(command, docName, docText)
	if len(errs) == 0 && r.cache != nil {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(g); err == nil {
			_ = r.cache.Put(command, docName, mtime, buf.Bytes())
		}
	}
	return g, errs
}

// first returns the first-registered grammar for command, if any.
func (r *Registry) first(command string) (Grammar, bool) {
	recs := r.byCommand[command]
	if len(recs) == 0 {
		return Grammar{}, false
	}
	return recs[0].grammar, true
}

// ArgStatus is validate's per-argument verdict.
type ArgStatus struct {
	Index   int
	Valid   bool
	Message string
}

// Validate checks argv against the first-registered grammar for command.
func (r *Registry) Validate(command string, argv []string) []ArgStatus {
	g, ok := r.first(command)
	if !ok {
		return nil
	}
	known := map[string]bool{}
	for _, o := range g.Options {
		if o.Short != "" {
			known[o.Short] = true
		}
		if o.Long != "" {
			known[o.Long] = true
		}
	}
	statuses := make([]ArgStatus, len(argv))
	for i, a := range argv {
		if strings.HasPrefix(a, "-") {
			name := a
			if eq := strings.IndexByte(a, '='); eq >= 0 {
				name = a[:eq]
			}
			if known[name] {
				statuses[i] = ArgStatus{Index: i, Valid: true}
			} else {
				statuses[i] = ArgStatus{Index: i, Valid: false, Message: "unknown option " + name}
			}
		} else {
			statuses[i] = ArgStatus{Index: i, Valid: true}
		}
	}
	return statuses
}

// SuggestNext lists completion candidates for the next argument position,
// given the already-typed argv.
func (r *Registry) SuggestNext(command string, argv []string) []string {
	g, ok := r.first(command)
	if !ok {
		return nil
	}
	used := map[string]bool{}
	for _, a := range argv {
		used[a] = true
	}
	var out []string
	for _, o := range g.Options {
		if o.Long != "" && !used[o.Long] {
			out = append(out, o.Long)
		} else if o.Short != "" && !used[o.Short] {
			out = append(out, o.Short)
		}
	}
	return out
}

// ConditionsFor reports nothing more than whether var participates in any
// registered usage line for command -- the full conditional-expansion
// grammar docopt supports is out of scope for this registry's contract.
func (r *Registry) ConditionsFor(command, varName string) bool {
	g, ok := r.first(command)
	if !ok {
		return false
	}
	for _, usage := range g.Usages {
		for _, tok := range usage {
			if tok == "<"+varName+">" {
				return true
			}
		}
	}
	return false
}

// DescriptionFor returns the registered description for option (either
// its short or long spelling), if any.
func (r *Registry) DescriptionFor(command, option string) (string, bool) {
	g, ok := r.first(command)
	if !ok {
		return "", false
	}
	for _, o := range g.Options {
		if o.Short == option || o.Long == option {
			return o.Description, true
		}
	}
	return "", false
}

// parseGrammar parses a docopt-like doc_text: a "Usage:" block of one or
// more lines, followed by "Options:" lines of the form
// "  -x, --long=<ARG>  description".
func parseGrammar(command, docName, docText string) (Grammar, []*ParseError) {
	g := Grammar{Command: command, DocName: docName}
	var errs []*ParseError

	lines := strings.Split(docText, "\n")
	offset := 0
	section := ""
	sawUsage := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Usage:"):
			section = "usage"
			sawUsage = true
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "Usage:"))
			if rest != "" {
				g.Usages = append(g.Usages, strings.Fields(rest))
			}
		case strings.HasPrefix(trimmed, "Options:"):
			section = "options"
		case trimmed == "":
			// blank line; no-op
		case section == "usage":
			g.Usages = append(g.Usages, strings.Fields(trimmed))
		case section == "options":
			opt, err := parseOptionLine(trimmed, offset)
			if err != nil {
				errs = append(errs, err)
			} else {
				g.Options = append(g.Options, opt)
			}
		}
		offset += len(line) + 1
	}
	if !sawUsage {
		errs = append(errs, &ParseError{Message: "missing Usage: section", Ranging: diag.PointRanging(0)})
	}
	return g, errs
}

func parseOptionLine(line string, offset int) (Option, *ParseError) {
	parts := strings.SplitN(line, "  ", 2)
	spec := strings.TrimSpace(parts[0])
	desc := ""
	if len(parts) > 1 {
		desc = strings.TrimSpace(parts[1])
	}
	if spec == "" {
		return Option{}, &ParseError{Message: "empty option spec", Ranging: diag.PointRanging(offset)}
	}
	var o Option
	o.Description = desc
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		name := tok
		if eq := strings.IndexAny(tok, "=<"); eq >= 0 {
			name = tok[:eq]
			argPart := tok[eq:]
			o.TakesArg = true
			o.ArgName = strings.Trim(argPart, "=<> ")
		}
		if strings.HasPrefix(name, "--") {
			o.Long = name
		} else if strings.HasPrefix(name, "-") {
			o.Short = name
		} else {
			return Option{}, &ParseError{Message: fmt.Sprintf("malformed option token %q", tok), Ranging: diag.PointRanging(offset)}
		}
	}
	if o.Short == "" && o.Long == "" {
		return Option{}, &ParseError{Message: "option spec has no flag", Ranging: diag.PointRanging(offset)}
	}
	return o, nil
}
