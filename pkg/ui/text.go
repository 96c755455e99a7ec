package ui

import "sort"

// Segment is a run of text with one Style.
type Segment struct {
	Text  string
	Style Style
}

// StyleSegment returns a copy of seg with f applied to its Style.
func StyleSegment(seg *Segment, f Styling) *Segment {
	if f == nil {
		return seg
	}
	cp := *seg
	cp.Style = f.Apply(cp.Style)
	return &cp
}

// Text is a styled string: a sequence of Segments.
type Text []*Segment

// T builds a Text out of a single unstyled (or, with stylings, styled)
// string, mirroring the teacher's ui.T helper.
func T(s string, stylings ...Styling) Text {
	seg := &Segment{Text: s}
	for _, f := range stylings {
		seg = StyleSegment(seg, f)
	}
	return Text{seg}
}

// String concatenates the text of every segment, discarding styling.
func (t Text) String() string {
	var b []byte
	for _, seg := range t {
		b = append(b, seg.Text...)
	}
	return string(b)
}

// Clone returns a deep copy of t; mutating the clone's segments does not
// affect t.
func (t Text) Clone() Text {
	cp := make(Text, len(t))
	for i, seg := range t {
		s := *seg
		cp[i] = &s
	}
	return cp
}

// StylingRegion applies a Styling to a byte range of a string.
type StylingRegion struct {
	From, To int
	Styling  Styling
	Priority int
}

// StyleRegions applies non-overlapping regions (highest priority wins ties,
// earlier-starting regions win overlaps) to s and returns the resulting
// Text. This is the same algorithm the teacher's pkg/ui/style_regions.go
// uses for applying disjoint highlighter regions to a code string.
func StyleRegions(s string, regions []StylingRegion) Text {
	regions = fixRegions(regions)
	var text Text
	last := 0
	for _, r := range regions {
		if r.From > last {
			text = append(text, &Segment{Text: s[last:r.From]})
		}
		text = append(text, StyleSegment(&Segment{Text: s[r.From:r.To]}, r.Styling))
		last = r.To
	}
	if len(s) > last {
		text = append(text, &Segment{Text: s[last:]})
	}
	return text
}

func fixRegions(regions []StylingRegion) []StylingRegion {
	regions = append([]StylingRegion(nil), regions...)
	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		return a.From < b.From || (a.From == b.From && a.Priority > b.Priority)
	})
	var out []StylingRegion
	last := 0
	for _, r := range regions {
		if r.From < last {
			continue
		}
		out = append(out, r)
		last = r.To
	}
	return out
}
