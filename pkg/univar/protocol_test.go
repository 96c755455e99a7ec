package univar

import "testing"

func TestParseLineSetAndSetExport(t *testing.T) {
	m, ok := ParseLine("set X:hi")
	if !ok || m.Verb != VerbSet || m.Key != "X" || m.Value != "hi" {
		t.Fatalf("unexpected parse: %+v ok=%v", m, ok)
	}
	m, ok = ParseLine("set_export Y:there")
	if !ok || m.Verb != VerbSetExport || m.Key != "Y" || m.Value != "there" {
		t.Fatalf("unexpected parse: %+v ok=%v", m, ok)
	}
}

func TestParseLineValueContainingColonKeepsRestVerbatim(t *testing.T) {
	m, ok := ParseLine("set X:a:b:c")
	if !ok || m.Value != "a:b:c" {
		t.Fatalf("expected the remainder after the first colon to be kept whole, got %+v ok=%v", m, ok)
	}
}

func TestParseLineEraseAndBarrier(t *testing.T) {
	if m, ok := ParseLine("erase X"); !ok || m.Verb != VerbErase || m.Key != "X" {
		t.Fatalf("unexpected parse: %+v ok=%v", m, ok)
	}
	if m, ok := ParseLine("barrier"); !ok || m.Verb != VerbBarrier {
		t.Fatalf("unexpected parse: %+v ok=%v", m, ok)
	}
	if m, ok := ParseLine("barrier_reply"); !ok || m.Verb != VerbBarrierReply {
		t.Fatalf("unexpected parse: %+v ok=%v", m, ok)
	}
}

func TestParseLineUnknownVerbIgnored(t *testing.T) {
	if _, ok := ParseLine("frobnicate X:y"); ok {
		t.Fatalf("unknown verb should not parse")
	}
}

func TestParseLineMalformedUTF8Dropped(t *testing.T) {
	if _, ok := ParseLine("set X:\xff\xfe"); ok {
		t.Fatalf("malformed UTF-8 should be dropped entirely")
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := []string{"plain", "has\nnewline", "has\\backslash", "tab\there", string([]byte{1, 2, 200, 255})}
	for _, c := range cases {
		got := Unescape(Escape(c))
		if got != c {
			t.Fatalf("round trip failed for %q: escaped=%q got=%q", c, Escape(c), got)
		}
	}
}

func TestEncodeMatchesWireFormat(t *testing.T) {
	got := Message{Verb: VerbSet, Key: "X", Value: "hi"}.Encode()
	if got != "set X:hi\n" {
		t.Fatalf("got %q", got)
	}
	got = Message{Verb: VerbBarrierReply}.Encode()
	if got != "barrier_reply\n" {
		t.Fatalf("got %q", got)
	}
}
