package pipeline

import (
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{
			"collapses_crlf_runs",
			"Paris is the capital\r\n\r\n\r\nof France, and more.",
			"Paris is the capital\r\nof France, and more.",
			true,
		},
		{
			"collapses_lf_runs",
			"Paris is the capital\n\n\nof France, and more.",
			"Paris is the capital\nof France, and more.",
			true,
		},
		{
			"drops_invalid_utf8",
			"Paris is the capital of France" + string([]byte{0xff, 0xfe}),
			"Paris is the capital of France",
			true,
		},
		{"rejects_short", "too short", "", false},
		{"rejects_empty", "", "", false},
		{"rejects_whitespace_padding_short", "   hi   \n\n", "", false},
		{
			"trims_whitespace",
			"  Paris is the capital of France  ",
			"Paris is the capital of France",
			true,
		},
	}
	for _, cse := range cases {
		t.Run(cse.name, func(t *testing.T) {
			got, ok := Canonicalize(cse.in)
			if ok != cse.wantOK || got != cse.want {
				t.Fatalf("Canonicalize(%q) = (%q, %v), want (%q, %v)", cse.in, got, ok, cse.want, cse.wantOK)
			}
		})
	}
}

func TestContentHashStable(t *testing.T) {
	text := "Paris is the capital of France"
	first := ContentHash(text)
	second := ContentHash(text)
	if first != second {
		t.Fatalf("hash not stable: %s vs %s", first, second)
	}
	if len(first) != 64 || strings.ToLower(first) != first {
		t.Fatalf("expected 64 lowercase hex chars, got %q", first)
	}
	if ContentHash(text+".") == first {
		t.Fatal("different text must produce a different hash")
	}
}

func TestCanonicalizeThenHashIdentity(t *testing.T) {
	a, okA := Canonicalize("Paris is the capital\r\n\r\nof France today")
	b, okB := Canonicalize("Paris is the capital\r\nof France today")
	if !okA || !okB {
		t.Fatal("both inputs should survive normalization")
	}
	if ContentHash(a) != ContentHash(b) {
		t.Fatal("normalization-equivalent texts must share a hash")
	}
}
