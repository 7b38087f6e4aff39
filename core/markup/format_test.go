package markup

import (
	"reflect"
	"testing"
)

func TestMarkup(t *testing.T) {
	tests := []struct {
		span Span
		want string
	}{
		{Plain("a"), "a"},
		{Bold("a"), "*a*"},
		{Italic("a"), "/a/"},
		{Strikethrough("a"), "~a~"},
	}
	for _, tt := range tests {
		if got := Markup(tt.span); got != tt.want {
			t.Errorf("Markup(%#v) = %q, want %q", tt.span, got, tt.want)
		}
	}
}

func TestHeadingString(t *testing.T) {
	h := Heading{Rank: 2, Text: "Login flow", Tags: []Tag{{Simple, "a"}, {Requires, "b"}, {Satisfies, "c"}}}
	if got, want := h.String(), "## Login flow [a, ?b, =c]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (Heading{Rank: 1, Text: "x"}).String(), "# x"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTableString(t *testing.T) {
	table := &Table{
		Heading: []Cell{{Plain("h")}, {Bold("k")}},
		Body:    [][]Cell{{{Plain("a")}, nil}},
	}
	if got, want := table.String(), "h | *k*\n--- | ---\na | "; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestBlueprintRoundTrip(t *testing.T) {
	inputs := []string{
		"# a [b]\n## c",
		"# Auth [@security, ?login]\nUsers use a *password* or a /token/.\n\n~old~ flow\n## Sessions [=login]\nname | life\n---- | ----\nweb | 12h\n# Other\na|b\nc|d\n",
	}

	for _, input := range inputs {
		first, err := Parse("doc", input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		text := first.String()
		second, err := Parse("doc", text)
		if err != nil {
			t.Fatalf("re-parsing %q: %v", text, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip of %q\n got %#v\nwant %#v", input, second, first)
		}
	}
}
