package markup

import (
	"reflect"
	"testing"
)

func sampleSection() *Section {
	return &Section{
		Heading: Heading{Rank: 1, Text: "net", Tags: []Tag{{Simple, "@ops"}, {Requires, "tls"}, {Simple, "@infra"}}},
		Body: []Paragraph{
			Spans{Plain("a "), Bold("b")},
			Empty{},
			&Table{Body: [][]Cell{{{Plain("x")}, {Plain("y")}}}},
		},
		Subsections: []*Section{{
			Heading: Heading{Rank: 2, Text: "tls", Tags: []Tag{{Satisfies, "tls"}}},
		}},
	}
}

func TestHeadingOwnerUsesLastTag(t *testing.T) {
	owner, ok := sampleSection().Heading.Owner()
	if !ok || owner != "infra" {
		t.Errorf("Owner() = (%q, %v), want (\"infra\", true)", owner, ok)
	}
	if _, ok := (Heading{Tags: []Tag{{Simple, "@"}}}).Owner(); ok {
		t.Error("empty owner tag should be ignored")
	}
}

func TestHeadingTagsOf(t *testing.T) {
	h := sampleSection().Heading
	if got := h.TagsOf(Requires); !reflect.DeepEqual(got, []Tag{{Requires, "tls"}}) {
		t.Errorf("TagsOf(Requires) = %v", got)
	}
	if got := h.TagsOf(Satisfies); got != nil {
		t.Errorf("TagsOf(Satisfies) = %v, want nil", got)
	}
}

func TestSectionIs(t *testing.T) {
	s := sampleSection()
	if !s.Is(Requires) || s.Is(Satisfies) {
		t.Errorf("Is() wrong for %v", s.Heading)
	}
	if !s.Subsections[0].Is(Satisfies) {
		t.Error("subsection should satisfy")
	}
}

func TestSectionCloneIsDeep(t *testing.T) {
	orig := sampleSection()
	c := orig.Clone()
	if !reflect.DeepEqual(orig, c) {
		t.Fatalf("Clone() = %#v, want %#v", c, orig)
	}

	c.Heading.Tags[0].Name = "changed"
	c.Body[0].(Spans)[0] = Plain("changed")
	c.Body[2].(*Table).Body[0][0][0] = Plain("changed")
	c.Subsections[0].Heading.Text = "changed"

	want := sampleSection()
	if !reflect.DeepEqual(orig, want) {
		t.Errorf("mutating the clone changed the original: %#v", orig)
	}

	var nilSection *Section
	if nilSection.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestSectionWalkSkipsChildren(t *testing.T) {
	s := sampleSection()
	var seen []string
	s.Walk(func(sec *Section) bool {
		seen = append(seen, sec.Heading.Text)
		return false
	})
	if !reflect.DeepEqual(seen, []string{"net"}) {
		t.Errorf("Walk visited %v, want [net]", seen)
	}
}

func TestBlueprintTitle(t *testing.T) {
	bp := New("doc", sampleSection())
	if got := bp.Title(); got != "net" {
		t.Errorf("Title() = %q, want %q", got, "net")
	}
	if got := New("empty").Title(); got != "" {
		t.Errorf("Title() of empty = %q", got)
	}
}

func TestTableWidth(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  int
	}{
		{"heading", &Table{Heading: []Cell{nil, nil, nil}, Body: [][]Cell{{nil}}}, 3},
		{"headless", &Table{Body: [][]Cell{{nil, nil}}}, 2},
		{"empty", &Table{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.Width(); got != tt.want {
				t.Errorf("Width() = %d, want %d", got, tt.want)
			}
		})
	}
}
