package markup

import "strings"

// TagCategory classifies a heading tag by its leading sigil.
type TagCategory int

const (
	// Simple tags carry no sigil.
	Simple TagCategory = iota
	// Requires tags start with '?' and declare a requirement.
	Requires
	// Satisfies tags start with '=' and claim a requirement.
	Satisfies
)

func (c TagCategory) String() string {
	switch c {
	case Requires:
		return "requires"
	case Satisfies:
		return "satisfies"
	default:
		return "simple"
	}
}

// Sigil returns the prefix character that selects the category.
func (c TagCategory) Sigil() string {
	switch c {
	case Requires:
		return "?"
	case Satisfies:
		return "="
	default:
		return ""
	}
}

// OwnerPrefix marks a Simple tag as an ownership directive.
const OwnerPrefix = "@"

// Tag is a classification label on a heading.
type Tag struct {
	Category TagCategory `json:"category"`
	Name     string      `json:"name"`
}

// Owner reports the page named by an ownership tag ("@name").
// Only Simple tags with a non-empty owner name qualify.
func (t Tag) Owner() (string, bool) {
	if t.Category != Simple || !strings.HasPrefix(t.Name, OwnerPrefix) {
		return "", false
	}
	owner := strings.TrimPrefix(t.Name, OwnerPrefix)
	return owner, owner != ""
}

func (t Tag) String() string {
	return t.Category.Sigil() + t.Name
}

// Span is a run of inline text. It is implemented by Plain, Bold, Italic
// and Strikethrough only.
type Span interface {
	Text() string
	span()
}

type (
	Plain         string
	Bold          string
	Italic        string
	Strikethrough string
)

func (s Plain) Text() string         { return string(s) }
func (s Bold) Text() string          { return string(s) }
func (s Italic) Text() string        { return string(s) }
func (s Strikethrough) Text() string { return string(s) }

func (Plain) span()         {}
func (Bold) span()          {}
func (Italic) span()        {}
func (Strikethrough) span() {}

// Cell is one table cell.
type Cell []Span

// Paragraph is one body element. It is implemented by Empty, Spans and *Table only.
type Paragraph interface {
	paragraph()
}

// Empty marks a paragraph break (one or more blank lines) between body elements.
type Empty struct{}

// Spans is a single line of inline text.
type Spans []Span

// Table is a pipe-delimited table. Heading is nil when the table has no
// heading row.
type Table struct {
	Heading []Cell   `json:"heading,omitempty"`
	Body    [][]Cell `json:"body"`
}

// Width returns the number of cells per row.
func (t *Table) Width() int {
	if len(t.Heading) > 0 {
		return len(t.Heading)
	}
	if len(t.Body) > 0 {
		return len(t.Body[0])
	}
	return 0
}

func (Empty) paragraph()  {}
func (Spans) paragraph()  {}
func (*Table) paragraph() {}

// Heading is a section title. Rank is the number of leading markers.
type Heading struct {
	Rank int    `json:"rank"`
	Tags []Tag  `json:"tags,omitempty"`
	Text string `json:"text"`
}

// TagsOf returns the heading's tags of the given category in source order.
func (h Heading) TagsOf(category TagCategory) []Tag {
	var tags []Tag
	for _, t := range h.Tags {
		if t.Category == category {
			tags = append(tags, t)
		}
	}
	return tags
}

// Owner returns the owner named by the last ownership tag on the heading.
func (h Heading) Owner() (string, bool) {
	for i := len(h.Tags) - 1; i >= 0; i-- {
		if owner, ok := h.Tags[i].Owner(); ok {
			return owner, true
		}
	}
	return "", false
}

// Section is a heading, its body and its subsections. A section exclusively
// owns its subsections.
type Section struct {
	Heading     Heading     `json:"heading"`
	Body        []Paragraph `json:"body,omitempty"`
	Subsections []*Section  `json:"subsections,omitempty"`
}

// Is reports whether the heading carries a tag of the given category.
func (s *Section) Is(category TagCategory) bool {
	for _, t := range s.Heading.Tags {
		if t.Category == category {
			return true
		}
	}
	return false
}

// Walk visits s and its descendants in pre-order. Returning false from fn
// skips the children of that section.
func (s *Section) Walk(fn func(*Section) bool) {
	if !fn(s) {
		return
	}
	for _, sub := range s.Subsections {
		sub.Walk(fn)
	}
}

// Clone returns a deep copy of the section and its subtree.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	c := &Section{
		Heading: Heading{
			Rank: s.Heading.Rank,
			Tags: append([]Tag(nil), s.Heading.Tags...),
			Text: s.Heading.Text,
		},
	}
	if s.Body != nil {
		c.Body = make([]Paragraph, len(s.Body))
		for i, p := range s.Body {
			c.Body[i] = cloneParagraph(p)
		}
	}
	if s.Subsections != nil {
		c.Subsections = make([]*Section, len(s.Subsections))
		for i, sub := range s.Subsections {
			c.Subsections[i] = sub.Clone()
		}
	}
	return c
}

func cloneParagraph(p Paragraph) Paragraph {
	switch p := p.(type) {
	case Spans:
		return append(Spans(nil), p...)
	case *Table:
		t := &Table{Heading: cloneRow(p.Heading)}
		if p.Body != nil {
			t.Body = make([][]Cell, len(p.Body))
			for i, row := range p.Body {
				t.Body[i] = cloneRow(row)
			}
		}
		return t
	default:
		return p
	}
}

func cloneRow(row []Cell) []Cell {
	if row == nil {
		return nil
	}
	out := make([]Cell, len(row))
	for i, c := range row {
		out[i] = append(Cell(nil), c...)
	}
	return out
}

// Blueprint is one parsed document. Root is a synthetic, heading-less section
// whose subsections are the document's rank-1 sections.
type Blueprint struct {
	Name string  `json:"name"`
	Root Section `json:"root"`
}

// New returns a blueprint holding the given top-level sections.
func New(name string, sections ...*Section) *Blueprint {
	return &Blueprint{Name: name, Root: Section{Subsections: sections}}
}

// Sections returns the document's top-level sections.
func (b *Blueprint) Sections() []*Section {
	return b.Root.Subsections
}

// Title returns the first top-level heading text, or "" for an empty document.
func (b *Blueprint) Title() string {
	if len(b.Root.Subsections) == 0 {
		return ""
	}
	return b.Root.Subsections[0].Heading.Text
}

// Walk visits every section of the document in pre-order, excluding the root.
func (b *Blueprint) Walk(fn func(*Section) bool) {
	for _, s := range b.Root.Subsections {
		s.Walk(fn)
	}
}
