package markup

import (
	"strings"
)

// Markup renders a span back into its source form.
func Markup(s Span) string {
	switch s := s.(type) {
	case Plain:
		return string(s)
	case Bold:
		return "*" + string(s) + "*"
	case Italic:
		return "/" + string(s) + "/"
	case Strikethrough:
		return "~" + string(s) + "~"
	}
	return ""
}

// String re-derives the heading line, e.g. "## Login [?auth, =audit]".
func (h Heading) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat(string(HeadingMarker), h.Rank))
	b.WriteByte(' ')
	b.WriteString(h.Text)
	if len(h.Tags) > 0 {
		b.WriteString(" [")
		for i, t := range h.Tags {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
		b.WriteByte(']')
	}
	return b.String()
}

func (s Spans) String() string {
	var b strings.Builder
	for _, span := range s {
		b.WriteString(Markup(span))
	}
	return b.String()
}

func (c Cell) String() string {
	return Spans(c).String()
}

func writeRow(b *strings.Builder, row []Cell) {
	for i, c := range row {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(c.String())
	}
	b.WriteByte('\n')
}

func (t *Table) String() string {
	var b strings.Builder
	if len(t.Heading) > 0 {
		writeRow(&b, t.Heading)
		for i := range t.Heading {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteByte('\n')
	}
	for _, row := range t.Body {
		writeRow(&b, row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s *Section) write(b *strings.Builder) {
	if s.Heading.Rank > 0 {
		b.WriteString(s.Heading.String())
		b.WriteByte('\n')
	}
	for _, p := range s.Body {
		switch p := p.(type) {
		case Empty:
		case Spans:
			b.WriteString(p.String())
		case *Table:
			b.WriteString(p.String())
		}
		b.WriteByte('\n')
	}
	for _, sub := range s.Subsections {
		sub.write(b)
	}
}

// String re-derives the section in source form.
func (s *Section) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

// String re-derives the whole document in source form. Parsing the result
// yields an equivalent blueprint.
func (b *Blueprint) String() string {
	return b.Root.String()
}
