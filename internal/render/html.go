package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/FocuswithJustin/blueprint/core/markup"
	"github.com/FocuswithJustin/blueprint/core/site"
)

const maxHeadingLevel = 6

// SpanHTML renders one span.
func SpanHTML(s markup.Span) string {
	text := template.HTMLEscapeString(s.Text())
	switch s.(type) {
	case markup.Plain:
		return text
	case markup.Bold:
		return "<strong>" + text + "</strong>"
	case markup.Italic:
		return "<em>" + text + "</em>"
	case markup.Strikethrough:
		return "<del>" + text + "</del>"
	}
	return text
}

func spansHTML(spans []markup.Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(SpanHTML(s))
	}
	return b.String()
}

// anchors hands out unique element ids within one document.
type anchors map[string]int

func (a anchors) next(text string) string {
	base, err := slug.Normalize(text)
	if err != nil || base == "" {
		base = "section"
	}
	a[base]++
	if n := a[base]; n > 1 {
		return base + "-" + strconv.Itoa(n)
	}
	return base
}

// linker resolves tag targets to output files.
type linker struct {
	requirements map[string]string
	pages        map[string]string
}

func newLinker(s *site.Site) *linker {
	l := &linker{requirements: make(map[string]string), pages: make(map[string]string)}
	for _, e := range s.Requirements {
		l.requirements[e.Name] = e.FileName
	}
	for _, e := range s.Pages {
		l.pages[e.Name] = e.FileName
	}
	return l
}

// fileURL escapes a file name for use as a relative link, so names with
// spaces, '#' or '?' still point at the file.
func fileURL(name string) string {
	return url.PathEscape(name)
}

func (l *linker) tag(t markup.Tag) (class, href string) {
	if owner, ok := t.Owner(); ok {
		if f, ok := l.pages[owner]; ok {
			href = fileURL(f)
		}
		return "m-owner", href
	}
	switch t.Category {
	case markup.Requires:
		class = "m-requires"
	case markup.Satisfies:
		class = "m-satisfies"
	default:
		return "m-tag", ""
	}
	if f, ok := l.requirements[t.Name]; ok {
		href = fileURL(f)
	}
	return class, href
}

// sectionWriter renders a section tree as HTML.
type sectionWriter struct {
	b       strings.Builder
	anchors anchors
	links   *linker
}

func (w *sectionWriter) heading(h markup.Heading) {
	level := h.Rank
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}
	id := w.anchors.next(h.Text)
	fmt.Fprintf(&w.b, `<h%d id="%s">%s`, level, template.HTMLEscapeString(id), template.HTMLEscapeString(h.Text))
	if len(h.Tags) > 0 {
		w.b.WriteString(`<ul class="m-tags">`)
		for _, t := range h.Tags {
			class, href := w.links.tag(t)
			label := template.HTMLEscapeString(t.String())
			if href != "" {
				fmt.Fprintf(&w.b, `<li class="%s"><a href="%s">%s</a></li>`, class, template.HTMLEscapeString(href), label)
			} else {
				fmt.Fprintf(&w.b, `<li class="%s">%s</li>`, class, label)
			}
		}
		w.b.WriteString(`</ul>`)
	}
	fmt.Fprintf(&w.b, `<a class="m-anchor" href="#%s">#</a></h%d>`, template.HTMLEscapeString(id), level)
	w.b.WriteByte('\n')
}

func (w *sectionWriter) row(tag string, cells []markup.Cell) {
	w.b.WriteString("<tr>")
	for _, c := range cells {
		fmt.Fprintf(&w.b, "<%s>%s</%s>", tag, spansHTML(c), tag)
	}
	w.b.WriteString("</tr>\n")
}

func (w *sectionWriter) paragraph(p markup.Paragraph) {
	switch p := p.(type) {
	case markup.Empty:
		w.b.WriteString(`<p class="m-break"></p>` + "\n")
	case markup.Spans:
		w.b.WriteString("<p>" + spansHTML(p) + "</p>\n")
	case *markup.Table:
		w.b.WriteString(`<table class="m-table">` + "\n")
		if len(p.Heading) > 0 {
			w.b.WriteString("<thead>")
			w.row("th", p.Heading)
			w.b.WriteString("</thead>\n")
		}
		w.b.WriteString("<tbody>\n")
		for _, r := range p.Body {
			w.row("td", r)
		}
		w.b.WriteString("</tbody>\n</table>\n")
	}
}

func (w *sectionWriter) section(s *markup.Section) {
	if s.Heading.Rank > 0 {
		w.b.WriteString("<section>\n")
		w.heading(s.Heading)
	}
	for _, p := range s.Body {
		w.paragraph(p)
	}
	for _, sub := range s.Subsections {
		w.section(sub)
	}
	if s.Heading.Rank > 0 {
		w.b.WriteString("</section>\n")
	}
}

// SectionHTML renders a section tree. Headings get unique anchors and tags
// link to the pages and requirements present in s.
func SectionHTML(sec *markup.Section, s *site.Site) template.HTML {
	w := &sectionWriter{anchors: make(anchors), links: newLinker(s)}
	w.section(sec)
	return template.HTML(w.b.String()) //nolint:gosec // every piece of text is escaped above
}
