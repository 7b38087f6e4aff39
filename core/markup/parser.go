package markup

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
)

// Parse failure kinds. Every error returned by the parser is a
// *apperrors.ParseError that unwraps to one of these.
var (
	ErrMismatchedDelimiters = errors.New("mismatched span delimiters")
	ErrHeadingRank          = errors.New("wrong heading rank")
	ErrTableCells           = errors.New("table cell count mismatch")
	ErrIncompleteParse      = errors.New("incomplete parse")
)

// HeadingMarker starts a heading; the run length is the heading rank.
const HeadingMarker = '#'

const (
	cellDelimiter = '|'
	tagListOpen   = '['
	tagListClose  = ']'
	nearLength    = 24
)

// Parse parses a whole document. Either the full text is consumed or an
// error is returned; there are no partial results.
func Parse(name, text string) (*Blueprint, error) {
	p := &parser{name: name, text: text}
	bp := &Blueprint{Name: name}
	for {
		s, ok := p.section(1)
		if !ok {
			break
		}
		bp.Root.Subsections = append(bp.Root.Subsections, s)
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return bp, nil
}

// ParseSpan parses exactly one span.
func ParseSpan(text string) (Span, error) {
	p := &parser{text: text}
	s, ok := p.span(false)
	if !ok && p.err == nil {
		return nil, p.incomplete()
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseBody parses a run of paragraphs and tables without a heading.
func ParseBody(text string) ([]Paragraph, error) {
	p := &parser{text: text}
	body := p.body()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return body, nil
}

// ParseHeading parses a single heading line of the given rank.
func ParseHeading(text string, rank int) (Heading, error) {
	p := &parser{text: text}
	h, ok := p.heading(rank)
	if !ok && p.err == nil {
		return Heading{}, p.incomplete()
	}
	if err := p.finish(); err != nil {
		return Heading{}, err
	}
	return h, nil
}

// ParseSection parses one section of the given rank, including its subsections.
func ParseSection(text string, rank int) (*Section, error) {
	p := &parser{text: text}
	s, ok := p.section(rank)
	if !ok && p.err == nil {
		return nil, p.incomplete()
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// rankFailure records the furthest heading rejected for its rank.
type rankFailure struct {
	set    bool
	offset int
	got    int
	want   int
}

// parser is a backtracking recursive-descent parser. Rules return false
// and restore pos on a soft failure; err is set on a hard failure and
// makes every rule fail from then on.
type parser struct {
	name string
	text string
	pos  int
	err  *apperrors.ParseError
	rank rankFailure
}

func (p *parser) eof() bool { return p.pos >= len(p.text) }

func (p *parser) peek() byte { return p.text[p.pos] }

func isNewline(c byte) bool { return c == '\n' || c == '\r' }

func isInlineSpace(c byte) bool { return c == ' ' || c == '\t' }

func isDecoration(c byte) bool { return c == '*' || c == '/' || c == '~' }

func decorate(delim byte, text string) Span {
	switch delim {
	case '*':
		return Bold(text)
	case '/':
		return Italic(text)
	default:
		return Strikethrough(text)
	}
}

// ws skips inline whitespace.
func (p *parser) ws() {
	for !p.eof() && isInlineSpace(p.peek()) {
		p.pos++
	}
}

// eol matches inline whitespace followed by one or more newlines, then any
// further whitespace-only lines.
func (p *parser) eol() bool {
	start := p.pos
	p.ws()
	if p.eof() || !isNewline(p.peek()) {
		p.pos = start
		return false
	}
	for {
		for !p.eof() && isNewline(p.peek()) {
			p.pos++
		}
		mark := p.pos
		p.ws()
		if p.eof() || !isNewline(p.peek()) {
			p.pos = mark
			return true
		}
	}
}

// eoc matches the end of a construct: end-of-line or end-of-input.
func (p *parser) eoc() bool {
	start := p.pos
	p.ws()
	if p.eof() {
		return true
	}
	p.pos = start
	return p.eol()
}

// atEOC reports whether eoc would match at i without consuming input.
func (p *parser) atEOC(i int) bool {
	for i < len(p.text) && isInlineSpace(p.text[i]) {
		i++
	}
	return i >= len(p.text) || isNewline(p.text[i])
}

func (p *parser) blankLines() {
	for p.eol() {
	}
}

func (p *parser) fail(offset int, kind error, msg string) {
	if p.err != nil {
		return
	}
	p.err = p.newError(offset, kind, msg)
}

func (p *parser) newError(offset int, kind error, msg string) *apperrors.ParseError {
	line := strings.Count(p.text[:offset], "\n") + 1
	col := offset - strings.LastIndexByte(p.text[:offset], '\n')
	near := p.text[offset:]
	if i := strings.IndexAny(near, "\r\n"); i >= 0 {
		near = near[:i]
	}
	if len(near) > nearLength {
		near = near[:nearLength]
	}
	return &apperrors.ParseError{
		Document: p.name,
		Offset:   offset,
		Line:     line,
		Column:   col,
		Near:     near,
		Message:  msg,
		Kind:     kind,
	}
}

// rejectRank notes a well-formed heading refused only because of its rank.
func (p *parser) rejectRank(offset, got, want int) {
	switch {
	case !p.rank.set || offset > p.rank.offset:
		p.rank = rankFailure{set: true, offset: offset, got: got, want: want}
	case offset == p.rank.offset && want > p.rank.want:
		p.rank.want = want
	}
}

// finish requires that only whitespace remains.
func (p *parser) finish() error {
	if p.err != nil {
		return p.err
	}
	for !p.eof() && (isInlineSpace(p.peek()) || isNewline(p.peek())) {
		p.pos++
	}
	if !p.eof() {
		return p.incomplete()
	}
	return nil
}

func (p *parser) incomplete() error {
	if p.err != nil {
		return p.err
	}
	offset := p.pos
	for offset < len(p.text) && (isInlineSpace(p.text[offset]) || isNewline(p.text[offset])) {
		offset++
	}
	if p.rank.set && p.rank.offset == offset {
		expected := "1"
		if p.rank.want > 1 {
			expected = fmt.Sprintf("1 to %d", p.rank.want)
		}
		return p.newError(offset, ErrHeadingRank,
			fmt.Sprintf("heading rank %d where rank %s expected", p.rank.got, expected))
	}
	return p.newError(offset, ErrIncompleteParse, "")
}

// plain consumes a maximal run of text up to end-of-line or a decoration
// character. Inside a table cell it also stops at the cell delimiter.
func (p *parser) plain(cell bool) (string, bool) {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isNewline(c) || isDecoration(c) || (cell && c == cellDelimiter) {
			break
		}
		if isInlineSpace(c) {
			run := p.pos
			for run < len(p.text) && isInlineSpace(p.text[run]) {
				run++
			}
			if run >= len(p.text) || isNewline(p.text[run]) {
				break
			}
			p.pos = run
			continue
		}
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.text[start:p.pos], true
}

// decorated parses delim PLAIN delim. Outside table cells an open delimiter
// that is not closed by the same character is a hard error, since no other
// rule can consume it.
func (p *parser) decorated(cell bool) (Span, bool) {
	start := p.pos
	if p.eof() || !isDecoration(p.peek()) {
		return nil, false
	}
	open := p.peek()
	p.pos++
	text, ok := p.plain(cell)
	if !ok || p.eof() || !isDecoration(p.peek()) {
		if !cell {
			msg := fmt.Sprintf("unterminated %q span", open)
			if !ok && !p.eof() && isDecoration(p.peek()) {
				msg = fmt.Sprintf("empty %q span", open)
			}
			p.fail(start, ErrMismatchedDelimiters, msg)
		}
		p.pos = start
		return nil, false
	}
	if closing := p.peek(); closing != open {
		if !cell {
			p.fail(start, ErrMismatchedDelimiters,
				fmt.Sprintf("span opened with %q but closed with %q", open, closing))
		}
		p.pos = start
		return nil, false
	}
	p.pos++
	return decorate(open, text), true
}

// span tries a decorated span before a plain one.
func (p *parser) span(cell bool) (Span, bool) {
	if p.err != nil {
		return nil, false
	}
	if s, ok := p.decorated(cell); ok {
		return s, true
	}
	if p.err != nil {
		return nil, false
	}
	text, ok := p.plain(cell)
	if !ok {
		return nil, false
	}
	return Plain(text), true
}

// paragraph parses one line of spans. It returns the offset where the
// content ended, before its terminator.
func (p *parser) paragraph() (Spans, int, bool) {
	start := p.pos
	if p.eof() || p.peek() == HeadingMarker {
		return nil, 0, false
	}
	var spans Spans
	for !p.atEOC(p.pos) {
		s, ok := p.span(false)
		if !ok {
			break
		}
		spans = append(spans, s)
	}
	end := p.pos
	if p.err != nil || len(spans) == 0 || !p.eoc() {
		p.pos = start
		return nil, 0, false
	}
	return spans, end, true
}

// cell parses the spans between two cell delimiters, trimming surrounding
// whitespace. An empty cell holds no spans.
func (p *parser) cell() (Cell, bool) {
	p.ws()
	var cell Cell
	for !p.eof() && p.peek() != cellDelimiter && !p.atEOC(p.pos) {
		s, ok := p.span(true)
		if !ok {
			return nil, false
		}
		cell = append(cell, s)
	}
	if n := len(cell); n > 0 {
		if last, ok := cell[n-1].(Plain); ok {
			trimmed := strings.TrimRight(string(last), " \t")
			if trimmed == "" {
				cell = cell[:n-1]
			} else {
				cell[n-1] = Plain(trimmed)
			}
		}
	}
	return cell, true
}

// row parses two or more delimited cells terminated by end-of-construct.
func (p *parser) row() ([]Cell, int, bool) {
	start := p.pos
	if p.eof() || p.peek() == HeadingMarker {
		return nil, 0, false
	}
	var cells []Cell
	for {
		c, ok := p.cell()
		if !ok {
			p.pos = start
			return nil, 0, false
		}
		cells = append(cells, c)
		if p.eof() || p.peek() != cellDelimiter {
			break
		}
		p.pos++
	}
	end := p.pos
	if len(cells) < 2 || !p.eoc() {
		p.pos = start
		return nil, 0, false
	}
	return cells, end, true
}

// separator parses a row of '-' and ' ' groups and returns its cell count.
func (p *parser) separator() (int, bool) {
	start := p.pos
	cells, dashes := 0, 0
	for {
		from := p.pos
		for !p.eof() && (p.peek() == '-' || p.peek() == ' ') {
			if p.peek() == '-' {
				dashes++
			}
			p.pos++
		}
		if p.pos == from {
			p.pos = start
			return 0, false
		}
		cells++
		if p.eof() || p.peek() != cellDelimiter {
			break
		}
		p.pos++
	}
	if cells < 2 || dashes == 0 || !p.eoc() {
		p.pos = start
		return 0, false
	}
	return cells, true
}

// table parses an optional heading row and separator followed by one or
// more body rows.
func (p *parser) table() (*Table, int, bool) {
	start := p.pos
	t := &Table{}
	if head, _, ok := p.row(); ok {
		sepStart := p.pos
		if n, ok := p.separator(); ok {
			if n != len(head) {
				p.fail(sepStart, ErrTableCells,
					fmt.Sprintf("separator has %d cells but heading row has %d", n, len(head)))
				return nil, 0, false
			}
			t.Heading = head
		} else {
			p.pos = start
		}
	}

	end := 0
	for {
		rowStart := p.pos
		cells, rowEnd, ok := p.row()
		if !ok {
			break
		}
		if w := t.Width(); w > 0 && len(cells) != w {
			p.fail(rowStart, ErrTableCells,
				fmt.Sprintf("row has %d cells but table has %d", len(cells), w))
			return nil, 0, false
		}
		t.Body = append(t.Body, cells)
		end = rowEnd
	}
	if len(t.Body) == 0 {
		p.pos = start
		return nil, 0, false
	}
	return t, end, true
}

// body parses one or more tables or paragraphs in source order. A blank
// line between two elements is recorded as an Empty paragraph.
func (p *parser) body() []Paragraph {
	var body []Paragraph
	prevEnd := -1
	for p.err == nil {
		start := p.pos
		p.blankLines()
		itemStart := p.pos

		var item Paragraph
		var end int
		ok := false
		if t, e, tok := p.table(); tok {
			item, end, ok = t, e, true
		} else if p.err == nil {
			if s, e, sok := p.paragraph(); sok {
				item, end, ok = s, e, true
			}
		}
		if !ok {
			p.pos = start
			break
		}

		if prevEnd >= 0 && lineBreaks(p.text[prevEnd:itemStart]) > 1 {
			body = append(body, Empty{})
		}
		body = append(body, item)
		prevEnd = end
	}
	return body
}

func lineBreaks(s string) int {
	if n := strings.Count(s, "\n"); n > 0 {
		return n
	}
	return strings.Count(s, "\r")
}

// headingWords parses space-separated words containing no newline or '['.
func (p *parser) headingWords() (string, bool) {
	start := p.pos
	end := -1
	for {
		from := p.pos
		for !p.eof() {
			c := p.peek()
			if isNewline(c) || isInlineSpace(c) || c == tagListOpen {
				break
			}
			p.pos++
		}
		if p.pos == from {
			p.pos = from
			break
		}
		end = p.pos
		p.ws()
	}
	if end < 0 {
		p.pos = start
		return "", false
	}
	p.pos = end
	return p.text[start:end], true
}

// heading parses a heading of the expected rank. A heading that is well
// formed but of another rank fails softly and is remembered for diagnostics.
func (p *parser) heading(rank int) (Heading, bool) {
	start := p.pos
	fail := func() (Heading, bool) {
		p.pos = start
		return Heading{}, false
	}
	if p.err != nil {
		return fail()
	}

	for !p.eof() && p.peek() == HeadingMarker {
		p.pos++
	}
	got := p.pos - start
	if got == 0 {
		return fail()
	}
	p.ws()
	text, ok := p.headingWords()
	if !ok {
		return fail()
	}
	p.ws()

	var tags []Tag
	if !p.eof() && p.peek() == tagListOpen {
		n := strings.IndexAny(p.text[p.pos:], "]\r\n")
		if n < 0 || p.text[p.pos+n] != tagListClose {
			return fail()
		}
		parsed, err := ParseTags(p.text[p.pos : p.pos+n+1])
		if err != nil {
			return fail()
		}
		tags = parsed
		p.pos += n + 1
	}
	if !p.eoc() {
		return fail()
	}
	if got != rank {
		p.rejectRank(start, got, rank)
		return fail()
	}
	return Heading{Rank: got, Tags: tags, Text: text}, true
}

// section parses a heading of the given rank, its optional body and any
// number of sections one rank deeper.
func (p *parser) section(rank int) (*Section, bool) {
	start := p.pos
	if p.err != nil {
		return nil, false
	}
	p.blankLines()
	h, ok := p.heading(rank)
	if !ok {
		p.pos = start
		return nil, false
	}
	s := &Section{Heading: h}
	s.Body = p.body()
	for p.err == nil {
		sub, ok := p.section(rank + 1)
		if !ok {
			break
		}
		s.Subsections = append(s.Subsections, sub)
	}
	if p.err != nil {
		return nil, false
	}
	return s, true
}
