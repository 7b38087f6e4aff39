package markup

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// tagListGrammar is the participle grammar for a heading tag list.
// Examples: "[a]", "[?req, =sat]", "[@team, this is a tag]"
//
//nolint:govet // participle grammar tags are not standard struct tags
type tagListGrammar struct {
	Tags []*tagGrammar `parser:"\"[\" @@ ( \",\" @@ )* \"]\""`
}

//nolint:govet // participle grammar tags are not standard struct tags
type tagGrammar struct {
	Lead  string `parser:"@Whitespace?"`
	Sigil string `parser:"@Sigil?"`
	Name  string `parser:"@(Word | Sigil | Whitespace | \"[\")+"`
}

// tagLexer splits a tag list. Sigils are only significant at the start of a
// tag; elsewhere they are folded back into the name, as is an inner '['.
var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Sigil", Pattern: `[?=]`},
	{Name: "Punct", Pattern: `[\[\],]`},
	{Name: "Word", Pattern: `[^\[\],?= \t\r\n]+`},
})

// tagListParser is the participle parser for heading tag lists.
var tagListParser = participle.MustBuild[tagListGrammar](
	participle.Lexer(tagLexer),
)

// ParseTags parses a bracketed tag list such as "[?a, =b, c]".
func ParseTags(s string) ([]Tag, error) {
	parsed, err := tagListParser.ParseString("", s)
	if err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(parsed.Tags))
	for _, t := range parsed.Tags {
		tag := Tag{Name: strings.TrimRight(t.Name, " \t")}
		switch t.Sigil {
		case "?":
			tag.Category = Requires
		case "=":
			tag.Category = Satisfies
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
