// Package xref builds the corpus-wide views over parsed blueprints: sections
// regrouped into pages by ownership tag, and the requirement index.
package xref

import (
	"log/slog"
	"sort"

	"github.com/FocuswithJustin/blueprint/core/markup"
)

// FreePage is the reserved page for sections no owner claims.
const FreePage = "_free_"

// Origin locates a section in the corpus.
type Origin struct {
	// Document is the name of the blueprint the section came from.
	Document string `json:"document"`

	// Heading is the section's heading text.
	Heading string `json:"heading"`

	// Rank is the section's heading rank.
	Rank int `json:"rank"`
}

func (o Origin) String() string {
	return o.Document + "#" + o.Heading
}

func originOf(doc string, s *markup.Section) Origin {
	return Origin{Document: doc, Heading: s.Heading.Text, Rank: s.Heading.Rank}
}

// Requirement is a named entry gathered from a Requires-tagged section.
type Requirement struct {
	// Name is the Requires tag name.
	Name string `json:"name"`

	// Document is the blueprint that declared the surviving entry.
	Document string `json:"document"`

	// Content is a deep copy of the declaring section.
	Content *markup.Section `json:"content"`

	// Satisfies holds the Satisfies tags on the declaring heading.
	Satisfies []markup.Tag `json:"satisfies,omitempty"`

	// ClaimedBy lists every section whose heading satisfies this
	// requirement, in traversal order.
	ClaimedBy []Origin `json:"claimed_by,omitempty"`
}

// Origin returns where the surviving entry was declared.
func (r *Requirement) Origin() Origin {
	return originOf(r.Document, r.Content)
}

// Duplicate records one requirement entry replacing an earlier one.
type Duplicate struct {
	Name        string `json:"name"`
	Replaced    Origin `json:"replaced"`
	Replacement Origin `json:"replacement"`
}

// Claim is a Satisfies tag seen on a section.
type Claim struct {
	Name   string `json:"name"`
	Origin Origin `json:"origin"`
}

// Options configures Build. A nil *Options uses the defaults.
type Options struct {
	// Logger receives duplicate-requirement warnings. Defaults to slog.Default().
	Logger *slog.Logger

	// DocumentPages sends sections without an owner to a page named after
	// their document instead of FreePage.
	DocumentPages bool

	// DefaultOwners maps a document name to the page its untagged sections
	// belong to, typically from the document's front matter.
	DefaultOwners map[string]string
}

// Result holds the two cross-reference views.
type Result struct {
	// Pages maps a page name to a synthetic blueprint of the sections it owns.
	Pages map[string]*markup.Blueprint

	// Requirements maps a requirement name to its surviving entry.
	Requirements map[string]*Requirement

	// Duplicates lists every replaced requirement, in traversal order.
	Duplicates []Duplicate

	// Dangling lists Satisfies tags naming no known requirement.
	Dangling []Claim
}

// PageNames returns the page names in sorted order.
func (r *Result) PageNames() []string {
	return sortedKeys(r.Pages)
}

// RequirementNames returns the requirement names in sorted order.
func (r *Result) RequirementNames() []string {
	return sortedKeys(r.Requirements)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Order returns the documents in traversal order: stable-sorted by name.
// The input slice is not modified.
func Order(docs []*markup.Blueprint) []*markup.Blueprint {
	ordered := make([]*markup.Blueprint, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// Build distributes sections into pages and gathers the requirement index.
// Documents are visited in Order; when two sections declare the same
// requirement the later one wins and the replacement is logged.
func Build(docs []*markup.Blueprint, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &builder{
		opts:   opts,
		logger: logger,
		result: &Result{
			Pages:        make(map[string]*markup.Blueprint),
			Requirements: make(map[string]*Requirement),
		},
	}

	ordered := Order(docs)
	for _, doc := range ordered {
		b.reassemble(doc)
	}
	var claims []Claim
	for _, doc := range ordered {
		claims = append(claims, b.gather(doc)...)
	}
	b.resolve(claims)
	return b.result
}

type builder struct {
	opts   *Options
	logger *slog.Logger
	result *Result
}

// PageFor returns the page a top-level section of doc is assigned to.
func PageFor(doc string, s *markup.Section, opts *Options) string {
	if owner, ok := s.Heading.Owner(); ok {
		return owner
	}
	if opts != nil {
		if owner := opts.DefaultOwners[doc]; owner != "" {
			return owner
		}
		if opts.DocumentPages && doc != "" {
			return doc
		}
	}
	return FreePage
}

// reassemble moves each top-level section, with its whole subtree, to its page.
func (b *builder) reassemble(doc *markup.Blueprint) {
	for _, s := range doc.Sections() {
		name := PageFor(doc.Name, s, b.opts)
		page, ok := b.result.Pages[name]
		if !ok {
			page = markup.New(name)
			b.result.Pages[name] = page
		}
		page.Root.Subsections = append(page.Root.Subsections, s.Clone())
	}
}

// gather registers one requirement per Requires tag in a pre-order walk and
// returns the Satisfies claims it saw.
func (b *builder) gather(doc *markup.Blueprint) []Claim {
	var claims []Claim
	doc.Walk(func(s *markup.Section) bool {
		origin := originOf(doc.Name, s)
		satisfies := s.Heading.TagsOf(markup.Satisfies)
		for _, t := range satisfies {
			claims = append(claims, Claim{Name: t.Name, Origin: origin})
		}
		for _, t := range s.Heading.TagsOf(markup.Requires) {
			req := &Requirement{
				Name:      t.Name,
				Document:  doc.Name,
				Content:   s.Clone(),
				Satisfies: append([]markup.Tag(nil), satisfies...),
			}
			if prev, ok := b.result.Requirements[t.Name]; ok {
				dup := Duplicate{Name: t.Name, Replaced: prev.Origin(), Replacement: origin}
				b.result.Duplicates = append(b.result.Duplicates, dup)
				b.logger.Warn("duplicate requirement",
					"requirement", t.Name,
					"replaced", dup.Replaced.String(),
					"replacement", dup.Replacement.String())
			}
			b.result.Requirements[t.Name] = req
		}
		return true
	})
	return claims
}

// resolve attaches claims to the requirements they name.
func (b *builder) resolve(claims []Claim) {
	for _, c := range claims {
		req, ok := b.result.Requirements[c.Name]
		if !ok {
			b.result.Dangling = append(b.result.Dangling, c)
			b.logger.Debug("dangling satisfies tag", "requirement", c.Name, "section", c.Origin.String())
			continue
		}
		req.ClaimedBy = append(req.ClaimedBy, c.Origin)
	}
}
