// Package site describes the output handed to the renderer: one entry per
// page and per requirement, each with its file name and title.
package site

import (
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/blueprint/core/markup"
	"github.com/FocuswithJustin/blueprint/core/xref"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

// Untitled is the title of a page with no sections.
const Untitled = "Untitled"

// IndexFile is the file name of the site index.
const IndexFile = "index.html"

// Kind distinguishes page entries from requirement entries.
type Kind string

// Entry kinds.
const (
	KindPage        Kind = "page"
	KindRequirement Kind = "requirement"
)

// Entry is one output file.
type Entry struct {
	// FileName is the output file name, relative to the output directory.
	FileName string `json:"file_name"`

	// Title is the display title.
	Title string `json:"title"`

	// Kind says which of Page or Requirement is set.
	Kind Kind `json:"kind"`

	// Name is the page or requirement name.
	Name string `json:"name"`

	// Page is the content of a page entry.
	Page *markup.Blueprint `json:"-"`

	// Requirement is the content of a requirement entry.
	Requirement *xref.Requirement `json:"-"`
}

// Content returns the section tree the entry renders.
func (e Entry) Content() *markup.Section {
	switch e.Kind {
	case KindPage:
		return &e.Page.Root
	case KindRequirement:
		return e.Requirement.Content
	}
	return nil
}

// Site is the complete set of output entries.
type Site struct {
	// Pages are sorted by file name.
	Pages []Entry `json:"pages"`

	// Requirements are sorted by file name.
	Requirements []Entry `json:"requirements"`

	// Stylesheets are theme file paths every entry links to.
	Stylesheets []string `json:"stylesheets"`
}

// Entries returns pages followed by requirements.
func (s *Site) Entries() []Entry {
	out := make([]Entry, 0, len(s.Pages)+len(s.Requirements))
	out = append(out, s.Pages...)
	return append(out, s.Requirements...)
}

const fileExt = ".html"

var separators = strings.NewReplacer("/", "_", "\\", "_")

// PageFileName returns "page_<name>.html" with path separators replaced
// and control characters dropped.
func PageFileName(name string) string {
	return fileName("page_", name)
}

// RequirementFileName returns "req_<name>.html" with path separators
// replaced and control characters dropped.
func RequirementFileName(name string) string {
	return fileName("req_", name)
}

// fileName falls back to plain separator replacement when the sanitized
// name is still invalid (too long, say); the renderer rejects it later.
func fileName(prefix, name string) string {
	raw := prefix + name + fileExt
	if clean, err := validation.SanitizeFilename(raw); err == nil {
		return clean
	}
	return separators.Replace(raw)
}

// fileNames maps each name to a file name built by base, distinct from
// every other name's. Names whose file name is their own verbatim text
// keep it; the rest get "-2", "-3", ... suffixes in name order.
func fileNames(names []string, prefix string, base func(string) string) map[string]string {
	sort.Strings(names)
	out := make(map[string]string, len(names))
	taken := make(map[string]bool, len(names))
	var renamed []string
	for _, name := range names {
		f := base(name)
		if f != prefix+name+fileExt {
			renamed = append(renamed, name)
			continue
		}
		out[name] = f
		taken[f] = true
	}
	for _, name := range renamed {
		f := base(name)
		stem := strings.TrimSuffix(f, fileExt)
		for n := 2; taken[f]; n++ {
			f = stem + "-" + strconv.Itoa(n) + fileExt
		}
		out[name] = f
		taken[f] = true
	}
	return out
}

// PageTitle returns the first top-level heading text, or Untitled.
func PageTitle(bp *markup.Blueprint) string {
	if t := bp.Title(); t != "" {
		return t
	}
	return Untitled
}

// RequirementTitle returns the heading text of the requirement's section.
func RequirementTitle(r *xref.Requirement) string {
	if r.Content == nil || r.Content.Heading.Text == "" {
		return Untitled
	}
	return r.Content.Heading.Text
}

// New builds the site entries from a cross-reference result. Two names
// that map to the same file name (such as "a/b" and "a_b") get distinct
// files; links should use each Entry's FileName.
func New(res *xref.Result, stylesheets []string) *Site {
	s := &Site{Stylesheets: append([]string(nil), stylesheets...)}

	pageNames := make([]string, 0, len(res.Pages))
	for name := range res.Pages {
		pageNames = append(pageNames, name)
	}
	pageFiles := fileNames(pageNames, "page_", PageFileName)
	reqNames := make([]string, 0, len(res.Requirements))
	for name := range res.Requirements {
		reqNames = append(reqNames, name)
	}
	reqFiles := fileNames(reqNames, "req_", RequirementFileName)

	for name, page := range res.Pages {
		s.Pages = append(s.Pages, Entry{
			FileName: pageFiles[name],
			Title:    PageTitle(page),
			Kind:     KindPage,
			Name:     name,
			Page:     page,
		})
	}
	for name, req := range res.Requirements {
		s.Requirements = append(s.Requirements, Entry{
			FileName:    reqFiles[name],
			Title:       RequirementTitle(req),
			Kind:        KindRequirement,
			Name:        name,
			Requirement: req,
		})
	}
	sortEntries(s.Pages)
	sortEntries(s.Requirements)
	return s
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FileName != entries[j].FileName {
			return entries[i].FileName < entries[j].FileName
		}
		return entries[i].Name < entries[j].Name
	})
}
