// Package render turns a site description into HTML files using the
// embedded templates.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/core/site"
	"github.com/FocuswithJustin/blueprint/core/xref"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

//go:embed templates/*.html
var templatesFS embed.FS

// IndexTitle is the heading of the index page.
const IndexTitle = "Blueprint index"

// Options carries the values every page footer and head shows.
type Options struct {
	Version string
	BuildID string
}

// Renderer renders the entries of one site.
type Renderer struct {
	tmpl *template.Template
	site *site.Site
	opts Options
}

// File is one written output file.
type File struct {
	// Path is relative to the output directory, slash separated.
	Path string
	Size int64
}

type pageData struct {
	Title       string
	Stylesheets []string
	Version     string
	BuildID     string
	Entry       site.Entry
	Content     template.HTML
	Requirement *xref.Requirement
	Site        *site.Site
}

var templateFuncs = template.FuncMap{
	"claims": func(e site.Entry) string {
		if e.Requirement == nil || len(e.Requirement.ClaimedBy) == 0 {
			return "unclaimed"
		}
		n := len(e.Requirement.ClaimedBy)
		if n == 1 {
			return "1 claim"
		}
		return humanize.Comma(int64(n)) + " claims"
	},
	"fileURL": fileURL,
}

// New parses the embedded templates for s.
func New(s *site.Site, opts Options) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, site: s, opts: opts}, nil
}

func (r *Renderer) data(title string) pageData {
	return pageData{
		Title:       title,
		Stylesheets: r.site.Stylesheets,
		Version:     r.opts.Version,
		BuildID:     r.opts.BuildID,
		Site:        r.site,
	}
}

// Entry renders a page or requirement entry.
func (r *Renderer) Entry(w io.Writer, e site.Entry) error {
	d := r.data(e.Title)
	d.Entry = e
	d.Content = SectionHTML(e.Content(), r.site)

	name := "page.html"
	if e.Kind == site.KindRequirement {
		name = "requirement.html"
		d.Requirement = e.Requirement
	}
	if err := r.tmpl.ExecuteTemplate(w, name, d); err != nil {
		return apperrors.Wrapf(err, "render %s", e.FileName)
	}
	return nil
}

// Index renders the index page.
func (r *Renderer) Index(w io.Writer) error {
	if err := r.tmpl.ExecuteTemplate(w, "index.html", r.data(IndexTitle)); err != nil {
		return apperrors.Wrap(err, "render index")
	}
	return nil
}

type job struct {
	fileName string
	render   func(io.Writer) error
}

type result struct {
	file File
	err  error
}

// WriteAll renders every entry and the index into outDir using up to
// workers goroutines. Files are returned sorted by path. When several files
// fail, the error is the first in index, pages, requirements order.
func (r *Renderer) WriteAll(outDir string, workers int) ([]File, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperrors.NewIO("create directory", outDir, err)
	}

	jobs := []job{{fileName: site.IndexFile, render: r.Index}}
	for _, e := range r.site.Entries() {
		jobs = append(jobs, job{
			fileName: e.FileName,
			render:   func(w io.Writer) error { return r.Entry(w, e) },
		})
	}

	pool := NewWorkerPool(workers, func(j job) result {
		return r.write(outDir, j)
	})

	var files []File
	var firstErr error
	for _, res := range pool.Run(jobs) {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		files = append(files, res.file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, firstErr
}

func (r *Renderer) write(outDir string, j job) result {
	if err := validation.ValidateFilename(j.fileName); err != nil {
		return result{err: &apperrors.ValidationError{Field: "file name", Value: j.fileName, Message: err.Error(), Err: err}}
	}
	rel, err := validation.SanitizePath(outDir, j.fileName)
	if err != nil {
		return result{err: apperrors.Wrapf(err, "output %s", j.fileName)}
	}

	var buf bytes.Buffer
	if err := j.render(&buf); err != nil {
		return result{err: err}
	}
	dest := filepath.Join(outDir, rel)
	if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
		return result{err: apperrors.NewIO("write", dest, err)}
	}
	return result{file: File{Path: filepath.ToSlash(rel), Size: int64(buf.Len())}}
}
