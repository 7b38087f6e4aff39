// Package corpus finds blueprint documents on disk, reads their front matter
// and parses them in parallel.
package corpus

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/core/markup"
	"github.com/FocuswithJustin/blueprint/internal/logging"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

// Meta is the optional YAML front matter of a document.
type Meta struct {
	// Owner is the page untagged top-level sections go to.
	Owner string `yaml:"owner"`
}

// Source is one document read from disk, front matter removed.
type Source struct {
	Name string
	Path string
	Meta Meta
	Text string

	// offset and line count of the removed front matter
	skipBytes int
	skipLines int
}

// Document is a parsed source.
type Document struct {
	Blueprint *markup.Blueprint
	Meta      Meta
	Path      string
	Size      int
}

// Rejection is a document excluded from the corpus.
type Rejection struct {
	Name string
	Path string
	Err  error
}

// Corpus is the outcome of loading a directory.
type Corpus struct {
	// Documents are sorted by name.
	Documents []*Document
	// Rejected are sorted by name.
	Rejected []Rejection
}

// Blueprints returns the parsed trees in document order.
func (c *Corpus) Blueprints() []*markup.Blueprint {
	out := make([]*markup.Blueprint, len(c.Documents))
	for i, d := range c.Documents {
		out[i] = d.Blueprint
	}
	return out
}

// DefaultOwners maps document names to their front-matter owner.
func (c *Corpus) DefaultOwners() map[string]string {
	owners := make(map[string]string)
	for _, d := range c.Documents {
		if d.Meta.Owner != "" {
			owners[d.Blueprint.Name] = d.Meta.Owner
		}
	}
	return owners
}

// Name derives a document name from a slash-separated relative path by
// dropping the extension.
func Name(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// Discover returns the slash-separated paths under root matching any include
// pattern and no exclude pattern, sorted.
func Discover(root string, include, exclude []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &apperrors.ValidationError{Field: "include", Value: pattern, Message: "invalid glob pattern"}
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, apperrors.NewIO("search", filepath.Join(root, pattern), err)
		}
		for _, m := range matches {
			if seen[m] || excluded(m, exclude) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func excluded(rel string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ReadSource reads the file at path and splits off its front matter.
func ReadSource(name, file string) (*Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, apperrors.NewIO("read", file, err)
	}
	if err := validation.ValidateDocument(data); err != nil {
		return nil, apperrors.Wrapf(err, "%s", file)
	}

	src := &Source{Name: name, Path: file}
	body, err := frontmatter.Parse(bytes.NewReader(data), &src.Meta)
	if err != nil {
		return nil, &apperrors.ValidationError{Field: "front matter", Value: file, Message: err.Error(), Err: err}
	}
	if len(body) < len(data) && bytes.HasSuffix(data, body) {
		src.skipBytes = len(data) - len(body)
		src.skipLines = bytes.Count(data[:src.skipBytes], []byte("\n"))
	}
	src.Text = string(body)
	return src, nil
}

// Parse parses the source. Error positions refer to the original file,
// front matter included.
func (s *Source) Parse() (*Document, error) {
	bp, err := markup.Parse(s.Name, s.Text)
	if err != nil {
		var pe *apperrors.ParseError
		if errors.As(err, &pe) {
			pe.Offset += s.skipBytes
			pe.Line += s.skipLines
		}
		return nil, err
	}
	return &Document{
		Blueprint: bp,
		Meta:      s.Meta,
		Path:      s.Path,
		Size:      s.skipBytes + len(s.Text),
	}, nil
}

// ParseFile reads and parses a single file, naming the document after the
// file without its extension.
func ParseFile(file string) (*Document, error) {
	src, err := ReadSource(Name(filepath.Base(file)), file)
	if err != nil {
		return nil, err
	}
	return src.Parse()
}

// Loader discovers and parses every document under Root.
type Loader struct {
	Root    string
	Include []string
	Exclude []string
	// Workers bounds the number of documents parsed at once.
	Workers int
}

// Load discovers documents and parses them with up to Workers goroutines.
// Unreadable and malformed documents are logged and rejected; only context
// cancellation and discovery failures are returned as errors.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	files, err := Discover(l.Root, l.Include, l.Exclude)
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	workers := l.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := ReadSource(Name(rel), filepath.Join(l.Root, filepath.FromSlash(rel)))
			if err != nil {
				errs[i] = err
				return nil
			}
			docs[i], errs[i] = src.Parse()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Corpus{}
	for i, rel := range files {
		name := Name(rel)
		if errs[i] != nil {
			logging.DocumentRejected(ctx, name, errs[i], "path", rel)
			c.Rejected = append(c.Rejected, Rejection{Name: name, Path: rel, Err: errs[i]})
			continue
		}
		logging.DocumentLoaded(ctx, name, len(docs[i].Blueprint.Sections()), "bytes", docs[i].Size)
		c.Documents = append(c.Documents, docs[i])
	}
	return c, nil
}
