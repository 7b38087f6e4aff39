// Package generate runs a complete build: discover and parse documents,
// build cross-references, render the site and write its by-products.
package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/blueprint/core/site"
	"github.com/FocuswithJustin/blueprint/core/xref"
	"github.com/FocuswithJustin/blueprint/internal/archive"
	"github.com/FocuswithJustin/blueprint/internal/config"
	"github.com/FocuswithJustin/blueprint/internal/corpus"
	"github.com/FocuswithJustin/blueprint/internal/logging"
	"github.com/FocuswithJustin/blueprint/internal/manifest"
	"github.com/FocuswithJustin/blueprint/internal/render"
	"github.com/FocuswithJustin/blueprint/internal/theme"
	"github.com/FocuswithJustin/blueprint/internal/tracedb"
)

// ErrNoDocuments is returned when no document could be parsed.
var ErrNoDocuments = errors.New("no valid documents")

// Analysis is the parsed corpus and its cross-references.
type Analysis struct {
	Corpus *corpus.Corpus
	Result *xref.Result
}

// Report summarizes a finished build.
type Report struct {
	BuildID      string
	Documents    int
	Rejected     int
	Pages        int
	Requirements int
	Duplicates   int
	Dangling     int
	Files        []render.File
	Bytes        int64
	Manifest     string
	Archive      string
	TraceDB      string
	Duration     time.Duration
}

// Analyze loads the corpus described by cfg and builds its cross-references.
// It fails with ErrNoDocuments when nothing could be parsed.
func Analyze(ctx context.Context, cfg *config.Config) (*Analysis, error) {
	loader := &corpus.Loader{
		Root:    cfg.Input,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
		Workers: cfg.Workers,
	}
	c, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(c.Documents) == 0 {
		return &Analysis{Corpus: c}, ErrNoDocuments
	}

	res := xref.Build(c.Blueprints(), &xref.Options{
		Logger:        logging.LoggerFromContext(ctx),
		DocumentPages: cfg.DocumentPages,
		DefaultOwners: c.DefaultOwners(),
	})
	return &Analysis{Corpus: c, Result: res}, nil
}

// Run performs a full build and writes the site to cfg.Output.
func Run(ctx context.Context, cfg *config.Config, version string) (*Report, error) {
	start := time.Now()

	th, err := theme.Lookup(cfg.Theme)
	if err != nil {
		return nil, err
	}

	m := manifest.New(version, th.Name)
	ctx = logging.WithBuildID(ctx, m.BuildID)
	logger := logging.LoggerFromContext(ctx)
	logger.Info("build_started", "input", cfg.Input, "output", cfg.Output, "theme", th.Name)

	a, err := Analyze(ctx, cfg)
	if err != nil {
		if errors.Is(err, ErrNoDocuments) {
			logger.Error("build_failed", "error", err, "rejected", len(a.Corpus.Rejected))
		}
		return nil, err
	}

	s := site.New(a.Result, th.Stylesheets())
	r, err := render.New(s, render.Options{Version: version, BuildID: m.BuildID})
	if err != nil {
		return nil, err
	}
	files, err := r.WriteAll(cfg.Output, cfg.Workers)
	if err != nil {
		return nil, err
	}
	css, err := theme.Extract(cfg.Output)
	if err != nil {
		return nil, err
	}

	if err := record(m, cfg, a, files, css); err != nil {
		return nil, err
	}

	rep := &Report{
		BuildID:      m.BuildID,
		Documents:    len(a.Corpus.Documents),
		Rejected:     len(a.Corpus.Rejected),
		Pages:        len(a.Result.Pages),
		Requirements: len(a.Result.Requirements),
		Duplicates:   len(a.Result.Duplicates),
		Dangling:     len(a.Result.Dangling),
		Files:        files,
		Manifest:     filepath.Join(cfg.Output, manifest.FileName),
	}
	for _, f := range m.Files {
		rep.Bytes += f.SizeBytes
	}

	if cfg.TraceDB != "" {
		if err := tracedb.Write(ctx, cfg.TraceDB, m.BuildID, a.Result); err != nil {
			return nil, err
		}
		rep.TraceDB = cfg.TraceDB
		logger.Debug("trace_written", "path", cfg.TraceDB)
	}

	if cfg.Archive != "" {
		created, err := time.Parse(time.RFC3339, m.CreatedAt)
		if err != nil {
			created = start
		}
		if err := archive.Create(cfg.Output, cfg.Archive, "", created); err != nil {
			return nil, err
		}
		rep.Archive = cfg.Archive
		logger.Debug("archive_written", "path", cfg.Archive)
	}

	rep.Duration = time.Since(start)
	logging.BuildSummary(ctx, rep.Documents, rep.Rejected, rep.Pages, rep.Requirements, rep.Duration,
		"duplicates", rep.Duplicates, "dangling", rep.Dangling, "bytes", rep.Bytes)
	return rep, nil
}

// record fills the manifest with the build's inputs and outputs and writes it.
func record(m *manifest.Manifest, cfg *config.Config, a *Analysis, files []render.File, css []string) error {
	for _, doc := range a.Corpus.Documents {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(cfg.Input, doc.Path)
		if err != nil {
			rel = doc.Path
		}
		m.AddDocument(doc.Blueprint.Name, rel, data)
	}
	for _, rej := range a.Corpus.Rejected {
		m.AddRejected(rej.Name, rej.Err)
	}
	m.Requirements = len(a.Result.Requirements)
	m.Duplicates = len(a.Result.Duplicates)

	rel := make([]string, 0, len(files)+len(css))
	for _, f := range files {
		rel = append(rel, f.Path)
	}
	rel = append(rel, css...)
	if err := m.AddFiles(cfg.Output, rel...); err != nil {
		return err
	}
	return m.Write(cfg.Output)
}
