// Command blueprint builds a cross-referenced HTML site from a tree of
// blueprint documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/k0kubun/pp"

	"github.com/FocuswithJustin/blueprint/core/sqlite"
	"github.com/FocuswithJustin/blueprint/core/xref"
	"github.com/FocuswithJustin/blueprint/internal/archive"
	"github.com/FocuswithJustin/blueprint/internal/config"
	"github.com/FocuswithJustin/blueprint/internal/corpus"
	"github.com/FocuswithJustin/blueprint/internal/generate"
	"github.com/FocuswithJustin/blueprint/internal/logging"
	"github.com/FocuswithJustin/blueprint/internal/manifest"
	"github.com/FocuswithJustin/blueprint/internal/tracedb"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

const version = "0.1.0"

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for blueprint.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Config file (default: blueprint.yaml in the input directory or a parent)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Init         InitCmd         `cmd:"" help:"Write a default blueprint.yaml"`
	Build        BuildCmd        `cmd:"" help:"Build the HTML site"`
	Check        CheckCmd        `cmd:"" help:"Parse every document and report problems without writing"`
	Requirements RequirementsCmd `cmd:"" help:"List requirements and the sections satisfying them"`
	Dump         DumpCmd         `cmd:"" help:"Print the parsed tree of one document"`
	Coverage     CoverageCmd     `cmd:"" help:"Summarize a trace database"`
	Verify       VerifyCmd       `cmd:"" help:"Check a built site or site archive against its manifest"`
	Version      VersionCmd      `cmd:"" help:"Print version information"`
}

// InputFlags select the documents to read.
type InputFlags struct {
	Input         string   `arg:"" optional:"" help:"Directory containing blueprint documents" type:"path"`
	Include       []string `help:"Glob patterns of documents to read"`
	Exclude       []string `help:"Glob patterns of documents to skip"`
	Workers       int      `short:"j" help:"Number of parallel workers"`
	DocumentPages bool     `name:"document-pages" help:"Give untagged sections a page named after their document"`
}

// loadConfig layers defaults, the project file and command-line flags, then
// configures logging.
func loadConfig(in InputFlags, extra *config.Config) (*config.Config, error) {
	overrides := &config.Config{}
	if extra != nil {
		*overrides = *extra
	}
	overrides.Input = in.Input
	overrides.Include = in.Include
	overrides.Exclude = in.Exclude
	overrides.Workers = in.Workers
	overrides.DocumentPages = in.DocumentPages
	overrides.Log = config.LogConfig{Level: CLI.LogLevel, Format: CLI.LogFormat}

	if CLI.Config != "" {
		if err := validation.ValidatePath(CLI.Config); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
	}
	cfg, err := config.NewLoader(logging.GetLogger()).Load(CLI.Config, in.Input, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.InitLogging(); err != nil {
		return nil, err
	}
	logging.Debug("config_loaded",
		"input", cfg.Input,
		"output", cfg.Output,
		"theme", cfg.Theme,
		"workers", cfg.Workers,
	)
	return cfg, nil
}

// InitCmd writes the default configuration as a project file.
type InitCmd struct {
	Dir   string `arg:"" optional:"" default:"." help:"Project directory" type:"path"`
	Force bool   `help:"Overwrite an existing blueprint.yaml"`
}

func (c *InitCmd) Run() error {
	path := filepath.Join(c.Dir, config.ProjectConfigFile)
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	logging.Info("config_written", "path", path)
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

// BuildCmd builds the site.
type BuildCmd struct {
	InputFlags
	Output  string `short:"o" help:"Output directory" type:"path"`
	Theme   string `help:"Theme (dark, light)"`
	Archive string `help:"Also write a .tar.xz or .tar.gz bundle of the site" type:"path"`
	TraceDB string `name:"trace-db" help:"Also write a SQLite trace database" type:"path"`
}

func (c *BuildCmd) Run() error {
	cfg, err := loadConfig(c.InputFlags, &config.Config{
		Output:  c.Output,
		Theme:   c.Theme,
		Archive: c.Archive,
		TraceDB: c.TraceDB,
	})
	if err != nil {
		return err
	}

	rep, err := generate.Run(context.Background(), cfg, version)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Built %s in %s\n", cfg.Output, rep.Duration.Round(time.Millisecond))
	fmt.Fprintf(stdout, "  Build:        %s\n", rep.BuildID)
	fmt.Fprintf(stdout, "  Documents:    %s (%s rejected)\n", humanize.Comma(int64(rep.Documents)), humanize.Comma(int64(rep.Rejected)))
	fmt.Fprintf(stdout, "  Pages:        %s\n", humanize.Comma(int64(rep.Pages)))
	fmt.Fprintf(stdout, "  Requirements: %s (%s duplicates, %s dangling)\n",
		humanize.Comma(int64(rep.Requirements)), humanize.Comma(int64(rep.Duplicates)), humanize.Comma(int64(rep.Dangling)))
	fmt.Fprintf(stdout, "  Files:        %d (%s)\n", len(rep.Files), humanize.Bytes(uint64(rep.Bytes)))
	if rep.Archive != "" {
		fmt.Fprintf(stdout, "  Archive:      %s\n", rep.Archive)
	}
	if rep.TraceDB != "" {
		fmt.Fprintf(stdout, "  Trace DB:     %s\n", rep.TraceDB)
	}
	return nil
}

// CheckCmd parses every document and reports problems.
type CheckCmd struct {
	InputFlags
	Strict bool `help:"Also fail on duplicate requirements and dangling satisfies tags"`
}

func (c *CheckCmd) Run() error {
	cfg, err := loadConfig(c.InputFlags, nil)
	if err != nil {
		return err
	}

	a, err := generate.Analyze(context.Background(), cfg)
	if a != nil && a.Corpus != nil {
		for _, rej := range a.Corpus.Rejected {
			fmt.Fprintf(stdout, "REJECTED %s: %v\n", rej.Path, rej.Err)
		}
	}
	if err != nil {
		return err
	}

	for _, d := range a.Result.Duplicates {
		fmt.Fprintf(stdout, "DUPLICATE %s: %s replaced by %s\n", d.Name, d.Replaced, d.Replacement)
	}
	for _, cl := range a.Result.Dangling {
		fmt.Fprintf(stdout, "DANGLING %s: claimed by %s\n", cl.Name, cl.Origin)
	}
	fmt.Fprintf(stdout, "%s documents, %s requirements\n",
		humanize.Comma(int64(len(a.Corpus.Documents))), humanize.Comma(int64(len(a.Result.Requirements))))

	problems := len(a.Corpus.Rejected)
	if c.Strict {
		problems += len(a.Result.Duplicates) + len(a.Result.Dangling)
	}
	if problems > 0 {
		return fmt.Errorf("check found %d problem(s)", problems)
	}
	return nil
}

// RequirementsCmd lists requirements.
type RequirementsCmd struct {
	InputFlags
	Unclaimed bool `help:"Only list requirements no section satisfies"`
	JSON      bool `name:"json" help:"Output as JSON"`
}

type requirementView struct {
	Name      string        `json:"name"`
	Origin    xref.Origin   `json:"origin"`
	ClaimedBy []xref.Origin `json:"claimed_by"`
}

func (c *RequirementsCmd) Run() error {
	cfg, err := loadConfig(c.InputFlags, nil)
	if err != nil {
		return err
	}
	a, err := generate.Analyze(context.Background(), cfg)
	if err != nil {
		return err
	}

	views := []requirementView{}
	for _, name := range a.Result.RequirementNames() {
		req := a.Result.Requirements[name]
		if c.Unclaimed && len(req.ClaimedBy) > 0 {
			continue
		}
		claims := req.ClaimedBy
		if claims == nil {
			claims = []xref.Origin{}
		}
		views = append(views, requirementView{Name: name, Origin: req.Origin(), ClaimedBy: claims})
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	for _, v := range views {
		fmt.Fprintf(stdout, "%s\t%s\n", v.Name, v.Origin)
		for _, o := range v.ClaimedBy {
			fmt.Fprintf(stdout, "  <- %s\n", o)
		}
	}
	return nil
}

// DumpCmd prints the parsed tree of a single document.
type DumpCmd struct {
	Path   string `arg:"" help:"Document to parse" type:"existingfile"`
	Markup bool   `help:"Print the tree back as markup instead"`
}

func (c *DumpCmd) Run() error {
	doc, err := corpus.ParseFile(c.Path)
	if err != nil {
		return err
	}
	if c.Markup {
		_, err := io.WriteString(stdout, doc.Blueprint.String())
		return err
	}
	pp.ColoringEnabled = false
	_, err = pp.Fprintln(stdout, doc.Blueprint)
	return err
}

// CoverageCmd summarizes a trace database.
type CoverageCmd struct {
	Path        string `arg:"" help:"Trace database written by build --trace-db" type:"existingfile"`
	Requirement string `short:"r" help:"Only list the sections satisfying this requirement"`
}

func (c *CoverageCmd) Run() error {
	ctx := context.Background()
	db, err := tracedb.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Requirement != "" {
		claims, err := db.ClaimsOf(ctx, c.Requirement)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			fmt.Fprintf(stdout, "%s: unclaimed\n", c.Requirement)
			return nil
		}
		fmt.Fprintf(stdout, "%s: %s claim(s)\n", c.Requirement, humanize.Comma(int64(len(claims))))
		for _, o := range claims {
			fmt.Fprintf(stdout, "  <- %s\n", o)
		}
		return nil
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	unclaimed, err := db.Unclaimed(ctx)
	if err != nil {
		return err
	}

	pct := 100.0
	if stats.Requirements > 0 {
		pct = 100 * float64(stats.Claimed) / float64(stats.Requirements)
	}
	fmt.Fprintf(stdout, "Build %s\n", stats.BuildID)
	fmt.Fprintf(stdout, "  Pages:        %s\n", humanize.Comma(int64(stats.Pages)))
	fmt.Fprintf(stdout, "  Requirements: %s (%s claimed, %.0f%%)\n",
		humanize.Comma(int64(stats.Requirements)), humanize.Comma(int64(stats.Claimed)), pct)
	fmt.Fprintf(stdout, "  Duplicates:   %s\n", humanize.Comma(int64(stats.Duplicates)))
	fmt.Fprintf(stdout, "  Dangling:     %s\n", humanize.Comma(int64(stats.Dangling)))
	if len(unclaimed) > 0 {
		fmt.Fprintf(stdout, "  Unclaimed:    %s\n", strings.Join(unclaimed, ", "))
	}
	return nil
}

// VerifyCmd checks a built site against its manifest.
type VerifyCmd struct {
	Path string `arg:"" help:"Output directory or .tar.xz/.tar.gz archive of a build" type:"path"`
}

func isArchive(path string) bool {
	return strings.HasSuffix(path, archive.SuffixTarXz) || strings.HasSuffix(path, archive.SuffixTarGz)
}

func (c *VerifyCmd) Run() error {
	var (
		m       *manifest.Manifest
		changed []string
		err     error
	)
	if isArchive(c.Path) {
		if m, err = manifest.LoadArchive(c.Path); err != nil {
			return err
		}
		changed, err = m.VerifyArchive(c.Path)
	} else {
		if m, err = manifest.Load(filepath.Join(c.Path, manifest.FileName)); err != nil {
			return err
		}
		changed, err = m.Verify(c.Path)
	}
	if err != nil {
		return err
	}

	for _, p := range changed {
		logging.Warn("output_changed", "path", p, "build_id", m.BuildID)
		fmt.Fprintf(stdout, "CHANGED %s\n", p)
	}
	if len(changed) > 0 {
		return errors.New("site does not match its manifest")
	}
	logging.Info("site_verified", "path", c.Path, "files", len(m.Files), "build_id", m.BuildID)
	fmt.Fprintf(stdout, "OK %s (%d files, build %s)\n", c.Path, len(m.Files), m.BuildID)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "blueprint version %s\n", version)
	fmt.Fprintf(stdout, "  sqlite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("blueprint"),
		kong.Description("Blueprint - cross-referenced requirement documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	if err != nil {
		logging.Error("command_failed", "command", ctx.Command(), "error", err)
	}
	ctx.FatalIfErrorf(err)
}
