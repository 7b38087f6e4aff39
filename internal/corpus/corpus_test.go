package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/core/markup"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

// writeTree creates files (slash-separated names) under a temp directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestName(t *testing.T) {
	tests := map[string]string{
		"net.bp":         "net",
		"specs/auth.bp":  "specs/auth",
		"v1.2/notes":     "v1.2/notes",
		"archive.tar.bp": "archive.tar",
		"no-extension":   "no-extension",
	}
	for in, want := range tests {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.bp":            "# b",
		"a.bp":            "# a",
		"sub/c.bp":        "# c",
		"drafts/d.bp":     "# d",
		"notes.txt":       "not a blueprint",
		"sub/deep/e.spec": "# e",
	})

	got, err := Discover(root, []string{"**/*.bp", "**/*.spec", "*.bp"}, []string{"drafts/**"})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []string{"a.bp", "b.bp", "sub/c.bp", "sub/deep/e.spec"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscoverInvalidPattern(t *testing.T) {
	_, err := Discover(t.TempDir(), []string{"[unclosed"}, nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Discover() error = %v, want invalid input", err)
	}
}

func TestReadSourceFrontMatter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"net.bp": "---\nowner: network\n---\n# Routing\ntext\n",
	})
	src, err := ReadSource("net", filepath.Join(root, "net.bp"))
	if err != nil {
		t.Fatalf("ReadSource() error: %v", err)
	}
	if src.Meta.Owner != "network" {
		t.Errorf("Owner = %q, want network", src.Meta.Owner)
	}
	doc, err := src.Parse()
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if doc.Blueprint.Name != "net" || doc.Blueprint.Title() != "Routing" {
		t.Errorf("blueprint = %q titled %q", doc.Blueprint.Name, doc.Blueprint.Title())
	}
}

func TestParseErrorPositionIncludesFrontMatter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.bp": "---\nowner: x\n---\n# a\n### b\n",
	})
	_, err := ParseFile(filepath.Join(root, "bad.bp"))
	if !errors.Is(err, markup.ErrHeadingRank) {
		t.Fatalf("ParseFile() error = %v, want ErrHeadingRank", err)
	}
	var pe *apperrors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not a ParseError", err)
	}
	if pe.Line != 5 || pe.Document != "bad" {
		t.Errorf("error at %s line %d, want bad line 5", pe.Document, pe.Line)
	}
}

func TestParseFile(t *testing.T) {
	root := writeTree(t, map[string]string{"dir/auth.bp": "# Auth [?login]\n"})
	doc, err := ParseFile(filepath.Join(root, "dir", "auth.bp"))
	if err != nil {
		t.Fatalf("ParseFile() error: %v", err)
	}
	if doc.Blueprint.Name != "auth" {
		t.Errorf("Name = %q, want auth", doc.Blueprint.Name)
	}
	if doc.Size != len("# Auth [?login]\n") {
		t.Errorf("Size = %d", doc.Size)
	}

	if _, err := ParseFile(filepath.Join(root, "missing.bp")); err == nil {
		t.Error("expected error for missing file")
	} else {
		var ioErr *apperrors.IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("expected IOError, got %T", err)
		}
	}
}

func TestLoaderLoad(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.bp":     "---\nowner: team\n---\n# B\n",
		"a.bp":     "# A [?r]\n",
		"c/bad.bp": "# ok\n*broken/\n",
		"bin.bp":   "\x00\x01\x02",
		"z.bp":     "# Z\n",
	})

	l := &Loader{Root: root, Include: []string{"**/*.bp"}, Workers: 2}
	c, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	var names []string
	for _, bp := range c.Blueprints() {
		names = append(names, bp.Name)
	}
	if want := []string{"a", "b", "z"}; !reflect.DeepEqual(names, want) {
		t.Errorf("documents = %v, want %v", names, want)
	}

	if len(c.Rejected) != 2 {
		t.Fatalf("rejected = %+v, want 2", c.Rejected)
	}
	if c.Rejected[0].Name != "bin" || !errors.Is(c.Rejected[0].Err, validation.ErrNotText) {
		t.Errorf("rejected[0] = %+v", c.Rejected[0])
	}
	if c.Rejected[1].Name != "c/bad" || !errors.Is(c.Rejected[1].Err, markup.ErrMismatchedDelimiters) {
		t.Errorf("rejected[1] = %+v", c.Rejected[1])
	}

	if owners := c.DefaultOwners(); !reflect.DeepEqual(owners, map[string]string{"b": "team"}) {
		t.Errorf("DefaultOwners() = %v", owners)
	}
}

func TestLoaderCanceled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.bp": "# A\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &Loader{Root: root, Include: []string{"**/*.bp"}}
	if _, err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}
