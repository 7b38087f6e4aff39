package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// makeSite creates a small output tree and returns its path.
func makeSite(t *testing.T) string {
	t.Helper()
	srcDir := filepath.Join(t.TempDir(), "site")
	if err := os.MkdirAll(filepath.Join(srcDir, "theme"), 0755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	files := map[string]string{
		"index.html":       "<html>index</html>",
		"req_login.html":   "<html>login</html>",
		"theme/m-dark.css": "body{}",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(srcDir, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return srcDir
}

// entryNames returns the entry names of an archive in stored order.
func entryNames(t *testing.T, path string) []string {
	t.Helper()
	var names []string
	err := Walk(path, func(header *tar.Header, _ io.Reader) (bool, error) {
		names = append(names, header.Name)
		return false, nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return names
}

func TestCreate(t *testing.T) {
	for _, suffix := range []string{SuffixTarXz, SuffixTarGz} {
		t.Run(suffix, func(t *testing.T) {
			srcDir := makeSite(t)
			dstPath := filepath.Join(t.TempDir(), "out", "docs"+suffix)
			if err := Create(srcDir, dstPath, "", fixedTime); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			names := entryNames(t, dstPath)
			want := []string{
				"docs/index.html",
				"docs/req_login.html",
				"docs/theme/",
				"docs/theme/m-dark.css",
			}
			if !reflect.DeepEqual(names, want) {
				t.Errorf("entries = %v, want %v", names, want)
			}

			content, err := ReadFile(dstPath, "theme/m-dark.css")
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if string(content) != "body{}" {
				t.Errorf("content = %q", content)
			}
		})
	}
}

func TestCreateReproducible(t *testing.T) {
	srcDir := makeSite(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "site.tar.xz")
	b := filepath.Join(dir, "b", "site.tar.xz")
	if err := Create(srcDir, a, "site", fixedTime); err != nil {
		t.Fatal(err)
	}
	if err := Create(srcDir, b, "site", fixedTime); err != nil {
		t.Fatal(err)
	}
	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if !bytes.Equal(da, db) {
		t.Error("archives of the same tree should be identical")
	}
}

func TestCreateInsideSource(t *testing.T) {
	srcDir := makeSite(t)
	dstPath := filepath.Join(srcDir, "bundle.tar.gz")
	if err := Create(srcDir, dstPath, "bundle", fixedTime); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, n := range entryNames(t, dstPath) {
		if n == "bundle/bundle.tar.gz" {
			t.Error("archive should not contain itself")
		}
	}
}

func TestCreateErrors(t *testing.T) {
	dir := t.TempDir()
	err := Create(dir, filepath.Join(dir, "site.zip"), "", fixedTime)
	if !apperrors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("zip: error = %v, want ErrUnsupported", err)
	}
	if err := Create("/nonexistent/source", filepath.Join(dir, "x.tar.xz"), "", fixedTime); err == nil {
		t.Error("expected error for nonexistent source")
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"out/site.tar.xz":   "site",
		"site.tar.gz":       "site",
		"/tmp/docs-1.0.tar": "docs-1.0.tar",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReaderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewReader(filepath.Join(dir, "missing.tar.xz")); err == nil {
		t.Error("expected error for missing archive")
	}
	bad := filepath.Join(dir, "bad.tar.xz")
	if err := os.WriteFile(bad, []byte("not xz"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(bad); err == nil {
		t.Error("expected error for corrupted xz")
	}
	if _, err := NewReader(filepath.Join(dir, "a.rar")); !apperrors.Is(err, apperrors.ErrUnsupported) {
		t.Errorf("rar: error = %v, want ErrUnsupported", err)
	}

	srcDir := makeSite(t)
	dst := filepath.Join(dir, "site.tar.gz")
	if err := Create(srcDir, dst, "", fixedTime); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(dst, "nope.html"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing entry: error = %v, want ErrNotFound", err)
	}
}
