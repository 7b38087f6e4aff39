package theme

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"dark", []string{"theme/m-dark.css"}},
		{"light", []string{"theme/m-light.css"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup(%q) error: %v", tt.name, err)
			}
			if got := th.Stylesheets(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Stylesheets() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Lookup("neon"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Lookup(neon) error = %v, want ErrNotFound", err)
	}
	if got := Names(); !reflect.DeepEqual(got, []string{"dark", "light"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestExtract(t *testing.T) {
	out := t.TempDir()
	written, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	want := []string{"theme/m-base.css", "theme/m-dark.css", "theme/m-light.css"}
	if !reflect.DeepEqual(written, want) {
		t.Errorf("Extract() = %v, want %v", written, want)
	}

	data, err := os.ReadFile(filepath.Join(out, "theme", "m-dark.css"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `@import url("m-base.css")`) {
		t.Error("m-dark.css should import the base stylesheet")
	}
	for _, name := range Names() {
		th, _ := Lookup(name)
		for _, css := range th.Stylesheets() {
			if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(css))); err != nil {
				t.Errorf("stylesheet %s not extracted: %v", css, err)
			}
		}
	}
}

func TestExtractUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(file); err == nil {
		t.Error("expected error when output is a file")
	}
}
