// Package theme embeds the site stylesheets and copies them into the output
// directory.
package theme

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
)

//go:embed css/*.css
var assets embed.FS

// Dir is the output subdirectory stylesheets are extracted to.
const Dir = "theme"

// Theme is a set of stylesheets linked from every generated page.
type Theme struct {
	Name string
	// CSS lists the stylesheets pages link to, relative to Dir.
	CSS []string
}

var themes = map[string]Theme{
	"dark":  {Name: "dark", CSS: []string{"m-dark.css"}},
	"light": {Name: "light", CSS: []string{"m-light.css"}},
}

// Names returns the available theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the theme with the given name.
func Lookup(name string) (Theme, error) {
	t, ok := themes[name]
	if !ok {
		return Theme{}, apperrors.NewNotFound("theme", name)
	}
	return t, nil
}

// Stylesheets returns the theme's stylesheet paths relative to the output
// directory, as pages link to them.
func (t Theme) Stylesheets() []string {
	out := make([]string, len(t.CSS))
	for i, css := range t.CSS {
		out[i] = path.Join(Dir, css)
	}
	return out
}

// Extract writes every embedded stylesheet to <outDir>/theme and returns the
// written paths relative to outDir, sorted. Stylesheets import each other,
// so all of them are copied regardless of the selected theme.
func Extract(outDir string) ([]string, error) {
	target := filepath.Join(outDir, Dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, apperrors.NewIO("create directory", target, err)
	}

	entries, err := fs.ReadDir(assets, "css")
	if err != nil {
		return nil, apperrors.Wrap(err, "read embedded theme")
	}

	var written []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".css" {
			continue
		}
		data, err := assets.ReadFile(path.Join("css", e.Name()))
		if err != nil {
			return nil, apperrors.Wrapf(err, "read embedded %s", e.Name())
		}
		dest := filepath.Join(target, e.Name())
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return nil, apperrors.NewIO("write", dest, err)
		}
		written = append(written, path.Join(Dir, e.Name()))
	}
	sort.Strings(written)
	return written, nil
}
