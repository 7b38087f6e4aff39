// Package manifest records what a build produced: a build id, the source
// documents and every output file with its BLAKE3 and SHA-256 digests.
package manifest

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/internal/archive"
	"github.com/FocuswithJustin/blueprint/internal/validation"
)

// Version is the current manifest format version.
const Version = "1.0.0"

// FileName is the manifest's name inside the output directory.
const FileName = "manifest.json"

// nowFunc is the clock used for CreatedAt. Tests replace it.
var nowFunc = time.Now

// Manifest represents manifest.json.
type Manifest struct {
	ManifestVersion string           `json:"manifest_version"`
	BuildID         string           `json:"build_id"`
	CreatedAt       string           `json:"created_at"`
	Tool            ToolInfo         `json:"tool"`
	Theme           string           `json:"theme"`
	Documents       []DocumentRecord `json:"documents"`
	Rejected        []RejectedRecord `json:"rejected,omitempty"`
	Files           []FileRecord     `json:"files"`
	Requirements    int              `json:"requirements"`
	Duplicates      int              `json:"duplicates"`
}

// ToolInfo describes the tool that produced the build.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DocumentRecord is one source document that made it into the build.
type DocumentRecord struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	BLAKE3    string `json:"blake3"`
	SizeBytes int64  `json:"size_bytes"`
}

// RejectedRecord is a document excluded from the build.
type RejectedRecord struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// FileRecord is one output file.
type FileRecord struct {
	Path      string `json:"path"`
	SHA256    string `json:"sha256"`
	BLAKE3    string `json:"blake3"`
	SizeBytes int64  `json:"size_bytes"`
}

// New creates an empty manifest with a fresh build id.
func New(toolVersion, theme string) *Manifest {
	return &Manifest{
		ManifestVersion: Version,
		BuildID:         uuid.New().String(),
		CreatedAt:       nowFunc().UTC().Format(time.RFC3339),
		Tool:            ToolInfo{Name: "blueprint", Version: toolVersion},
		Theme:           theme,
	}
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the SHA-256 and BLAKE3 digests and size of a file.
func HashFile(path string) (FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileRecord{}, apperrors.NewIO("read", path, err)
	}
	sha := sha256.Sum256(data)
	return FileRecord{
		SHA256:    hex.EncodeToString(sha[:]),
		BLAKE3:    Digest(data),
		SizeBytes: int64(len(data)),
	}, nil
}

// AddDocument records a source document.
func (m *Manifest) AddDocument(name, path string, data []byte) {
	m.Documents = append(m.Documents, DocumentRecord{
		Name:      name,
		Path:      filepath.ToSlash(path),
		BLAKE3:    Digest(data),
		SizeBytes: int64(len(data)),
	})
}

// AddRejected records an excluded document.
func (m *Manifest) AddRejected(name string, err error) {
	m.Rejected = append(m.Rejected, RejectedRecord{Name: name, Error: err.Error()})
}

// AddFiles hashes output files given relative to outDir.
func (m *Manifest) AddFiles(outDir string, rel ...string) error {
	for _, r := range rel {
		rec, err := HashFile(filepath.Join(outDir, filepath.FromSlash(r)))
		if err != nil {
			return err
		}
		rec.Path = filepath.ToSlash(r)
		m.Files = append(m.Files, rec)
	}
	return nil
}

// Write sorts the records and writes manifest.json into outDir.
func (m *Manifest) Write(outDir string) error {
	sort.Slice(m.Documents, func(i, j int) bool { return m.Documents[i].Name < m.Documents[j].Name })
	sort.Slice(m.Rejected, func(i, j int) bool { return m.Rejected[i].Name < m.Rejected[j].Name })
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := filepath.Join(outDir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return apperrors.NewIO("write", path, err)
	}
	return nil
}

// Load reads a manifest.json.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIO("read", path, err)
	}
	return parse(path, data)
}

// LoadArchive reads the manifest.json bundled in a site archive.
func LoadArchive(path string) (*Manifest, error) {
	data, err := archive.ReadFile(path, FileName)
	if err != nil {
		return nil, err
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// checkPaths rejects recorded paths that would resolve outside outDir.
func (m *Manifest) checkPaths(outDir string) error {
	for _, f := range m.Files {
		if !validation.IsPathSafe(outDir, filepath.FromSlash(f.Path)) {
			return fmt.Errorf("manifest entry %q: %w", f.Path, validation.ErrPathTraversal)
		}
	}
	return nil
}

// Verify re-hashes every recorded file under outDir and returns the paths
// that are missing or changed.
func (m *Manifest) Verify(outDir string) ([]string, error) {
	if err := m.checkPaths(outDir); err != nil {
		return nil, err
	}
	var changed []string
	for _, f := range m.Files {
		rec, err := HashFile(filepath.Join(outDir, filepath.FromSlash(f.Path)))
		if err != nil {
			if apperrors.Is(err, os.ErrNotExist) {
				changed = append(changed, f.Path)
				continue
			}
			return nil, err
		}
		if rec.BLAKE3 != f.BLAKE3 || rec.SHA256 != f.SHA256 {
			changed = append(changed, f.Path)
		}
	}
	return changed, nil
}

// VerifyArchive is Verify for a site bundled by build --archive. Entry names
// are matched with their leading base directory removed.
func (m *Manifest) VerifyArchive(path string) ([]string, error) {
	if err := m.checkPaths("."); err != nil {
		return nil, err
	}
	digests := make(map[string]string)
	err := archive.Walk(path, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", header.Name, err)
		}
		name := header.Name
		if idx := strings.Index(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		digests[name] = Digest(data)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, f := range m.Files {
		if digests[f.Path] != f.BLAKE3 {
			changed = append(changed, f.Path)
		}
	}
	return changed, nil
}
