// Package archive bundles a generated site into a compressed tar file and
// reads such bundles back.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
)

// Supported archive suffixes.
const (
	SuffixTarXz = ".tar.xz"
	SuffixTarGz = ".tar.gz"
)

// Create writes srcDir into dstPath, compressing by suffix (.tar.xz or
// .tar.gz). Entries are stored under baseDir; an empty baseDir derives it
// from dstPath. Every entry carries modTime so equal inputs give equal
// archives.
func Create(srcDir, dstPath, baseDir string, modTime time.Time) error {
	if baseDir == "" {
		baseDir = BaseName(dstPath)
	}

	var wrap func(io.Writer) (io.WriteCloser, error)
	switch {
	case strings.HasSuffix(dstPath, SuffixTarXz):
		wrap = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	case strings.HasSuffix(dstPath, SuffixTarGz):
		wrap = func(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }
	default:
		return apperrors.NewUnsupported("archive format", filepath.Base(dstPath))
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return apperrors.NewIO("create directory", filepath.Dir(dstPath), err)
	}
	outFile, err := os.Create(dstPath)
	if err != nil {
		return apperrors.NewIO("create", dstPath, err)
	}
	defer outFile.Close()

	cw, err := wrap(outFile)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	tw := tar.NewWriter(cw)

	absDst, _ := filepath.Abs(dstPath)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		// Skip root directory
		if relPath == "." {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absDst {
			return nil
		}
		return addEntry(tw, path, baseDir+"/"+filepath.ToSlash(relPath), d, modTime)
	})
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return outFile.Close()
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry, modTime time.Time) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}
	header.ModTime = modTime
	header.AccessTime, header.ChangeTime = time.Time{}, time.Time{}
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(tw, file)
	return err
}

// BaseName strips the archive suffix and directory from path.
func BaseName(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{SuffixTarXz, SuffixTarGz} {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}
