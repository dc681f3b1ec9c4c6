// Package archive builds safe in-memory access to zip packages (DOCX, EPUB)
// on top of "archive/zip".
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// MaxEntrySize limits amount of data read from a single archive entry.
const MaxEntrySize = 256 << 20

var ErrNotFound = errors.New("archive entry not found")

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. If an error is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Archive is a zip package opened from memory.
type Archive struct {
	r     *zip.Reader
	files map[string]*zip.File
}

// Open opens zip package from data. Entries with path traversal components
// ("..") or absolute paths make whole package invalid to prevent Zip Slip
// attacks.
func Open(data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to open zip package: %w", err)
	}
	a := &Archive{r: r, files: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() {
			a.files[name] = f
		}
	}
	return a, nil
}

// Has reports whether archive has file with exact name.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// Read returns content of the named entry.
func (a *Archive) Read(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("%s: entry is too large", name)
	}
	return data, nil
}

// Walk walks the all files in the archive which names start with pattern in
// archive order, calling walkFn for each item.
func (a *Archive) Walk(pattern string, walkFn WalkFunc) error {
	for _, f := range a.r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.FileHeader.Name, pattern) {
			continue
		}
		if err := walkFn(f); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
