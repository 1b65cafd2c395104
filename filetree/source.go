package filetree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Source is a read-only collection of files addressed by normalized paths.
type Source interface {
	// ReadFile returns the content at path, or an error wrapping ErrNotFound.
	ReadFile(path string) ([]byte, error)

	// Files returns all file paths, sorted.
	Files() ([]string, error)
}

// DefaultExcludes are skipped when walking a project directory.
var DefaultExcludes = []string{
	"**/.git",
	"**/node_modules",
	"dist",
	".angular",
}

// MapSource is an in-memory Source, mostly useful in tests.
type MapSource map[string][]byte

// ReadFile returns the content stored for path.
func (m MapSource) ReadFile(path string) ([]byte, error) {
	content, ok := m[Normalize(path)]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", Normalize(path), ErrNotFound)
	}
	return content, nil
}

// Files returns the sorted keys of m.
func (m MapSource) Files() ([]string, error) {
	files := make([]string, 0, len(m))
	for p := range m {
		files = append(files, Normalize(p))
	}
	sort.Strings(files)
	return files, nil
}

// FSSource adapts an fs.FS, optionally rooted at a subdirectory and
// filtered by doublestar exclude patterns.
type FSSource struct {
	fsys     fs.FS
	excludes []string
}

// NewFSSource creates a Source over fsys. Paths matching any exclude
// pattern (files or whole directories) are left out.
func NewFSSource(fsys fs.FS, excludes ...string) *FSSource {
	return &FSSource{fsys: fsys, excludes: excludes}
}

// NewDirSource creates a Source over a directory on disk, skipping DefaultExcludes.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir), DefaultExcludes...)
}

// Sub narrows the source to a subdirectory.
func (s *FSSource) Sub(dir string) (*FSSource, error) {
	dir = Normalize(dir)
	if dir == "" {
		return s, nil
	}
	sub, err := fs.Sub(s.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	return &FSSource{fsys: sub, excludes: s.excludes}, nil
}

func (s *FSSource) excluded(p string) bool {
	for _, pattern := range s.excludes {
		if match, err := doublestar.Match(pattern, p); err == nil && match {
			return true
		}
	}
	return false
}

// ReadFile reads path from the underlying file system.
func (s *FSSource) ReadFile(path string) ([]byte, error) {
	p := Normalize(path)
	if p == "" || s.excluded(p) {
		return nil, fmt.Errorf("reading %s: %w", p, ErrNotFound)
	}
	content, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("reading %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return content, nil
}

// Files walks the file system and returns every regular file not excluded.
func (s *FSSource) Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if s.excluded(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// FilesUnder returns the files of src below dir, relative to dir.
func FilesUnder(src Source, dir string) ([]string, error) {
	all, err := src.Files()
	if err != nil {
		return nil, err
	}
	dir = Normalize(dir)
	if dir == "" {
		return all, nil
	}
	prefix := dir + "/"
	var files []string
	for _, f := range all {
		if strings.HasPrefix(f, prefix) {
			files = append(files, strings.TrimPrefix(f, prefix))
		}
	}
	return files, nil
}
