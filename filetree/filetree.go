// Package filetree provides the destination file tree the engine mutates:
// a staged, in-memory overlay over a read-only source of files.
package filetree

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mustng65/angular-starter-schematic/cas"
	"github.com/mustng65/angular-starter-schematic/change"
)

var (
	// ErrNotFound indicates that a required file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists indicates that a file to be created is already present.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrUpdateAlreadyInProgress indicates a second open update on the same path.
	ErrUpdateAlreadyInProgress = errors.New("update already in progress")

	// ErrNotOpen indicates a recorder that the tree did not hand out or already closed.
	ErrNotOpen = errors.New("recorder is not open on this tree")
)

// Host is the file tree seen by the editing components.
type Host interface {
	// Read returns the content at path, or an error wrapping ErrNotFound.
	Read(path string) ([]byte, error)
	// Exists reports whether a file is present at path.
	Exists(path string) bool
	// BeginUpdate opens a recorder bound to the current content of path.
	BeginUpdate(path string) (*change.Recorder, error)
	// CommitUpdate applies rec and writes the result back to its path.
	CommitUpdate(rec *change.Recorder) error
	// Discard releases rec without writing.
	Discard(rec *change.Recorder)
	// Create adds a new file, failing with ErrAlreadyExists if present.
	Create(path string, content []byte) error
	// Overwrite replaces an existing file, failing with ErrNotFound if absent.
	Overwrite(path string, content []byte) error
}

// Action describes what happened to a file in the staged tree.
type Action string

const (
	ActionCreate    Action = "create"
	ActionOverwrite Action = "overwrite"
	ActionUpdate    Action = "update"
)

// FileChange is a staged modification relative to the base source.
type FileChange struct {
	Path   string
	Action Action
	Before []byte // nil for created files
	After  []byte
	Digest string
}

type entry struct {
	content []byte
	action  Action
}

// Tree stages writes in memory on top of a read-only Source.
type Tree struct {
	mu     sync.Mutex
	base   Source
	staged map[string]*entry
	order  []string
	open   map[string]*change.Recorder
}

// New creates a tree over base. A nil base starts empty.
func New(base Source) *Tree {
	if base == nil {
		base = MapSource{}
	}
	return &Tree{
		base:   base,
		staged: make(map[string]*entry),
		open:   make(map[string]*change.Recorder),
	}
}

// Normalize converts p to the tree's canonical form: slash separated,
// cleaned, without a leading slash. The root is "".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func (t *Tree) read(p string) ([]byte, bool) {
	if e, ok := t.staged[p]; ok {
		return e.content, true
	}
	content, err := t.base.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Read returns the current content at p.
func (t *Tree) Read(p string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = Normalize(p)
	content, ok := t.read(p)
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", p, ErrNotFound)
	}
	return bytes.Clone(content), nil
}

// ReadFile implements Source so a staged tree can feed another merge.
func (t *Tree) ReadFile(p string) ([]byte, error) {
	return t.Read(p)
}

// Exists reports whether p is present.
func (t *Tree) Exists(p string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.read(Normalize(p))
	return ok
}

// Files returns every path in the tree, base and staged, sorted.
func (t *Tree) Files() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	base, err := t.base.Files()
	if err != nil {
		return nil, fmt.Errorf("listing base files: %w", err)
	}
	seen := make(map[string]bool, len(base)+len(t.staged))
	var files []string
	for _, f := range base {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	for f := range t.staged {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// BeginUpdate opens a recorder on p. Only one recorder may be open per path.
func (t *Tree) BeginUpdate(p string) (*change.Recorder, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = Normalize(p)
	if _, busy := t.open[p]; busy {
		return nil, fmt.Errorf("beginning update of %s: %w", p, ErrUpdateAlreadyInProgress)
	}
	content, ok := t.read(p)
	if !ok {
		return nil, fmt.Errorf("beginning update of %s: %w", p, ErrNotFound)
	}

	rec := change.NewRecorder(p, content)
	t.open[p] = rec
	return rec, nil
}

// CommitUpdate applies rec and stages the result as one write.
func (t *Tree) CommitUpdate(rec *change.Recorder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := rec.Path()
	if t.open[p] != rec {
		return fmt.Errorf("committing %s: %w", p, ErrNotOpen)
	}
	delete(t.open, p)

	content, err := rec.Apply()
	if err != nil {
		return fmt.Errorf("committing %s: %w", p, err)
	}
	t.stage(p, content, ActionUpdate)
	return nil
}

// Discard releases rec without writing.
func (t *Tree) Discard(rec *change.Recorder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open[rec.Path()] == rec {
		delete(t.open, rec.Path())
	}
	rec.Discard()
}

// Create stages a new file.
func (t *Tree) Create(p string, content []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = Normalize(p)
	if _, ok := t.read(p); ok {
		return fmt.Errorf("creating %s: %w", p, ErrAlreadyExists)
	}
	t.stage(p, bytes.Clone(content), ActionCreate)
	return nil
}

// Overwrite stages a full replacement of an existing file.
func (t *Tree) Overwrite(p string, content []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p = Normalize(p)
	if _, ok := t.read(p); !ok {
		return fmt.Errorf("overwriting %s: %w", p, ErrNotFound)
	}
	if _, busy := t.open[p]; busy {
		return fmt.Errorf("overwriting %s: %w", p, ErrUpdateAlreadyInProgress)
	}
	t.stage(p, bytes.Clone(content), ActionOverwrite)
	return nil
}

// stage records content for p, keeping the strongest action seen so far:
// a file created in this tree stays a creation.
func (t *Tree) stage(p string, content []byte, action Action) {
	if prev, ok := t.staged[p]; ok {
		if prev.action == ActionCreate {
			action = ActionCreate
		} else if prev.action == ActionOverwrite && action == ActionUpdate {
			action = ActionOverwrite
		}
		prev.content = content
		prev.action = action
		return
	}
	t.staged[p] = &entry{content: content, action: action}
	t.order = append(t.order, p)
}

// Changes lists staged files whose content differs from the base, in the
// order they were first touched.
func (t *Tree) Changes() []FileChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []FileChange
	for _, p := range t.order {
		e := t.staged[p]
		action := e.action
		before, err := t.base.ReadFile(p)
		switch {
		case err != nil:
			before = nil
			action = ActionCreate
		case bytes.Equal(before, e.content):
			continue
		}
		changes = append(changes, FileChange{
			Path:   p,
			Action: action,
			Before: before,
			After:  e.content,
			Digest: cas.Blake3HashHex(e.content),
		})
	}
	return changes
}

// Flush writes every staged change below dir.
func (t *Tree) Flush(dir string) error {
	for _, c := range t.Changes() {
		target := filepath.Join(dir, filepath.FromSlash(c.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", c.Path, err)
		}
		if err := os.WriteFile(target, c.After, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", c.Path, err)
		}
	}
	return nil
}
