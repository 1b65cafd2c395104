package tmpl

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/cas"
	"github.com/mustng65/angular-starter-schematic/filetree"
)

var (
	// ErrConflict indicates a rendered file that already exists in the destination.
	ErrConflict = errors.New("file conflict")

	// ErrDuplicateTarget indicates two templates rendering to one path.
	ErrDuplicateTarget = errors.New("templates render to the same path")
)

// TemplateSuffix is stripped from rendered file names.
const TemplateSuffix = ".template"

// Policy decides what happens when a rendered file already exists.
type Policy int

const (
	// PolicyError fails the whole merge and writes nothing.
	PolicyError Policy = iota
	// PolicySkip keeps the existing file.
	PolicySkip
	// PolicyOverwrite replaces the existing file.
	PolicyOverwrite
)

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyOverwrite:
		return "overwrite"
	default:
		return "error"
	}
}

// ParsePolicy parses the names printed by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "error", "strict":
		return PolicyError, nil
	case "skip":
		return PolicySkip, nil
	case "overwrite":
		return PolicyOverwrite, nil
	}
	return PolicyError, fmt.Errorf("unknown conflict policy %q", s)
}

// ConflictError lists every destination path that blocked a strict merge.
type ConflictError struct {
	Paths []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d existing file(s) would be overwritten: %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Options configures MergeTree.
type Options struct {
	Root        string    // template directory within the source
	Destination string    // directory in the host tree
	Variables   Variables // placeholder values
	Policy      Policy
	Include     []string // doublestar globs over template paths; empty means all
	Exclude     []string
	Log         *zap.Logger
}

// FileAction is the outcome for one rendered file.
type FileAction string

const (
	FileCreated     FileAction = "created"
	FileOverwritten FileAction = "overwritten"
	FileUnchanged   FileAction = "unchanged"
	FileSkipped     FileAction = "skipped"
)

// FileResult describes one rendered file.
type FileResult struct {
	Path   string
	Action FileAction
	Digest string
}

// Stats counts file outcomes.
type Stats struct {
	Created     int
	Overwritten int
	Unchanged   int
	Skipped     int
}

// MergeResult is the outcome of MergeTree.
type MergeResult struct {
	Files []FileResult
	Stats Stats
}

type rendered struct {
	path    string
	content []byte
	exists  bool
}

// MergeTree renders the templates under opts.Root and merges them into
// host below opts.Destination, resolving existing files per opts.Policy.
func MergeTree(host filetree.Host, src filetree.Source, opts Options) (*MergeResult, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	files, err := renderAll(host, src, opts)
	if err != nil {
		return nil, err
	}

	if opts.Policy == PolicyError {
		var conflicts []string
		for _, f := range files {
			if f.exists {
				conflicts = append(conflicts, f.path)
			}
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Paths: conflicts}
		}
	}

	res := &MergeResult{}
	for _, f := range files {
		digest := cas.Blake3HashHex(f.content)
		action, err := apply(host, f, opts.Policy)
		if err != nil {
			return res, err
		}
		log.Debug("template merged",
			zap.String("path", f.path),
			zap.String("action", string(action)),
			zap.String("digest", cas.ShortDigest(digest)))

		res.Files = append(res.Files, FileResult{Path: f.path, Action: action, Digest: digest})
		switch action {
		case FileCreated:
			res.Stats.Created++
		case FileOverwritten:
			res.Stats.Overwritten++
		case FileUnchanged:
			res.Stats.Unchanged++
		case FileSkipped:
			res.Stats.Skipped++
		}
	}
	return res, nil
}

func apply(host filetree.Host, f rendered, policy Policy) (FileAction, error) {
	if !f.exists {
		if err := host.Create(f.path, f.content); err != nil {
			return "", err
		}
		return FileCreated, nil
	}

	switch policy {
	case PolicySkip:
		return FileSkipped, nil
	case PolicyOverwrite:
		current, err := host.Read(f.path)
		if err != nil {
			return "", err
		}
		if cas.SameContent(current, f.content) {
			return FileUnchanged, nil
		}
		if err := host.Overwrite(f.path, f.content); err != nil {
			return "", err
		}
		return FileOverwritten, nil
	}
	return "", &ConflictError{Paths: []string{f.path}}
}

// renderAll renders every selected template without touching host.
func renderAll(host filetree.Host, src filetree.Source, opts Options) ([]rendered, error) {
	names, err := filetree.FilesUnder(src, opts.Root)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	var out []rendered
	sources := make(map[string]string)
	for _, name := range names {
		if !selected(name, opts.Include, opts.Exclude) {
			continue
		}

		relPath, err := Render(name, opts.Variables)
		if err != nil {
			return nil, fmt.Errorf("rendering path %s: %w", name, err)
		}
		raw, err := src.ReadFile(path.Join(filetree.Normalize(opts.Root), name))
		if err != nil {
			return nil, err
		}
		content, err := Render(string(raw), opts.Variables)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}

		dest := filetree.Normalize(path.Join(opts.Destination, strings.TrimSuffix(relPath, TemplateSuffix)))
		if prev, ok := sources[dest]; ok {
			return nil, fmt.Errorf("%s and %s both produce %s: %w", prev, name, dest, ErrDuplicateTarget)
		}
		sources[dest] = name
		out = append(out, rendered{path: dest, content: []byte(content), exists: host.Exists(dest)})
	}
	return out, nil
}

func selected(name string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
