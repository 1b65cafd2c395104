package jsonedit

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
)

// MergeResult reports what MergeProperty changed.
type MergeResult struct {
	Appended    bool     // the property itself was added
	Created     []string // sub-keys added to an existing object
	Overwritten []string // sub-keys whose value was replaced
}

// Changed reports whether anything was edited.
func (r MergeResult) Changed() bool {
	return r.Appended || len(r.Created) > 0 || len(r.Overwritten) > 0
}

// Merger merges properties into JSON documents held in a file tree.
type Merger struct {
	log *zap.Logger
}

// NewMerger creates a merger. A nil logger discards output.
func NewMerger(log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{log: log}
}

// MergeProperty merges name into the root object of the document at path.
//
// An absent property is appended with value. When the property holds an
// object and value is a mapping, missing keys are inserted in order and
// present keys have only their value replaced. Any other combination on a
// present property fails with ErrTypeMismatch. indent is the column of new
// keys; zero follows the document.
func (m *Merger) MergeProperty(host filetree.Host, path, name string, value any, indent int) (MergeResult, error) {
	var res MergeResult

	content, err := host.Read(path)
	if err != nil {
		return res, err
	}
	root, err := Parse(content)
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", path, err)
	}
	if root.Kind != KindObject {
		return res, fmt.Errorf("%s: found %s: %w", path, root.Kind, ErrInvalidDocument)
	}

	existing := root.Get(name)
	sub, isMap := asMap(value)
	if existing != nil {
		if existing.Value.Kind != KindObject || !isMap {
			return res, fmt.Errorf("merging %s into %s (%s): %w", name, path, existing.Value.Kind, ErrTypeMismatch)
		}
	}

	rec, err := host.BeginUpdate(path)
	if err != nil {
		return res, err
	}
	ed := NewEditor(rec)

	if existing == nil {
		if err := ed.AppendProperty(root, name, value, indent); err != nil {
			host.Discard(rec)
			return res, fmt.Errorf("appending %s to %s: %w", name, path, err)
		}
		res.Appended = true
	} else {
		missing := make(map[string]any)
		for key, v := range sub {
			inner := existing.Value.Get(key)
			if inner == nil {
				m.log.Debug(fmt.Sprintf("creating %s with %v", key, v), zap.String("path", path))
				missing[key] = v
				res.Created = append(res.Created, key)
				continue
			}
			m.log.Debug(fmt.Sprintf("overwriting %s with %v", key, v), zap.String("path", path))
			if err := ed.ReplaceValue(inner.Value, v); err != nil {
				host.Discard(rec)
				return MergeResult{}, fmt.Errorf("overwriting %s.%s in %s: %w", name, key, path, err)
			}
			res.Overwritten = append(res.Overwritten, key)
		}
		if err := ed.InsertPropertiesInOrder(existing.Value, missing, indent); err != nil {
			host.Discard(rec)
			return MergeResult{}, fmt.Errorf("inserting into %s in %s: %w", name, path, err)
		}
	}

	if err := host.CommitUpdate(rec); err != nil {
		return MergeResult{}, err
	}
	sort.Strings(res.Created)
	sort.Strings(res.Overwritten)
	return res, nil
}

// asMap normalizes the mapping shapes callers pass.
func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}
