package jsonedit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mustng65/angular-starter-schematic/change"
)

// DefaultIndentUnit is used when a document shows no indentation.
const DefaultIndentUnit = "  "

// DetectIndent returns the indentation unit of content: the leading
// whitespace of the first indented line.
func DetectIndent(content []byte) string {
	for _, line := range bytes.Split(content, []byte("\n")) {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || len(trimmed) == len(line) {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	return DefaultIndentUnit
}

// Marshal serializes value for insertion at a line indented by prefix.
// Nested lines use unit per level. HTML characters are not escaped.
func Marshal(value any, prefix, unit string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, unit)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("encoding value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func quote(key string) string {
	s, _ := Marshal(key, "", "")
	return s
}

// lineIndent returns the leading whitespace of the line holding offset.
func lineIndent(content []byte, offset int) string {
	if offset > len(content) {
		offset = len(content)
	}
	start := bytes.LastIndexByte(content[:offset], '\n') + 1
	end := start
	for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
		end++
	}
	return string(content[start:end])
}

func multiline(content []byte, start, end int) bool {
	if start < 0 || end > len(content) || start >= end {
		return false
	}
	return bytes.IndexByte(content[start:end], '\n') >= 0
}

// Editor records format-preserving edits to one parsed document.
type Editor struct {
	rec     *change.Recorder
	content []byte
	unit    string
}

// NewEditor binds rec and the content it was opened on.
func NewEditor(rec *change.Recorder) *Editor {
	content := rec.Original()
	return &Editor{rec: rec, content: content, unit: DetectIndent(content)}
}

// Unit returns the detected indentation unit.
func (e *Editor) Unit() string { return e.unit }

// memberIndent is the indentation of children of n. Children laid out one
// per line set it; otherwise a positive indent is taken as a column, and
// zero indents one unit past the parent's line.
func (e *Editor) memberIndent(n *Node, firstChild, indent int) string {
	if firstChild >= 0 && multiline(e.content, n.Start, firstChild) {
		return lineIndent(e.content, firstChild)
	}
	if indent > 0 {
		return strings.Repeat(" ", indent)
	}
	return lineIndent(e.content, n.Start) + e.unit
}

// AppendProperty adds key: value after the last property of obj.
func (e *Editor) AppendProperty(obj *Node, key string, value any, indent int) error {
	if obj == nil || obj.Kind != KindObject {
		return fmt.Errorf("appending %s: %w", key, ErrTypeMismatch)
	}

	if len(obj.Properties) == 0 {
		member := e.memberIndent(obj, -1, indent)
		val, err := Marshal(value, member, e.unit)
		if err != nil {
			return err
		}
		return e.fillEmpty(obj, member, quote(key)+": "+val)
	}

	first := obj.Properties[0].KeyStart
	member := e.memberIndent(obj, first, indent)
	val, err := Marshal(value, member, e.unit)
	if err != nil {
		return err
	}
	sep := ", "
	if multiline(e.content, obj.Start, first) {
		sep = ",\n" + member
	}
	last := obj.Properties[len(obj.Properties)-1]
	return e.rec.InsertRight(last.Value.End, sep+quote(key)+": "+val)
}

// InsertPropertiesInOrder adds each key of values to obj, before the first
// existing property that sorts after it. Keys are inserted in sorted order.
func (e *Editor) InsertPropertiesInOrder(obj *Node, values map[string]any, indent int) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// An empty object takes every key in one block.
	if obj != nil && obj.Kind == KindObject && len(obj.Properties) == 0 && len(keys) > 0 {
		member := e.memberIndent(obj, -1, indent)
		bodies := make([]string, 0, len(keys))
		for _, k := range keys {
			val, err := Marshal(values[k], member, e.unit)
			if err != nil {
				return err
			}
			bodies = append(bodies, quote(k)+": "+val)
		}
		return e.fillEmpty(obj, member, strings.Join(bodies, ",\n"+member))
	}

	for _, k := range keys {
		if err := e.insertInOrder(obj, k, values[k], indent); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) insertInOrder(obj *Node, key string, value any, indent int) error {
	if obj == nil || obj.Kind != KindObject {
		return fmt.Errorf("inserting %s: %w", key, ErrTypeMismatch)
	}

	var anchor *Property
	for _, p := range obj.Properties {
		if p.Key > key {
			anchor = p
			break
		}
	}
	if anchor == nil {
		return e.AppendProperty(obj, key, value, indent)
	}

	first := obj.Properties[0].KeyStart
	member := e.memberIndent(obj, first, indent)
	val, err := Marshal(value, member, e.unit)
	if err != nil {
		return err
	}
	sep := ", "
	if multiline(e.content, obj.Start, first) {
		sep = ",\n" + member
	}
	return e.rec.InsertLeft(anchor.KeyStart, quote(key)+": "+val+sep)
}

// ReplaceValue swaps the text of n for the serialized value.
func (e *Editor) ReplaceValue(n *Node, value any) error {
	val, err := Marshal(value, lineIndent(e.content, n.Start), e.unit)
	if err != nil {
		return err
	}
	if err := e.rec.Remove(n.Start, n.End); err != nil {
		return err
	}
	return e.rec.InsertRight(n.Start, val)
}

// AppendElements adds values after the last element of arr.
func (e *Editor) AppendElements(arr *Node, values []any, indent int) error {
	if arr == nil || arr.Kind != KindArray {
		return fmt.Errorf("appending elements: %w", ErrTypeMismatch)
	}
	if len(values) == 0 {
		return nil
	}

	first := -1
	if len(arr.Elements) > 0 {
		first = arr.Elements[0].Start
	}
	member := e.memberIndent(arr, first, indent)
	sep := ", "
	if first < 0 || multiline(e.content, arr.Start, first) {
		sep = ",\n" + member
	}

	rendered := make([]string, 0, len(values))
	for _, v := range values {
		val, err := Marshal(v, member, e.unit)
		if err != nil {
			return err
		}
		rendered = append(rendered, val)
	}

	if first < 0 {
		return e.fillEmpty(arr, member, strings.Join(rendered, sep))
	}
	last := arr.Elements[len(arr.Elements)-1]
	return e.rec.InsertRight(last.End, sep+strings.Join(rendered, sep))
}

// fillEmpty replaces whatever sits between the brackets of an empty
// container with a single indented block.
func (e *Editor) fillEmpty(n *Node, member, body string) error {
	inner, closing := n.Start+1, n.End-1
	if closing > inner {
		if err := e.rec.Remove(inner, closing); err != nil {
			return err
		}
	}
	return e.rec.InsertLeft(inner, "\n"+member+body+"\n"+lineIndent(e.content, n.Start))
}
