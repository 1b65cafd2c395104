// Package jsonedit maps hujson's parse tree onto an offset-annotated Node
// tree and applies format-preserving edits to it.
package jsonedit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tailscale/hujson"
)

var (
	// ErrSyntax indicates malformed document text.
	ErrSyntax = errors.New("syntax error")

	// ErrInvalidDocument indicates a document whose root is not an object.
	ErrInvalidDocument = errors.New("invalid document: root is not an object")

	// ErrTypeMismatch indicates a merge between an existing value and a
	// replacement of incompatible shape.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Kind is the JSON type of a node.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindNull    Kind = "null"
)

// SyntaxError describes where parsing failed. Offset is -1 when the
// position is only known from Msg.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Offset < 0 {
		return "syntax error: " + e.Msg
	}
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Node is a parsed value. Start and End delimit its text in the document.
type Node struct {
	Kind  Kind
	Start int
	End   int

	Properties []*Property // objects, in source order
	Elements   []*Node     // arrays

	Str  string  // decoded string value
	Num  float64 // number value
	Bool bool    // boolean value
}

// Property is a key/value pair of an object.
type Property struct {
	Key      string
	KeyStart int
	KeyEnd   int
	Value    *Node
}

// Get returns the property named key, or nil.
func (n *Node) Get(key string) *Property {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, p := range n.Properties {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// Find follows a path of object keys from n.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, key := range path {
		p := cur.Get(key)
		if p == nil {
			return nil
		}
		cur = p.Value
	}
	return cur
}

// Keys returns the object's keys in source order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.Properties))
	for _, p := range n.Properties {
		keys = append(keys, p.Key)
	}
	return keys
}

// Text returns the node's source text.
func (n *Node) Text(content []byte) string {
	if n == nil || n.Start < 0 || n.End > len(content) {
		return ""
	}
	return string(content[n.Start:n.End])
}

// Parse parses strict JSON.
func Parse(content []byte) (*Node, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return nil, &SyntaxError{Offset: int(se.Offset), Msg: se.Error()}
		}
		return nil, &SyntaxError{Offset: -1, Msg: err.Error()}
	}
	return ParseLoose(content)
}

// ParseLoose parses JSON that may carry comments and trailing commas.
func ParseLoose(content []byte) (*Node, error) {
	v, err := hujson.Parse(content)
	if err != nil {
		return nil, &SyntaxError{Offset: -1, Msg: err.Error()}
	}
	return convert(v)
}

// ParseObject parses strict JSON and requires an object at the root.
func ParseObject(content []byte) (*Node, error) {
	root, err := Parse(content)
	if err != nil {
		return nil, err
	}
	if root.Kind != KindObject {
		return nil, fmt.Errorf("found %s: %w", root.Kind, ErrInvalidDocument)
	}
	return root, nil
}

// convert maps a hujson value onto a Node, keeping its byte span.
func convert(v hujson.Value) (*Node, error) {
	n := &Node{Start: v.StartOffset, End: v.EndOffset}
	switch val := v.Value.(type) {
	case *hujson.Object:
		n.Kind = KindObject
		for _, m := range val.Members {
			name, ok := m.Name.Value.(hujson.Literal)
			if !ok || name.Kind() != '"' {
				return nil, &SyntaxError{Offset: m.Name.StartOffset, Msg: "expected property name"}
			}
			prop := &Property{KeyStart: m.Name.StartOffset, KeyEnd: m.Name.EndOffset}
			if err := json.Unmarshal(name, &prop.Key); err != nil {
				return nil, &SyntaxError{Offset: m.Name.StartOffset, Msg: "invalid string literal"}
			}
			value, err := convert(m.Value)
			if err != nil {
				return nil, err
			}
			prop.Value = value
			n.Properties = append(n.Properties, prop)
		}
	case *hujson.Array:
		n.Kind = KindArray
		for _, el := range val.Elements {
			child, err := convert(el)
			if err != nil {
				return nil, err
			}
			n.Elements = append(n.Elements, child)
		}
	case hujson.Literal:
		switch val.Kind() {
		case '"':
			n.Kind = KindString
			if err := json.Unmarshal(val, &n.Str); err != nil {
				return nil, &SyntaxError{Offset: n.Start, Msg: "invalid string literal"}
			}
		case '0':
			n.Kind = KindNumber
			f, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				return nil, &SyntaxError{Offset: n.Start, Msg: "invalid number"}
			}
			n.Num = f
		case 't', 'f':
			n.Kind = KindBoolean
			n.Bool = val.Kind() == 't'
		case 'n':
			n.Kind = KindNull
		default:
			return nil, &SyntaxError{Offset: n.Start, Msg: "invalid literal"}
		}
	default:
		return nil, &SyntaxError{Offset: n.Start, Msg: fmt.Sprintf("unexpected value %T", v.Value)}
	}
	return n, nil
}
