// Package metadata locates declaration-metadata blocks (decorator calls such
// as @NgModule({...})) in a parsed source file and computes where a new list
// element belongs.
package metadata

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mustng65/angular-starter-schematic/change"
	"github.com/mustng65/angular-starter-schematic/parse"
)

// ErrMetadataBlockNotFound indicates that the decorator call, or a usable
// metadata object, is absent.
var ErrMetadataBlockNotFound = errors.New("metadata block not found")

// Slot describes a single insertion: the new element is written as
// Prefix + symbol + Suffix at Offset.
type Slot struct {
	Offset int
	Bias   change.Bias
	Prefix string
	Suffix string
}

// Text renders the insertion for symbol.
func (s Slot) Text(symbol string) string {
	return s.Prefix + symbol + s.Suffix
}

// Block is a resolved metadata block for one decorator and field.
type Block struct {
	Decorator    string
	Field        string
	FieldPresent bool
	Elements     []string // source text of the field's existing elements
	Slot         Slot
}

// Contains reports whether symbol is already an element of the field.
// Whitespace is ignored in the comparison.
func (b *Block) Contains(symbol string) bool {
	want := stripSpace(symbol)
	for _, el := range b.Elements {
		if stripSpace(el) == want {
			return true
		}
	}
	return false
}

// Resolve finds the first call decorator named decorator below root and
// computes the slot for appending to field. It never mutates anything.
func Resolve(root parse.Node, content []byte, decorator, field string) (*Block, error) {
	call := findDecoratorCall(root, content, decorator)
	if call == nil {
		return nil, fmt.Errorf("@%s: %w", decorator, ErrMetadataBlockNotFound)
	}

	block := &Block{Decorator: decorator, Field: field}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil, fmt.Errorf("@%s has no argument list: %w", decorator, ErrMetadataBlockNotFound)
	}

	argList := parse.NamedChildren(args)
	if len(argList) == 0 {
		// @NgModule() - synthesize the whole object literal.
		block.Slot = Slot{
			Offset: args.EndByte() - 1,
			Bias:   change.Left,
			Prefix: "{ " + field + ": [",
			Suffix: "] }",
		}
		return block, nil
	}

	object := argList[0]
	if object.Type() != "object" {
		return nil, fmt.Errorf("@%s metadata is a %s, not an object literal: %w", decorator, object.Type(), ErrMetadataBlockNotFound)
	}

	properties := parse.NamedChildren(object)
	for _, prop := range properties {
		if prop.Type() != "pair" || propertyName(prop, content) != field {
			continue
		}
		list := prop.ChildByFieldName("value")
		if list == nil || list.Type() != "array" {
			return nil, fmt.Errorf("@%s field %s is not an array literal: %w", decorator, field, ErrMetadataBlockNotFound)
		}
		block.FieldPresent = true
		block.Slot = listSlot(list, content)
		for _, el := range parse.NamedChildren(list) {
			block.Elements = append(block.Elements, parse.Text(el, content))
		}
		return block, nil
	}

	block.Slot = fieldSlot(object, properties, content, field)
	return block, nil
}

// findDecoratorCall returns the call expression of the first decorator
// whose callee (identifier or member property) is name.
func findDecoratorCall(root parse.Node, content []byte, name string) parse.Node {
	var found parse.Node
	parse.Walk(root, func(n parse.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() != "decorator" {
			return true
		}
		for _, expr := range parse.NamedChildren(n) {
			if expr.Type() == "call_expression" && calleeName(expr, content) == name {
				found = expr
			}
		}
		return false
	})
	return found
}

func calleeName(call parse.Node, content []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return parse.Text(fn, content)
	case "member_expression":
		return parse.Text(fn.ChildByFieldName("property"), content)
	}
	return ""
}

func propertyName(pair parse.Node, content []byte) string {
	return parse.Unquote(parse.Text(pair.ChildByFieldName("key"), content))
}

// listSlot places a new element in an existing array literal: as the sole
// element of an empty list, otherwise after the last element.
func listSlot(list parse.Node, content []byte) Slot {
	elements := parse.NamedChildren(list)
	if len(elements) == 0 {
		return Slot{Offset: list.EndByte() - 1, Bias: change.Left}
	}

	last := elements[len(elements)-1]
	separator := ", "
	if multiline(content, list.StartByte()+1, elements[0].StartByte()) {
		separator = ",\n" + indentAt(content, last.StartByte())
	}
	return Slot{Offset: last.EndByte(), Bias: change.Right, Prefix: separator}
}

// fieldSlot synthesizes "field: [X]" inside an object literal that lacks the field.
func fieldSlot(object parse.Node, properties []parse.Node, content []byte, field string) Slot {
	if len(properties) == 0 {
		return Slot{
			Offset: object.EndByte() - 1,
			Bias:   change.Left,
			Prefix: " " + field + ": [",
			Suffix: "] ",
		}
	}

	last := properties[len(properties)-1]
	separator := ", "
	if multiline(content, object.StartByte()+1, properties[0].StartByte()) {
		separator = ",\n" + indentAt(content, last.StartByte())
	}
	return Slot{
		Offset: last.EndByte(),
		Bias:   change.Right,
		Prefix: separator + field + ": [",
		Suffix: "]",
	}
}

func multiline(content []byte, start, end int) bool {
	if start < 0 || end > len(content) || start >= end {
		return false
	}
	return strings.Contains(string(content[start:end]), "\n")
}

// indentAt returns the leading whitespace of the line containing offset.
func indentAt(content []byte, offset int) string {
	lineStart := offset
	for lineStart > 0 && content[lineStart-1] != '\n' {
		lineStart--
	}
	end := lineStart
	for end < len(content) && (content[end] == ' ' || content[end] == '\t') {
		end++
	}
	return string(content[lineStart:end])
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
