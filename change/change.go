// Package change records positional text edits against a file's original
// content and applies them in one deterministic pass.
package change

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOverlappingEdit indicates that an edit intersects one already recorded.
	ErrOverlappingEdit = errors.New("edit overlaps a recorded edit")

	// ErrRecorderClosed indicates use of a recorder after it was applied or discarded.
	ErrRecorderClosed = errors.New("recorder already closed")

	// ErrInvalidRange indicates a position outside the original content or an inverted range.
	ErrInvalidRange = errors.New("invalid edit range")
)

// Bias decides the order of inserts recorded at the same position.
type Bias int

const (
	// Left inserts land before any Right insert at the same position.
	Left Bias = iota
	// Right inserts land after Left inserts at the same position.
	Right
)

func (b Bias) String() string {
	if b == Left {
		return "left"
	}
	return "right"
}

// Kind distinguishes inserts from removals.
type Kind string

const (
	KindInsert Kind = "insert"
	KindRemove Kind = "remove"
)

// Edit is a single pending change. Inserts are zero-width at Pos; removals
// cover the half-open range [Pos, End).
type Edit struct {
	Kind Kind
	Pos  int
	End  int
	Text string
	Bias Bias

	seq int
}

// order ranks edits sharing a position: left inserts, right inserts, removals.
func (e Edit) order() int {
	if e.Kind == KindRemove {
		return 2
	}
	return int(e.Bias)
}

// conflicts reports whether two edits intersect. Inserts may sit on the
// boundary of a removal but not inside it; inserts never conflict with each other.
func (e Edit) conflicts(o Edit) bool {
	switch {
	case e.Kind == KindInsert && o.Kind == KindInsert:
		return false
	case e.Kind == KindInsert:
		return o.Pos < e.Pos && e.Pos < o.End
	case o.Kind == KindInsert:
		return e.Pos < o.Pos && o.Pos < e.End
	default:
		return e.Pos < o.End && o.Pos < e.End
	}
}

// Recorder accumulates edits for one file. It is single use: Apply or
// Discard closes it.
type Recorder struct {
	path     string
	original []byte
	edits    []Edit
	closed   bool
}

// NewRecorder creates a recorder over a private copy of original.
func NewRecorder(path string, original []byte) *Recorder {
	return &Recorder{
		path:     path,
		original: bytes.Clone(original),
	}
}

// Path returns the path the recorder was opened for.
func (r *Recorder) Path() string {
	return r.path
}

// Original returns the content the recorder was opened against.
func (r *Recorder) Original() []byte {
	return r.original
}

// Len returns the number of recorded edits.
func (r *Recorder) Len() int {
	return len(r.edits)
}

// Closed reports whether the recorder was applied or discarded.
func (r *Recorder) Closed() bool {
	return r.closed
}

// Edits returns the recorded edits in record order.
func (r *Recorder) Edits() []Edit {
	out := make([]Edit, len(r.edits))
	copy(out, r.edits)
	return out
}

// Insert records text to be inserted at pos.
func (r *Recorder) Insert(pos int, text string, bias Bias) error {
	return r.record(Edit{Kind: KindInsert, Pos: pos, End: pos, Text: text, Bias: bias})
}

// InsertLeft records a left-biased insert.
func (r *Recorder) InsertLeft(pos int, text string) error {
	return r.Insert(pos, text, Left)
}

// InsertRight records a right-biased insert.
func (r *Recorder) InsertRight(pos int, text string) error {
	return r.Insert(pos, text, Right)
}

// Remove records removal of the bytes in [start, end).
func (r *Recorder) Remove(start, end int) error {
	if r.closed {
		return ErrRecorderClosed
	}
	if start > end {
		return fmt.Errorf("remove [%d, %d) in %s: %w", start, end, r.path, ErrInvalidRange)
	}
	if start == end {
		return r.check(start)
	}
	return r.record(Edit{Kind: KindRemove, Pos: start, End: end})
}

func (r *Recorder) check(pos int) error {
	if r.closed {
		return ErrRecorderClosed
	}
	if pos < 0 || pos > len(r.original) {
		return fmt.Errorf("position %d outside %s (%d bytes): %w", pos, r.path, len(r.original), ErrInvalidRange)
	}
	return nil
}

func (r *Recorder) record(e Edit) error {
	if err := r.check(e.Pos); err != nil {
		return err
	}
	if err := r.check(e.End); err != nil {
		return err
	}
	for _, prev := range r.edits {
		if e.conflicts(prev) {
			return fmt.Errorf("%s edit at [%d, %d) against %s edit at [%d, %d) in %s: %w",
				e.Kind, e.Pos, e.End, prev.Kind, prev.Pos, prev.End, r.path, ErrOverlappingEdit)
		}
	}
	e.seq = len(r.edits)
	r.edits = append(r.edits, e)
	return nil
}

// Apply splices all recorded edits into the original content and closes the recorder.
func (r *Recorder) Apply() ([]byte, error) {
	if r.closed {
		return nil, ErrRecorderClosed
	}
	r.closed = true

	sorted := make([]Edit, len(r.edits))
	copy(sorted, r.edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Pos != b.Pos {
			return a.Pos < b.Pos
		}
		if a.order() != b.order() {
			return a.order() < b.order()
		}
		return a.seq < b.seq
	})

	grow := 0
	for _, e := range sorted {
		grow += len(e.Text)
	}

	var buf bytes.Buffer
	buf.Grow(len(r.original) + grow)
	cursor := 0
	for _, e := range sorted {
		buf.Write(r.original[cursor:e.Pos])
		cursor = e.Pos
		switch e.Kind {
		case KindInsert:
			buf.WriteString(e.Text)
		case KindRemove:
			cursor = e.End
		}
	}
	buf.Write(r.original[cursor:])

	return buf.Bytes(), nil
}

// Discard closes the recorder without producing content.
func (r *Recorder) Discard() {
	r.closed = true
	r.edits = nil
}
