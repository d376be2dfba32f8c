// Package logic is the conditional visibility engine. Given a fully
// materialized form and the current answer set it decides, for every
// question and section, whether the field is visible, enabled, and
// required. Resolution is a pure function: no state is retained
// between calls and the caller's snapshot is never mutated.
package logic

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// ValueKind discriminates the closed set of answer value shapes.
type ValueKind int

const (
	// KindText is a single textual answer (also numbers, dates, option
	// values — everything single-valued travels as its string form).
	KindText ValueKind = iota
	// KindMulti is a multi-select answer (checkbox groups).
	KindMulti
	// KindCells is a matrix/table answer keyed by (row, col).
	KindCells
)

// CellRef addresses one cell of a grid answer.
type CellRef struct {
	Row uuid.UUID
	Col uuid.UUID
}

// Value is one raw answer. The zero Value is an empty text answer.
type Value struct {
	Kind  ValueKind
	Text  string
	Items []string
	Cells map[CellRef]string
}

// TextValue wraps a single string answer.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// MultiValue wraps a multi-select answer.
func MultiValue(items ...string) Value { return Value{Kind: KindMulti, Items: items} }

// CellsValue wraps a grid answer.
func CellsValue(cells map[CellRef]string) Value { return Value{Kind: KindCells, Cells: cells} }

// Empty reports whether the value satisfies is_empty: empty string,
// empty selection, or no cells set.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindMulti:
		return len(v.Items) == 0
	case KindCells:
		return len(v.Cells) == 0
	default:
		return v.Text == ""
	}
}

// canonicalSep joins multi-part values for textual comparison. The
// unit separator cannot occur in user input coming via JSON forms, so
// joined forms never collide with single values.
const canonicalSep = ""

// Canonical returns the normalized textual representation used by
// equals/not_equals: the text itself, or the sorted joined form for
// multi and cell values so element order never affects equality.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindMulti:
		items := append([]string(nil), v.Items...)
		sort.Strings(items)
		return strings.Join(items, canonicalSep)
	case KindCells:
		parts := make([]string, 0, len(v.Cells))
		for _, cell := range v.Cells {
			parts = append(parts, cell)
		}
		sort.Strings(parts)
		return strings.Join(parts, canonicalSep)
	default:
		return v.Text
	}
}

// members returns the value as a membership set for contains.
func (v Value) members() []string {
	switch v.Kind {
	case KindMulti:
		return v.Items
	case KindCells:
		out := make([]string, 0, len(v.Cells))
		for _, cell := range v.Cells {
			out = append(out, cell)
		}
		return out
	default:
		return nil
	}
}

// emptyValueFor is the typed "unanswered" value for a question type.
func emptyValueFor(t formmodel.QuestionType) Value {
	switch {
	case t.MultiValue():
		return Value{Kind: KindMulti}
	case t.HasGrid():
		return Value{Kind: KindCells}
	default:
		return Value{Kind: KindText}
	}
}

type snapshotKey struct {
	question uuid.UUID
	repeat   int
}

// Snapshot is the full current answer set, keyed by question id and
// repeat index. Absence of a key means "unanswered", which is distinct
// from an empty-string answer only in that both satisfy is_empty; the
// engine never distinguishes them beyond that.
type Snapshot struct {
	values map[snapshotKey]Value
}

// NewSnapshot returns an empty answer set.
func NewSnapshot() *Snapshot {
	return &Snapshot{values: make(map[snapshotKey]Value)}
}

// Set records an answer at repeat index 0.
func (s *Snapshot) Set(questionID uuid.UUID, v Value) {
	s.SetRepeat(questionID, 0, v)
}

// SetRepeat records an answer for one repetition of a repeatable
// section.
func (s *Snapshot) SetRepeat(questionID uuid.UUID, repeat int, v Value) {
	s.values[snapshotKey{questionID, repeat}] = v
}

// Delete removes an answer, returning the question to "unanswered".
func (s *Snapshot) Delete(questionID uuid.UUID, repeat int) {
	delete(s.values, snapshotKey{questionID, repeat})
}

// Get returns the answer at (questionID, repeat) and whether one is
// present.
func (s *Snapshot) Get(questionID uuid.UUID, repeat int) (Value, bool) {
	v, ok := s.values[snapshotKey{questionID, repeat}]
	return v, ok
}

// Len returns the number of recorded answers.
func (s *Snapshot) Len() int { return len(s.values) }

// maxRepeat returns the highest repeat index answered for any of the
// given questions, or -1 when none are answered.
func (s *Snapshot) maxRepeat(questionIDs map[uuid.UUID]bool) int {
	max := -1
	for k := range s.values {
		if questionIDs[k.question] && k.repeat > max {
			max = k.repeat
		}
	}
	return max
}

// clone returns an independent copy. Used to seed calculated values
// without touching the caller's snapshot.
func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{values: make(map[snapshotKey]Value, len(s.values))}
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

// Hash returns a stable FNV-1a digest of the snapshot contents,
// suitable for memoizing resolutions.
func (s *Snapshot) Hash() uint64 {
	entries := make([]string, 0, len(s.values))
	for k, v := range s.values {
		entries = append(entries, k.question.String()+"#"+strconv.Itoa(k.repeat)+"="+v.Canonical())
	}
	sort.Strings(entries)

	h := fnv.New64a()
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
