package logic

import (
	"testing"

	"github.com/google/uuid"
)

func TestSnapshotHash_InsertionOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	s1 := NewSnapshot()
	s1.Set(a, TextValue("x"))
	s1.Set(b, MultiValue("1", "2"))

	s2 := NewSnapshot()
	s2.Set(b, MultiValue("2", "1"))
	s2.Set(a, TextValue("x"))

	if s1.Hash() != s2.Hash() {
		t.Error("hash must not depend on insertion or selection order")
	}
}

func TestSnapshotHash_DistinguishesRepeats(t *testing.T) {
	q := uuid.New()
	s1 := NewSnapshot()
	s1.SetRepeat(q, 0, TextValue("x"))
	s2 := NewSnapshot()
	s2.SetRepeat(q, 1, TextValue("x"))
	if s1.Hash() == s2.Hash() {
		t.Error("same value at different repeats should hash differently")
	}
}

func TestSnapshotDelete_ReturnsToUnanswered(t *testing.T) {
	q := uuid.New()
	s := NewSnapshot()
	s.Set(q, TextValue("x"))
	s.Delete(q, 0)
	if _, ok := s.Get(q, 0); ok {
		t.Error("deleted answer should be absent")
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestSnapshotClone_Independent(t *testing.T) {
	q := uuid.New()
	s := NewSnapshot()
	s.Set(q, TextValue("x"))

	c := s.clone()
	c.Set(q, TextValue("y"))
	c.Set(uuid.New(), TextValue("z"))

	if v, _ := s.Get(q, 0); v.Text != "x" {
		t.Error("mutating the clone must not affect the original")
	}
	if s.Len() != 1 {
		t.Errorf("original len = %d, want 1", s.Len())
	}
}

func TestValueCanonical_MultiJoinUnambiguous(t *testing.T) {
	// A single answer whose text contains both item values must not
	// collide with the joined multi form.
	joined := MultiValue("a", "b").Canonical()
	if TextValue("ab").Canonical() == joined {
		t.Error("joined multi form collides with plain text")
	}
	if TextValue("a,b").Canonical() == joined {
		t.Error("joined multi form collides with comma text")
	}
}
