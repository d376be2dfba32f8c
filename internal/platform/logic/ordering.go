package logic

import (
	"sort"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// flatQuestion is one question at its flattened position.
type flatQuestion struct {
	question *formmodel.Question
	section  *formmodel.Section
	pos      int
}

// flatten orders sections by SortOrder, then questions within each
// section by SortOrder, yielding the single deterministic sequence the
// acyclicity rule is defined over. Ties preserve declared order.
func flatten(sections []formmodel.Section) []flatQuestion {
	ordered := make([]*formmodel.Section, len(sections))
	for i := range sections {
		ordered[i] = &sections[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	var flat []flatQuestion
	for _, sec := range ordered {
		qs := make([]*formmodel.Question, len(sec.Questions))
		for i := range sec.Questions {
			qs[i] = &sec.Questions[i]
		}
		sort.SliceStable(qs, func(i, j int) bool {
			return qs[i].SortOrder < qs[j].SortOrder
		})
		for _, q := range qs {
			flat = append(flat, flatQuestion{question: q, section: sec, pos: len(flat)})
		}
	}
	return flat
}

// positionIndex maps question ids to flattened positions. A repeated
// id is fatal: the decision map could not be keyed unambiguously.
func positionIndex(flat []flatQuestion) (map[uuid.UUID]int, error) {
	pos := make(map[uuid.UUID]int, len(flat))
	for _, fq := range flat {
		if _, dup := pos[fq.question.ID]; dup {
			return nil, &DuplicateQuestionError{QuestionID: fq.question.ID}
		}
		pos[fq.question.ID] = fq.pos
	}
	return pos, nil
}

// precedes reports whether source occurs strictly before owner in the
// flattened sequence. Unknown sources (deleted questions) and
// self-references fail the check.
func precedes(pos map[uuid.UUID]int, source, owner uuid.UUID) bool {
	sp, ok := pos[source]
	if !ok {
		return false
	}
	op, ok := pos[owner]
	if !ok {
		return false
	}
	return sp < op
}

// ValidSources returns the ids of every question that may serve as a
// rule source for the given question: all questions strictly before it
// in flattened order. Used by authoring validation; recomputed on
// every call since structural edits invalidate any ordering.
func ValidSources(form *formmodel.Form, questionID uuid.UUID) []uuid.UUID {
	flat := flatten(form.SectionList())
	var out []uuid.UUID
	for _, fq := range flat {
		if fq.question.ID == questionID {
			break
		}
		out = append(out, fq.question.ID)
	}
	return out
}
