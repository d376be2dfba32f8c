package logic

import (
	"testing"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

func validRaw() formmodel.ConditionalRule {
	return formmodel.ConditionalRule{
		ID:               uuid.New(),
		SourceQuestionID: uuid.New(),
		Operator:         formmodel.OpEquals,
		CompareValue:     strPtr("yes"),
		ActionType:       formmodel.ActionShow,
	}
}

func TestNormalizeRule_JoinDefaultsToAnd(t *testing.T) {
	r, err := NormalizeRule(validRaw())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.JoinType != formmodel.JoinAnd {
		t.Errorf("join = %q, want AND", r.JoinType)
	}
}

func TestNormalizeRule_UnknownOperator(t *testing.T) {
	raw := validRaw()
	raw.Operator = "matches"
	if _, err := NormalizeRule(raw); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestNormalizeRule_UnknownAction(t *testing.T) {
	raw := validRaw()
	raw.ActionType = "highlight"
	if _, err := NormalizeRule(raw); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestNormalizeRule_MissingSource(t *testing.T) {
	raw := validRaw()
	raw.SourceQuestionID = uuid.Nil
	if _, err := NormalizeRule(raw); err == nil {
		t.Error("expected error for nil source question")
	}
}

func TestNormalizeRule_NilCompareValue(t *testing.T) {
	raw := validRaw()
	raw.CompareValue = nil
	if _, err := NormalizeRule(raw); err == nil {
		t.Error("equals without a compare value should be rejected")
	}
}

func TestNormalizeRule_EmptyCompareValueAllowed(t *testing.T) {
	raw := validRaw()
	raw.CompareValue = strPtr("")
	if _, err := NormalizeRule(raw); err != nil {
		t.Errorf("empty string compare value is legal: %v", err)
	}
}

func TestNormalizeRule_PresenceOperatorsIgnoreCompare(t *testing.T) {
	raw := validRaw()
	raw.Operator = formmodel.OpIsEmpty
	raw.CompareValue = nil
	if _, err := NormalizeRule(raw); err != nil {
		t.Errorf("is_empty needs no compare value: %v", err)
	}
}

func TestNormalizeRule_BadJoin(t *testing.T) {
	raw := validRaw()
	raw.JoinType = "XOR"
	if _, err := NormalizeRule(raw); err == nil {
		t.Error("expected error for unknown join type")
	}
}
