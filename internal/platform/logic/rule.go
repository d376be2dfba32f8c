package logic

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// Rule is a validated, normalized conditional rule ready for
// evaluation.
type Rule struct {
	ID               uuid.UUID
	SourceQuestionID uuid.UUID
	Operator         string
	CompareValue     string
	ActionType       string
	JoinType         string
	SortOrder        int
}

// InvalidRuleError reports a structurally invalid rule. The rule is
// excluded from resolution; resolution itself proceeds.
type InvalidRuleError struct {
	RuleID uuid.UUID
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, e.Reason)
}

// ForwardReferenceError reports a rule whose source question does not
// strictly precede the owning question (including self-reference and
// references to deleted questions). The rule is treated as never-true.
type ForwardReferenceError struct {
	RuleID           uuid.UUID
	QuestionID       uuid.UUID
	SourceQuestionID uuid.UUID
}

func (e *ForwardReferenceError) Error() string {
	return fmt.Sprintf("rule %s on question %s references source %s which does not precede it",
		e.RuleID, e.QuestionID, e.SourceQuestionID)
}

// DuplicateQuestionError is the one fatal structural error: a decision
// map cannot be keyed unambiguously when question ids repeat.
type DuplicateQuestionError struct {
	QuestionID uuid.UUID
}

func (e *DuplicateQuestionError) Error() string {
	return fmt.Sprintf("duplicate question id %s", e.QuestionID)
}

var validOperators = map[string]bool{
	formmodel.OpEquals:     true,
	formmodel.OpNotEquals:  true,
	formmodel.OpGreater:    true,
	formmodel.OpLess:       true,
	formmodel.OpContains:   true,
	formmodel.OpIsEmpty:    true,
	formmodel.OpIsNotEmpty: true,
}

var validActions = map[string]bool{
	formmodel.ActionShow:    true,
	formmodel.ActionHide:    true,
	formmodel.ActionEnable:  true,
	formmodel.ActionDisable: true,
	formmodel.ActionRequire: true,
}

// operatorNeedsValue reports whether the operator compares against a
// compare value. is_empty/is_not_empty ignore it.
func operatorNeedsValue(op string) bool {
	return op != formmodel.OpIsEmpty && op != formmodel.OpIsNotEmpty
}

// NormalizeRule validates a raw rule and returns its evaluable form.
//
// The compare value must be present (non-nil) for value operators; the
// empty string is allowed and meaningful for equals. JoinType defaults
// to AND when unset.
func NormalizeRule(raw formmodel.ConditionalRule) (Rule, error) {
	if !validOperators[raw.Operator] {
		return Rule{}, &InvalidRuleError{RuleID: raw.ID, Reason: fmt.Sprintf("unrecognized operator %q", raw.Operator)}
	}
	if !validActions[raw.ActionType] {
		return Rule{}, &InvalidRuleError{RuleID: raw.ID, Reason: fmt.Sprintf("unrecognized action type %q", raw.ActionType)}
	}
	if raw.SourceQuestionID == uuid.Nil {
		return Rule{}, &InvalidRuleError{RuleID: raw.ID, Reason: "missing source question"}
	}

	var compare string
	if operatorNeedsValue(raw.Operator) {
		if raw.CompareValue == nil {
			return Rule{}, &InvalidRuleError{RuleID: raw.ID, Reason: fmt.Sprintf("operator %q requires a compare value", raw.Operator)}
		}
		compare = *raw.CompareValue
	}

	join := raw.JoinType
	switch join {
	case "":
		join = formmodel.JoinAnd
	case formmodel.JoinAnd, formmodel.JoinOr:
	default:
		return Rule{}, &InvalidRuleError{RuleID: raw.ID, Reason: fmt.Sprintf("unrecognized join type %q", raw.JoinType)}
	}

	return Rule{
		ID:               raw.ID,
		SourceQuestionID: raw.SourceQuestionID,
		Operator:         raw.Operator,
		CompareValue:     compare,
		ActionType:       raw.ActionType,
		JoinType:         join,
		SortOrder:        raw.SortOrder,
	}, nil
}
