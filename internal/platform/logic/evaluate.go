package logic

import (
	"strconv"
	"strings"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// evalRule evaluates one normalized rule against the source question's
// answer. It never fails: malformed numeric input makes the rule false
// so one bad answer cannot break the form's visibility computation.
func evalRule(r Rule, answer Value) bool {
	switch r.Operator {
	case formmodel.OpIsEmpty:
		return answer.Empty()
	case formmodel.OpIsNotEmpty:
		return !answer.Empty()
	case formmodel.OpEquals:
		return answer.Canonical() == r.CompareValue
	case formmodel.OpNotEquals:
		return answer.Canonical() != r.CompareValue
	case formmodel.OpGreater, formmodel.OpLess:
		return evalNumeric(r.Operator, answer, r.CompareValue)
	case formmodel.OpContains:
		return evalContains(answer, r.CompareValue)
	default:
		// Unreachable after NormalizeRule; fail closed.
		return false
	}
}

func evalNumeric(op string, answer Value, compare string) bool {
	a, err := strconv.ParseFloat(strings.TrimSpace(answer.Canonical()), 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(compare), 64)
	if err != nil {
		return false
	}
	if op == formmodel.OpGreater {
		return a > b
	}
	return a < b
}

// evalContains is membership for multi and cell values, substring for
// text.
func evalContains(answer Value, compare string) bool {
	if answer.Kind == KindText {
		return strings.Contains(answer.Text, compare)
	}
	for _, item := range answer.members() {
		if item == compare {
			return true
		}
	}
	return false
}
