package logic

import (
	"testing"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

func evalOp(op, compare string, answer Value) bool {
	return evalRule(Rule{Operator: op, CompareValue: compare}, answer)
}

func TestEvalEquals_MultiOrderInsensitive(t *testing.T) {
	want := MultiValue("a", "b").Canonical()
	if got := MultiValue("b", "a").Canonical(); got != want {
		t.Errorf("canonical forms differ: %q vs %q", got, want)
	}
	if !evalOp(formmodel.OpEquals, want, MultiValue("b", "a")) {
		t.Error("equals should ignore selection order")
	}
}

func TestEvalEquals_EmptyCompareValue(t *testing.T) {
	if !evalOp(formmodel.OpEquals, "", TextValue("")) {
		t.Error(`equals "" should match an empty answer`)
	}
	if evalOp(formmodel.OpEquals, "", TextValue("x")) {
		t.Error(`equals "" should not match a filled answer`)
	}
}

func TestEvalNumeric_Comparisons(t *testing.T) {
	if !evalOp(formmodel.OpGreater, "65", TextValue("66")) {
		t.Error("66 > 65 should hold")
	}
	if evalOp(formmodel.OpGreater, "65", TextValue("65")) {
		t.Error("greater_than is strict")
	}
	if !evalOp(formmodel.OpLess, "10", TextValue(" 9.5 ")) {
		t.Error("surrounding whitespace should be tolerated")
	}
}

func TestEvalNumeric_MalformedIsFalse(t *testing.T) {
	if evalOp(formmodel.OpGreater, "65", TextValue("n/a")) {
		t.Error("unparseable answer must be false")
	}
	if evalOp(formmodel.OpLess, "ten", TextValue("5")) {
		t.Error("unparseable compare value must be false")
	}
	if evalOp(formmodel.OpGreater, "0", TextValue("")) {
		t.Error("empty answer must be false, not zero")
	}
}

func TestEvalContains_TextSubstring(t *testing.T) {
	if !evalOp(formmodel.OpContains, "pain", TextValue("chest pain at rest")) {
		t.Error("contains on text is substring match")
	}
	if evalOp(formmodel.OpContains, "fever", TextValue("chest pain")) {
		t.Error("absent substring should not match")
	}
}

func TestEvalContains_MultiIsExactMembership(t *testing.T) {
	answer := MultiValue("chest pain", "cough")
	if !evalOp(formmodel.OpContains, "chest pain", answer) {
		t.Error("selected item should match")
	}
	if evalOp(formmodel.OpContains, "chest", answer) {
		t.Error("membership is exact, not substring")
	}
}

func TestEvalContains_CellValues(t *testing.T) {
	cells := CellsValue(map[CellRef]string{
		{}: "normal",
	})
	if !evalOp(formmodel.OpContains, "normal", cells) {
		t.Error("cell value should match membership")
	}
}

func TestEvalIsEmpty_ByKind(t *testing.T) {
	if !evalOp(formmodel.OpIsEmpty, "", TextValue("")) {
		t.Error("empty text is empty")
	}
	if !evalOp(formmodel.OpIsEmpty, "", MultiValue()) {
		t.Error("no selections is empty")
	}
	if evalOp(formmodel.OpIsEmpty, "", MultiValue("a")) {
		t.Error("a selection is not empty")
	}
	if !evalOp(formmodel.OpIsNotEmpty, "", TextValue("0")) {
		t.Error(`"0" is not empty`)
	}
}
