package logic

import (
	"sort"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// EffectiveState is the resolved rendering state of one question.
type EffectiveState struct {
	Visible  bool `json:"visible"`
	Enabled  bool `json:"enabled"`
	Required bool `json:"required"`
}

// DiagnosticCode classifies a per-rule problem absorbed during
// resolution.
type DiagnosticCode string

const (
	DiagInvalidRule      DiagnosticCode = "invalid_rule"
	DiagForwardReference DiagnosticCode = "forward_reference"
	DiagFormulaError     DiagnosticCode = "formula_error"
)

// Diagnostic records a dropped rule or a never-true reference. These
// ride alongside the decision map; they never abort resolution.
type Diagnostic struct {
	Code       DiagnosticCode `json:"code"`
	QuestionID uuid.UUID      `json:"questionId"`
	RuleID     uuid.UUID      `json:"ruleId,omitempty"`
	Message    string         `json:"message"`
}

// Resolution is the full decision map for one (form, answers) pair.
//
// Questions is keyed by question id and reports repetition 0.
// Questions inside repeatable sections additionally appear in
// Instances with one state per repetition (index 0 equals the
// Questions entry).
type Resolution struct {
	Questions   map[uuid.UUID]EffectiveState   `json:"questions"`
	Instances   map[uuid.UUID][]EffectiveState `json:"instances,omitempty"`
	Sections    map[uuid.UUID]bool             `json:"sections"`
	Diagnostics []Diagnostic                   `json:"diagnostics,omitempty"`
}

// preparedRule is a normalized rule plus its ordering verdict.
type preparedRule struct {
	rule    Rule
	forward bool
}

// prepared is the per-call working set: the flattened form, position
// index, and every question's validated rule list.
type prepared struct {
	flat      []flatQuestion
	byID      map[uuid.UUID]*formmodel.Question
	sectionOf map[uuid.UUID]*formmodel.Section
	rules     map[uuid.UUID][]preparedRule
	diags     []Diagnostic
}

// prepare validates the form structure. Invalid rules and forward
// references become diagnostics; duplicate question ids are fatal.
// Recomputed on every call — ordering is never cached across
// structural edits.
func prepare(form *formmodel.Form) (*prepared, error) {
	sections := form.SectionList()
	flat := flatten(sections)
	pos, err := positionIndex(flat)
	if err != nil {
		return nil, err
	}

	p := &prepared{
		flat:      flat,
		byID:      make(map[uuid.UUID]*formmodel.Question, len(flat)),
		sectionOf: make(map[uuid.UUID]*formmodel.Section, len(flat)),
		rules:     make(map[uuid.UUID][]preparedRule),
	}
	for _, fq := range flat {
		p.byID[fq.question.ID] = fq.question
		p.sectionOf[fq.question.ID] = fq.section
	}

	for _, fq := range flat {
		q := fq.question
		if len(q.Rules) == 0 {
			continue
		}
		raw := append([]formmodel.ConditionalRule(nil), q.Rules...)
		sort.SliceStable(raw, func(i, j int) bool { return raw[i].SortOrder < raw[j].SortOrder })

		var list []preparedRule
		for _, r := range raw {
			rule, err := NormalizeRule(r)
			if err != nil {
				p.diags = append(p.diags, Diagnostic{
					Code:       DiagInvalidRule,
					QuestionID: q.ID,
					RuleID:     r.ID,
					Message:    err.Error(),
				})
				continue
			}
			fwd := !precedes(pos, rule.SourceQuestionID, q.ID)
			if fwd {
				ref := &ForwardReferenceError{RuleID: rule.ID, QuestionID: q.ID, SourceQuestionID: rule.SourceQuestionID}
				p.diags = append(p.diags, Diagnostic{
					Code:       DiagForwardReference,
					QuestionID: q.ID,
					RuleID:     rule.ID,
					Message:    ref.Error(),
				})
			}
			list = append(list, preparedRule{rule: rule, forward: fwd})
		}
		p.rules[q.ID] = list
	}
	return p, nil
}

// ValidateForm checks a form structure without evaluating answers.
// It returns the diagnostics that resolution would drop rules for, and
// an error only for duplicate question ids.
func ValidateForm(form *formmodel.Form) ([]Diagnostic, error) {
	p, err := prepare(form)
	if err != nil {
		return nil, err
	}
	return p.diags, nil
}

// instanceCount returns how many repetitions of a section to evaluate:
// one for plain sections; for repeatable sections, the highest
// answered repeat index plus one, clamped to MinRepeat..MaxRepeat.
func instanceCount(sec *formmodel.Section, answers *Snapshot) int {
	if !sec.IsRepeatable {
		return 1
	}
	ids := make(map[uuid.UUID]bool, len(sec.Questions))
	for i := range sec.Questions {
		ids[sec.Questions[i].ID] = true
	}
	n := answers.maxRepeat(ids) + 1

	min := sec.MinRepeat
	if min < 1 {
		min = 1
	}
	if n < min {
		n = min
	}
	if sec.MaxRepeat != nil && n > *sec.MaxRepeat {
		n = *sec.MaxRepeat
	}
	return n
}

// sourceAnswer looks up the answer gating a rule when evaluating
// repetition `repeat` of the owning question's section. Sources inside
// the same repeatable section read the same repetition; everything
// else reads repetition 0. Absent answers become the source type's
// empty value.
func (p *prepared) sourceAnswer(rule Rule, ownerSection *formmodel.Section, repeat int, answers *Snapshot) Value {
	src, ok := p.byID[rule.SourceQuestionID]
	if !ok {
		return Value{}
	}
	idx := 0
	if ownerSection.IsRepeatable && p.sectionOf[src.ID] == ownerSection {
		idx = repeat
	}
	if v, present := answers.Get(src.ID, idx); present {
		return v
	}
	return emptyValueFor(src.Type)
}

// groupResult combines a non-empty action group's rule outcomes with
// the group's shared join type. Forward references contribute false.
func (p *prepared) groupResult(rules []preparedRule, ownerSection *formmodel.Section, repeat int, answers *Snapshot) bool {
	join := rules[0].rule.JoinType
	result := join == formmodel.JoinAnd
	for _, pr := range rules {
		met := false
		if !pr.forward {
			met = evalRule(pr.rule, p.sourceAnswer(pr.rule, ownerSection, repeat, answers))
		}
		if join == formmodel.JoinOr {
			result = result || met
		} else {
			result = result && met
		}
	}
	return result
}

// resolveQuestion computes one question's effective state for one
// repetition.
func (p *prepared) resolveQuestion(q *formmodel.Question, sec *formmodel.Section, repeat int, answers *Snapshot) EffectiveState {
	if !q.IsActive {
		return EffectiveState{}
	}

	state := EffectiveState{Visible: true, Enabled: true, Required: q.IsRequired}

	// Partition by action; each group keeps its own join semantics.
	groups := map[string][]preparedRule{}
	for _, pr := range p.rules[q.ID] {
		groups[pr.rule.ActionType] = append(groups[pr.rule.ActionType], pr)
	}

	show, hasShow := groups[formmodel.ActionShow]
	hide, hasHide := groups[formmodel.ActionHide]
	enable, hasEnable := groups[formmodel.ActionEnable]
	disable, hasDisable := groups[formmodel.ActionDisable]
	require, hasRequire := groups[formmodel.ActionRequire]

	// visible = (show result, default true) AND NOT (hide result, default false)
	if hasShow {
		state.Visible = p.groupResult(show, sec, repeat, answers)
	}
	if hasHide && p.groupResult(hide, sec, repeat, answers) {
		state.Visible = false
	}

	if hasEnable {
		state.Enabled = p.groupResult(enable, sec, repeat, answers)
	}
	if hasDisable && p.groupResult(disable, sec, repeat, answers) {
		state.Enabled = false
	}

	// A matched require rule only ever adds a requirement.
	if hasRequire && p.groupResult(require, sec, repeat, answers) {
		state.Required = true
	}

	return state
}

// Resolve computes the effective state of every question and the
// derived visibility of every section for the given answer set.
//
// Resolution is total and stateless: every call recomputes every
// question from scratch, so repeated calls with unchanged inputs
// return identical output. The only fatal error is a duplicate
// question id; every per-rule problem is absorbed into Diagnostics.
func Resolve(form *formmodel.Form, answers *Snapshot) (*Resolution, error) {
	if answers == nil {
		answers = NewSnapshot()
	}
	p, err := prepare(form)
	if err != nil {
		return nil, err
	}

	// Calculated questions are evaluated first, into a copy, so rules
	// may depend on them without the caller's snapshot being touched.
	answers = p.seedCalculated(answers)

	res := &Resolution{
		Questions:   make(map[uuid.UUID]EffectiveState, len(p.flat)),
		Sections:    make(map[uuid.UUID]bool),
		Diagnostics: p.diags,
	}

	counts := make(map[uuid.UUID]int)
	for _, sec := range form.SectionList() {
		counts[sec.ID] = 0
	}

	for _, fq := range p.flat {
		q, sec := fq.question, fq.section
		n := instanceCount(sec, answers)

		states := make([]EffectiveState, n)
		for i := 0; i < n; i++ {
			states[i] = p.resolveQuestion(q, sec, i, answers)
		}
		res.Questions[q.ID] = states[0]
		if sec.IsRepeatable {
			if res.Instances == nil {
				res.Instances = make(map[uuid.UUID][]EffectiveState)
			}
			res.Instances[q.ID] = states
		}

		counts[sec.ID]++
		visible := false
		for _, st := range states {
			if st.Visible {
				visible = true
				break
			}
		}
		if visible {
			res.Sections[sec.ID] = true
		} else if _, seen := res.Sections[sec.ID]; !seen {
			res.Sections[sec.ID] = false
		}
	}

	// Sections carry no rules of their own: visibility is purely
	// derived. Empty sections stay visible so authors can add content.
	for id, qn := range counts {
		if qn == 0 {
			res.Sections[id] = true
		}
	}

	return res, nil
}
