package formmodel

import "github.com/google/uuid"

// Operator names for conditional rules.
const (
	OpEquals     = "equals"
	OpNotEquals  = "not_equals"
	OpGreater    = "greater_than"
	OpLess       = "less_than"
	OpContains   = "contains"
	OpIsEmpty    = "is_empty"
	OpIsNotEmpty = "is_not_empty"
)

// Action names for conditional rules.
const (
	ActionShow    = "show"
	ActionHide    = "hide"
	ActionEnable  = "enable"
	ActionDisable = "disable"
	ActionRequire = "require"
)

// Join combinators for a question's rule list.
const (
	JoinAnd = "AND"
	JoinOr  = "OR"
)

// ConditionalRule tests one source question's answer and, when the
// condition holds, applies an action to the owning question.
type ConditionalRule struct {
	ID               uuid.UUID `json:"id"`
	SourceQuestionID uuid.UUID `json:"sourceQuestionId"`
	Operator         string    `json:"operator"`
	CompareValue     *string   `json:"compareValue,omitempty"`
	ActionType       string    `json:"actionType"`
	JoinType         string    `json:"joinType,omitempty"`
	SortOrder        int       `json:"sortOrder"`
}

// Option is one selectable choice on a choice-like question.
type Option struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Value        string    `json:"value,omitempty"`
	NumericScore *float64  `json:"numericScore,omitempty"`
	SortOrder    int       `json:"sortOrder"`
}

// EffectiveValue returns the value compared by rules: the explicit
// option value, falling back to the option text.
func (o Option) EffectiveValue() string {
	if o.Value != "" {
		return o.Value
	}
	return o.Text
}

// TableRow is one row of a Matrix/Table grid.
type TableRow struct {
	ID        uuid.UUID `json:"rowId"`
	Code      string    `json:"rowCode,omitempty"`
	Label     string    `json:"rowLabel"`
	SortOrder int       `json:"sortOrder"`
}

// TableCol is one column of a Matrix/Table grid. Each column carries
// its own input type and, for choice inputs, its own options.
type TableCol struct {
	ID        uuid.UUID `json:"colId"`
	Code      string    `json:"colCode,omitempty"`
	Label     string    `json:"colLabel"`
	SortOrder int       `json:"sortOrder"`
	InputType string    `json:"inputType"` // text | number | radio | checkbox | dropdown
	Options   []Option  `json:"options,omitempty"`
}

// Question is one typed field of a form.
type Question struct {
	ID         uuid.UUID    `json:"id"`
	Code       string       `json:"code,omitempty"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"typeId"`
	SortOrder  int          `json:"sortOrder"`
	IsRequired bool         `json:"isRequired"`
	IsActive   bool         `json:"isActive"`

	HelpText        string `json:"helpText,omitempty"`
	PlaceholderText string `json:"placeholderText,omitempty"`
	DefaultValue    string `json:"defaultValue,omitempty"`

	// Validation bounds (applied by the renderer/completion check).
	MinValue          *float64 `json:"minValue,omitempty"`
	MaxValue          *float64 `json:"maxValue,omitempty"`
	MinLength         *int     `json:"minLength,omitempty"`
	MaxLength         *int     `json:"maxLength,omitempty"`
	RegexPattern      string   `json:"regexPattern,omitempty"`
	RegexErrorMessage string   `json:"regexErrorMessage,omitempty"`

	Options []Option `json:"options,omitempty"`

	// Grid layout, Matrix/Table types only.
	Rows []TableRow `json:"rows,omitempty"`
	Cols []TableCol `json:"cols,omitempty"`

	Rules []ConditionalRule `json:"conditionalRules,omitempty"`

	// Calculated type only.
	CalculationFormula string `json:"calculationFormula,omitempty"`

	// Clinical coding.
	CPTCode    string `json:"cptCode,omitempty"`
	LOINCCode  string `json:"loincCode,omitempty"`
	SNOMEDCode string `json:"snomedCode,omitempty"`
	IsPHI      bool   `json:"isPhi"`
}

// OptionValue returns the effective value of the option with the given
// id, and whether it exists.
func (q *Question) OptionValue(optionID uuid.UUID) (string, bool) {
	for _, o := range q.Options {
		if o.ID == optionID {
			return o.EffectiveValue(), true
		}
	}
	return "", false
}

// Section groups an ordered list of questions and may repeat.
type Section struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	SortOrder    int        `json:"sortOrder"`
	IsRepeatable bool       `json:"isRepeatable"`
	MinRepeat    int        `json:"minRepeat"`
	MaxRepeat    *int       `json:"maxRepeat,omitempty"`
	Questions    []Question `json:"questions"`
}

// Form is a fully materialized form structure. Legacy definitions may
// carry a flat question list instead of sections; SectionList folds
// that case into a single implicit section.
type Form struct {
	Sections []Section `json:"sections,omitempty"`

	// Legacy flat shape, pre-section definitions.
	Questions []Question `json:"questions,omitempty"`
}

// implicitSectionID namespaces the synthetic section wrapping legacy
// flat question lists. Fixed so section keys stay stable across calls.
var implicitSectionID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SectionList returns the form's sections in declared order, wrapping a
// legacy flat question list as one implicit section at position 0.
func (f *Form) SectionList() []Section {
	if len(f.Sections) > 0 {
		return f.Sections
	}
	if len(f.Questions) == 0 {
		return nil
	}
	return []Section{{
		ID:        implicitSectionID,
		Name:      "Form",
		MinRepeat: 1,
		Questions: f.Questions,
	}}
}
