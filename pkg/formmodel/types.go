// Package formmodel holds the shared form definition model: sections,
// questions, options, table grids, and conditional rules. The structures
// here are the wire shape (JSON), the storage shape (JSONB), and the
// input to the logic engine; they are treated as read-only per
// evaluation call.
package formmodel

// QuestionType enumerates the supported field types.
type QuestionType int

const (
	TypeText QuestionType = iota + 1
	TypeTextArea
	TypeNumber
	TypeYesNo
	TypeMultipleChoice
	TypeCheckbox
	TypeDropdown
	TypeRadioButton
	TypeDate
	TypeDateTime
	TypeTime
	TypeSlider
	TypeScale
	TypeFileUpload
	TypeSignature
	TypeMatrix
	TypeCalculated
	TypeDisplay
	TypeHidden
	TypeRichTextBlock
	TypeTable
)

var questionTypeNames = map[QuestionType]string{
	TypeText:           "Text",
	TypeTextArea:       "TextArea",
	TypeNumber:         "Number",
	TypeYesNo:          "YesNo",
	TypeMultipleChoice: "MultipleChoice",
	TypeCheckbox:       "Checkbox",
	TypeDropdown:       "Dropdown",
	TypeRadioButton:    "RadioButton",
	TypeDate:           "Date",
	TypeDateTime:       "DateTime",
	TypeTime:           "Time",
	TypeSlider:         "Slider",
	TypeScale:          "Scale",
	TypeFileUpload:     "FileUpload",
	TypeSignature:      "Signature",
	TypeMatrix:         "Matrix",
	TypeCalculated:     "Calculated",
	TypeDisplay:        "Display",
	TypeHidden:         "Hidden",
	TypeRichTextBlock:  "RichTextBlock",
	TypeTable:          "Table",
}

var optionTypes = map[QuestionType]bool{
	TypeMultipleChoice: true,
	TypeCheckbox:       true,
	TypeDropdown:       true,
	TypeRadioButton:    true,
	TypeScale:          true,
}

var displayOnlyTypes = map[QuestionType]bool{
	TypeDisplay:       true,
	TypeRichTextBlock: true,
	TypeHidden:        true,
}

var multiValueTypes = map[QuestionType]bool{
	TypeCheckbox: true,
}

var gridTypes = map[QuestionType]bool{
	TypeMatrix: true,
	TypeTable:  true,
}

// String returns the display name for the type, or "Unknown".
func (t QuestionType) String() string {
	if name, ok := questionTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether t is one of the recognized question types.
func (t QuestionType) Valid() bool {
	_, ok := questionTypeNames[t]
	return ok
}

// SupportsOptions reports whether the type carries an option list
// (choice-like types).
func (t QuestionType) SupportsOptions() bool { return optionTypes[t] }

// DisplayOnly reports whether the type renders content without
// collecting an answer. Display-only questions can be hidden by rules
// but never gate anything as a rule source.
func (t QuestionType) DisplayOnly() bool { return displayOnlyTypes[t] }

// MultiValue reports whether answers to the type are value lists
// rather than a single value.
func (t QuestionType) MultiValue() bool { return multiValueTypes[t] }

// HasGrid reports whether the type is answered cell-by-cell over a
// rows x cols grid.
func (t QuestionType) HasGrid() bool { return gridTypes[t] }
