package response

import (
	"time"

	"github.com/google/uuid"
)

// Response lifecycle. In-progress drafts accept answer saves;
// completion runs the visibility and validation gate; amending
// reopens a completed response for correction.
const (
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusAmended    = "amended"
)

// FormResponse is one filling of a published form version.
type FormResponse struct {
	ID          uuid.UUID  `json:"id"`
	VersionID   uuid.UUID  `json:"versionId"`
	PatientID   uuid.UUID  `json:"patientId"`
	EncounterID *uuid.UUID `json:"encounterId,omitempty"`
	Status      string     `json:"status"`
	AuthoredBy  uuid.UUID  `json:"authoredBy,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Answers []Answer `json:"answers,omitempty"`
}

// Answer is one stored answer row. Plain questions use Value (or
// OptionID for choice questions); checkbox selections store one row
// per selection; grid cells carry MatrixRowID/MatrixColID.
type Answer struct {
	ID          uuid.UUID  `json:"id"`
	ResponseID  uuid.UUID  `json:"responseId"`
	QuestionID  uuid.UUID  `json:"questionId"`
	RepeatIndex int        `json:"repeatIndex"`
	MatrixRowID *uuid.UUID `json:"matrixRowId,omitempty"`
	MatrixColID *uuid.UUID `json:"matrixColId,omitempty"`
	OptionID    *uuid.UUID `json:"optionId,omitempty"`
	Value       string     `json:"value"`
}

// Editable reports whether the response still accepts answer saves.
func (r *FormResponse) Editable() bool {
	return r.Status == StatusInProgress || r.Status == StatusAmended
}
