package form

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinforms/clinforms/pkg/formmodel"
)

// Version lifecycle. Draft definitions are editable; publishing makes
// the structure immutable; retired versions stay resolvable for
// existing responses but accept no new ones.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusRetired   = "retired"
)

// Definition is a named form with a version history.
type Definition struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsStandard  bool      `json:"isStandard"`
	CreatedBy   uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Version is one revision of a definition's structure. Structure holds
// the full section/question/rule tree and is stored as a single JSONB
// document.
type Version struct {
	ID            uuid.UUID      `json:"id"`
	DefinitionID  uuid.UUID      `json:"definitionId"`
	VersionNumber int            `json:"versionNumber"`
	Status        string         `json:"status"`
	Structure     formmodel.Form `json:"structure"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Editable reports whether the version's structure may still change.
func (v *Version) Editable() bool { return v.Status == StatusDraft }
