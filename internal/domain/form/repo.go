package form

import (
	"context"

	"github.com/google/uuid"
)

type DefinitionRepository interface {
	Create(ctx context.Context, d *Definition) error
	GetByID(ctx context.Context, id uuid.UUID) (*Definition, error)
	GetByCode(ctx context.Context, code string) (*Definition, error)
	Update(ctx context.Context, d *Definition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category string, limit, offset int) ([]*Definition, int, error)
}

type VersionRepository interface {
	Create(ctx context.Context, v *Version) error
	GetByID(ctx context.Context, id uuid.UUID) (*Version, error)
	Update(ctx context.Context, v *Version) error
	ListByDefinition(ctx context.Context, definitionID uuid.UUID) ([]*Version, error)
	// GetPublished returns the currently published version, if any.
	GetPublished(ctx context.Context, definitionID uuid.UUID) (*Version, error)
	// MaxVersionNumber returns 0 when the definition has no versions.
	MaxVersionNumber(ctx context.Context, definitionID uuid.UUID) (int, error)
}
