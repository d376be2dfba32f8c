package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/platform/logic"
	"github.com/clinforms/clinforms/pkg/formmodel"
)

var (
	// ErrImmutable is returned when a structural edit targets a
	// version that is no longer a draft.
	ErrImmutable = errors.New("version is not a draft")
	// ErrNotPublished is returned when publish-only operations target
	// a version in the wrong state.
	ErrNotPublished = errors.New("version is not published")
)

type Service struct {
	defs     DefinitionRepository
	versions VersionRepository
	cache    *logic.ResolutionCache
	logger   zerolog.Logger
}

func NewService(defs DefinitionRepository, versions VersionRepository, cache *logic.ResolutionCache, logger zerolog.Logger) *Service {
	return &Service{defs: defs, versions: versions, cache: cache, logger: logger}
}

// -- Definitions --

func (s *Service) CreateDefinition(ctx context.Context, d *Definition) error {
	if d.Code == "" {
		return fmt.Errorf("code is required")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if existing, err := s.defs.GetByCode(ctx, d.Code); err == nil && existing != nil {
		return fmt.Errorf("code %q is already in use", d.Code)
	}
	return s.defs.Create(ctx, d)
}

func (s *Service) GetDefinition(ctx context.Context, id uuid.UUID) (*Definition, error) {
	return s.defs.GetByID(ctx, id)
}

func (s *Service) UpdateDefinition(ctx context.Context, d *Definition) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.defs.Update(ctx, d)
}

func (s *Service) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	versions, err := s.versions.ListByDefinition(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.Status == StatusPublished {
			return fmt.Errorf("definition has a published version; retire it first")
		}
	}
	return s.defs.Delete(ctx, id)
}

func (s *Service) ListDefinitions(ctx context.Context, category string, limit, offset int) ([]*Definition, int, error) {
	return s.defs.List(ctx, category, limit, offset)
}

// -- Versions --

// CreateVersion opens a new draft, numbered after the definition's
// highest version and seeded with the latest version's structure so
// authors edit incrementally.
func (s *Service) CreateVersion(ctx context.Context, definitionID uuid.UUID) (*Version, error) {
	if _, err := s.defs.GetByID(ctx, definitionID); err != nil {
		return nil, err
	}
	max, err := s.versions.MaxVersionNumber(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	v := &Version{
		DefinitionID:  definitionID,
		VersionNumber: max + 1,
		Status:        StatusDraft,
	}
	if max > 0 {
		prior, err := s.latestVersion(ctx, definitionID)
		if err != nil {
			return nil, err
		}
		v.Structure = prior.Structure
	}
	if err := s.versions.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) latestVersion(ctx context.Context, definitionID uuid.UUID) (*Version, error) {
	versions, err := s.versions.ListByDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("definition has no versions")
	}
	latest := versions[0]
	for _, v := range versions {
		if v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	return latest, nil
}

func (s *Service) GetVersion(ctx context.Context, id uuid.UUID) (*Version, error) {
	return s.versions.GetByID(ctx, id)
}

func (s *Service) ListVersions(ctx context.Context, definitionID uuid.UUID) ([]*Version, error) {
	return s.versions.ListByDefinition(ctx, definitionID)
}

// SaveStructure replaces a draft's structure. Structural validation
// runs on every save: duplicate question ids are rejected outright,
// anything else comes back as diagnostics with the save accepted.
func (s *Service) SaveStructure(ctx context.Context, versionID uuid.UUID, structure formmodel.Form) ([]logic.Diagnostic, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !v.Editable() {
		return nil, ErrImmutable
	}

	diags, err := logic.ValidateForm(&structure)
	if err != nil {
		return nil, fmt.Errorf("invalid structure: %w", err)
	}
	if len(diags) > 0 {
		s.logger.Warn().
			Str("version_id", versionID.String()).
			Int("diagnostics", len(diags)).
			Msg("form structure saved with rule diagnostics")
	}

	v.Structure = structure
	if err := s.versions.Update(ctx, v); err != nil {
		return nil, err
	}
	s.cache.Invalidate(versionID)
	return diags, nil
}

// Validate reports what resolution would drop, without saving.
func (s *Service) Validate(ctx context.Context, versionID uuid.UUID) ([]logic.Diagnostic, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return logic.ValidateForm(&v.Structure)
}

// Publish freezes a draft. Any previously published version of the
// same definition is retired so at most one version is live.
func (s *Service) Publish(ctx context.Context, versionID uuid.UUID) (*Version, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.Status != StatusDraft {
		return nil, ErrImmutable
	}
	if _, err := logic.ValidateForm(&v.Structure); err != nil {
		return nil, fmt.Errorf("invalid structure: %w", err)
	}

	if current, err := s.versions.GetPublished(ctx, v.DefinitionID); err == nil && current != nil {
		current.Status = StatusRetired
		if err := s.versions.Update(ctx, current); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	v.Status = StatusPublished
	v.PublishedAt = &now
	if err := s.versions.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Retire(ctx context.Context, versionID uuid.UUID) (*Version, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.Status != StatusPublished {
		return nil, ErrNotPublished
	}
	v.Status = StatusRetired
	if err := s.versions.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// -- Resolution --

// Resolve computes the decision map for one version and answer set.
// Published and retired structures are immutable, so their resolutions
// are memoized; drafts are always recomputed.
func (s *Service) Resolve(ctx context.Context, versionID uuid.UUID, answers *logic.Snapshot) (*logic.Resolution, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = logic.NewSnapshot()
	}

	immutable := v.Status != StatusDraft
	if immutable {
		if res, ok := s.cache.Get(versionID, answers); ok {
			return res, nil
		}
	}

	res, err := logic.Resolve(&v.Structure, answers)
	if err != nil {
		return nil, err
	}
	if immutable {
		s.cache.Put(versionID, answers, res)
	}
	return res, nil
}

// ValidSources lists the questions that may gate the given question,
// for the rule builder's source picker.
func (s *Service) ValidSources(ctx context.Context, versionID, questionID uuid.UUID) ([]uuid.UUID, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return logic.ValidSources(&v.Structure, questionID), nil
}
