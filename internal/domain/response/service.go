package response

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/domain/form"
	"github.com/clinforms/clinforms/internal/platform/logic"
	"github.com/clinforms/clinforms/pkg/formmodel"
)

var (
	// ErrNotEditable is returned when answers target a completed
	// response.
	ErrNotEditable = errors.New("response is not editable")
	// ErrIncomplete is returned by Complete when validation issues
	// remain; the issues accompany the error.
	ErrIncomplete = errors.New("response is incomplete")
)

// ValidationIssue is one completion problem, addressed to a question
// instance so the renderer can focus it.
type ValidationIssue struct {
	QuestionID  uuid.UUID `json:"questionId"`
	RepeatIndex int       `json:"repeatIndex"`
	Code        string    `json:"code"` // required | out_of_range | length | pattern
	Message     string    `json:"message"`
}

// VersionSource is the slice of the form service the response side
// needs.
type VersionSource interface {
	GetVersion(ctx context.Context, id uuid.UUID) (*form.Version, error)
}

type Service struct {
	repo     Repository
	versions VersionSource
	logger   zerolog.Logger
}

func NewService(repo Repository, versions VersionSource, logger zerolog.Logger) *Service {
	return &Service{repo: repo, versions: versions, logger: logger}
}

// Start opens an in-progress response against a published version.
func (s *Service) Start(ctx context.Context, r *FormResponse) error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	v, err := s.versions.GetVersion(ctx, r.VersionID)
	if err != nil {
		return fmt.Errorf("form version not found")
	}
	if v.Status != form.StatusPublished {
		return fmt.Errorf("form version %d is %s, not published", v.VersionNumber, v.Status)
	}
	r.Status = StatusInProgress
	return s.repo.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*FormResponse, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormResponse, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if r.Status == StatusCompleted {
		return fmt.Errorf("completed responses cannot be deleted")
	}
	return s.repo.Delete(ctx, id)
}

// SaveDraft replaces the response's answers. Hidden questions may
// carry answers here; visibility is only enforced at completion, and
// hidden answers are retained in case the form's state changes back.
func (s *Service) SaveDraft(ctx context.Context, responseID uuid.UUID, answers []Answer) (*FormResponse, error) {
	r, err := s.repo.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !r.Editable() {
		return nil, ErrNotEditable
	}
	if err := s.repo.ReplaceAnswers(ctx, responseID, answers); err != nil {
		return nil, err
	}
	r.Answers = answers
	return r, nil
}

// Amend reopens a completed response for correction.
func (s *Service) Amend(ctx context.Context, id uuid.UUID) (*FormResponse, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusCompleted {
		return nil, fmt.Errorf("only completed responses can be amended")
	}
	r.Status = StatusAmended
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve returns the decision map for the response's current answers,
// for renderers that want the server's view of visibility.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*logic.Resolution, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.GetVersion(ctx, r.VersionID)
	if err != nil {
		return nil, err
	}
	return logic.Resolve(&v.Structure, buildSnapshot(&v.Structure, r.Answers))
}

// Complete runs the completion gate: every visible required question
// must be answered, and answered visible questions must pass the
// author's validation bounds. Hidden questions never block completion
// and their answers are kept.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*FormResponse, []ValidationIssue, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !r.Editable() {
		return nil, nil, ErrNotEditable
	}
	v, err := s.versions.GetVersion(ctx, r.VersionID)
	if err != nil {
		return nil, nil, err
	}

	snapshot := buildSnapshot(&v.Structure, r.Answers)
	res, err := logic.Resolve(&v.Structure, snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve structure: %w", err)
	}

	issues := completionIssues(&v.Structure, res, snapshot)
	if len(issues) > 0 {
		s.logger.Debug().
			Str("response_id", id.String()).
			Int("issues", len(issues)).
			Msg("completion rejected")
		return nil, issues, ErrIncomplete
	}

	now := time.Now()
	r.Status = StatusCompleted
	r.CompletedAt = &now
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, nil, err
	}
	return r, nil, nil
}

// buildSnapshot folds stored answer rows into an engine snapshot.
// Choice rows resolve their option id to the option's compare value;
// checkbox rows accumulate into a multi value; grid rows accumulate
// into a cell map.
func buildSnapshot(structure *formmodel.Form, answers []Answer) *logic.Snapshot {
	questions := make(map[uuid.UUID]*formmodel.Question)
	for _, sec := range structure.SectionList() {
		for i := range sec.Questions {
			q := sec.Questions[i]
			questions[q.ID] = &q
		}
	}

	snap := logic.NewSnapshot()
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			continue
		}

		value := a.Value
		if a.OptionID != nil {
			if v, ok := q.OptionValue(*a.OptionID); ok {
				value = v
			}
		}

		switch {
		case a.MatrixRowID != nil && a.MatrixColID != nil:
			cells := map[logic.CellRef]string{}
			if existing, ok := snap.Get(a.QuestionID, a.RepeatIndex); ok && existing.Kind == logic.KindCells {
				for k, v := range existing.Cells {
					cells[k] = v
				}
			}
			cells[logic.CellRef{Row: *a.MatrixRowID, Col: *a.MatrixColID}] = value
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.CellsValue(cells))
		case q.Type.MultiValue():
			items := []string{}
			if existing, ok := snap.Get(a.QuestionID, a.RepeatIndex); ok && existing.Kind == logic.KindMulti {
				items = existing.Items
			}
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.MultiValue(append(items, value)...))
		default:
			snap.SetRepeat(a.QuestionID, a.RepeatIndex, logic.TextValue(value))
		}
	}
	return snap
}

func completionIssues(structure *formmodel.Form, res *logic.Resolution, snap *logic.Snapshot) []ValidationIssue {
	var issues []ValidationIssue
	for _, sec := range structure.SectionList() {
		for i := range sec.Questions {
			q := &sec.Questions[i]
			if q.Type.DisplayOnly() || q.Type == formmodel.TypeCalculated {
				continue
			}

			states := res.Instances[q.ID]
			if states == nil {
				states = []logic.EffectiveState{res.Questions[q.ID]}
			}
			for repeat, state := range states {
				if !state.Visible {
					continue
				}
				answer, answered := snap.Get(q.ID, repeat)
				if !answered || answer.Empty() {
					if state.Required {
						issues = append(issues, ValidationIssue{
							QuestionID: q.ID, RepeatIndex: repeat,
							Code: "required", Message: fmt.Sprintf("%q is required", q.Text),
						})
					}
					continue
				}
				issues = append(issues, validateValue(q, repeat, answer)...)
			}
		}
	}
	return issues
}

// validateValue applies the author's validation metadata to one
// answered value. Only single text values carry bounds; selections and
// grids have their shape enforced by the model.
func validateValue(q *formmodel.Question, repeat int, v logic.Value) []ValidationIssue {
	if v.Kind != logic.KindText {
		return nil
	}
	var issues []ValidationIssue

	if q.MinValue != nil || q.MaxValue != nil {
		if f, err := strconv.ParseFloat(v.Text, 64); err == nil {
			if q.MinValue != nil && f < *q.MinValue {
				issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat,
					Code: "out_of_range", Message: fmt.Sprintf("%q must be at least %v", q.Text, *q.MinValue)})
			}
			if q.MaxValue != nil && f > *q.MaxValue {
				issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat,
					Code: "out_of_range", Message: fmt.Sprintf("%q must be at most %v", q.Text, *q.MaxValue)})
			}
		} else if q.Type == formmodel.TypeNumber {
			issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat,
				Code: "out_of_range", Message: fmt.Sprintf("%q must be a number", q.Text)})
		}
	}

	if q.MinLength != nil && len(v.Text) < *q.MinLength {
		issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat,
			Code: "length", Message: fmt.Sprintf("%q must be at least %d characters", q.Text, *q.MinLength)})
	}
	if q.MaxLength != nil && len(v.Text) > *q.MaxLength {
		issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat,
			Code: "length", Message: fmt.Sprintf("%q must be at most %d characters", q.Text, *q.MaxLength)})
	}

	if q.RegexPattern != "" {
		// An uncompilable pattern is an authoring mistake; it must not
		// block the respondent.
		if re, err := regexp.Compile(q.RegexPattern); err == nil && !re.MatchString(v.Text) {
			msg := q.RegexErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("%q has an invalid format", q.Text)
			}
			issues = append(issues, ValidationIssue{QuestionID: q.ID, RepeatIndex: repeat, Code: "pattern", Message: msg})
		}
	}
	return issues
}
