package response

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinforms/clinforms/internal/domain/form"
	"github.com/clinforms/clinforms/internal/platform/logic"
	"github.com/clinforms/clinforms/pkg/formmodel"
)

// -- Mock Repositories --

type mockRepo struct {
	records map[uuid.UUID]*FormResponse
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*FormResponse)}
}

func (m *mockRepo) Create(_ context.Context, r *FormResponse) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.records[r.ID] = r
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*FormResponse, error) {
	r, ok := m.records[id]
	if !ok { return nil, fmt.Errorf("not found") }
	return r, nil
}
func (m *mockRepo) Update(_ context.Context, r *FormResponse) error { m.records[r.ID] = r; return nil }
func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error    { delete(m.records, id); return nil }
func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*FormResponse, int, error) {
	var result []*FormResponse
	for _, r := range m.records { if r.PatientID == patientID { result = append(result, r) } }
	return result, len(result), nil
}
func (m *mockRepo) ReplaceAnswers(_ context.Context, responseID uuid.UUID, answers []Answer) error {
	r, ok := m.records[responseID]
	if !ok { return fmt.Errorf("not found") }
	r.Answers = answers
	return nil
}

type mockVersionSource struct {
	versions map[uuid.UUID]*form.Version
}

func (m *mockVersionSource) GetVersion(_ context.Context, id uuid.UUID) (*form.Version, error) {
	v, ok := m.versions[id]
	if !ok { return nil, fmt.Errorf("not found") }
	return v, nil
}

// -- Fixtures --

func strPtr(s string) *string    { return &s }
func flPtr(f float64) *float64   { return &f }

// symptomStructure: a yes/no gate, a required detail question shown
// only for "yes", and an always-visible optional age with bounds.
func symptomStructure() (formmodel.Form, uuid.UUID, uuid.UUID, uuid.UUID) {
	gate := formmodel.Question{ID: uuid.New(), Text: "Any symptoms?", Type: formmodel.TypeYesNo, SortOrder: 0, IsActive: true, IsRequired: true}
	detail := formmodel.Question{
		ID: uuid.New(), Text: "Describe symptoms", Type: formmodel.TypeTextArea, SortOrder: 1, IsActive: true, IsRequired: true,
		Rules: []formmodel.ConditionalRule{{
			ID: uuid.New(), SourceQuestionID: gate.ID,
			Operator: formmodel.OpEquals, CompareValue: strPtr("yes"), ActionType: formmodel.ActionShow,
		}},
	}
	age := formmodel.Question{
		ID: uuid.New(), Text: "Age", Type: formmodel.TypeNumber, SortOrder: 2, IsActive: true,
		MinValue: flPtr(0), MaxValue: flPtr(120),
	}
	f := formmodel.Form{Sections: []formmodel.Section{{
		ID: uuid.New(), Name: "Screening", MinRepeat: 1,
		Questions: []formmodel.Question{gate, detail, age},
	}}}
	return f, gate.ID, detail.ID, age.ID
}

type fixture struct {
	svc     *Service
	version *form.Version
}

func newFixture(structure formmodel.Form, status string) *fixture {
	v := &form.Version{ID: uuid.New(), DefinitionID: uuid.New(), VersionNumber: 1, Status: status, Structure: structure}
	src := &mockVersionSource{versions: map[uuid.UUID]*form.Version{v.ID: v}}
	return &fixture{svc: NewService(newMockRepo(), src, zerolog.Nop()), version: v}
}

func (f *fixture) start(t *testing.T) *FormResponse {
	t.Helper()
	r := &FormResponse{VersionID: f.version.ID, PatientID: uuid.New()}
	if err := f.svc.Start(context.Background(), r); err != nil {
		t.Fatalf("start: %v", err)
	}
	return r
}

func answer(questionID uuid.UUID, value string) Answer {
	return Answer{QuestionID: questionID, Value: value}
}

// -- Tests --

func TestStart(t *testing.T) {
	structure, _, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)
	if r.Status != StatusInProgress {
		t.Errorf("status = %s, want in-progress", r.Status)
	}
}

func TestStart_UnpublishedVersionRejected(t *testing.T) {
	structure, _, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusDraft)
	r := &FormResponse{VersionID: f.version.ID, PatientID: uuid.New()}
	if err := f.svc.Start(context.Background(), r); err == nil {
		t.Error("expected error for draft version")
	}
}

func TestStart_PatientRequired(t *testing.T) {
	structure, _, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	if err := f.svc.Start(context.Background(), &FormResponse{VersionID: f.version.ID}); err == nil {
		t.Error("expected error for missing patient_id")
	}
}

func TestComplete_RequiredUnanswered(t *testing.T) {
	structure, gateID, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	_, issues, err := f.svc.Complete(context.Background(), r.ID)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if len(issues) != 1 || issues[0].QuestionID != gateID || issues[0].Code != "required" {
		t.Errorf("issues = %+v, want one required issue for the gate", issues)
	}
}

func TestComplete_HiddenRequiredDoesNotBlock(t *testing.T) {
	structure, gateID, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	// "no" hides the required detail question.
	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(gateID, "no")}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	done, issues, err := f.svc.Complete(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("complete: %v (issues %+v)", err, issues)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Errorf("response = %+v, want completed with timestamp", done)
	}
}

func TestComplete_VisibleRequiredBlocks(t *testing.T) {
	structure, gateID, detailID, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(gateID, "yes")}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	_, issues, err := f.svc.Complete(context.Background(), r.ID)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if len(issues) != 1 || issues[0].QuestionID != detailID {
		t.Errorf("issues = %+v, want one for the shown detail question", issues)
	}
}

func TestComplete_HiddenAnswerRetained(t *testing.T) {
	structure, gateID, detailID, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	// Answer the detail, then flip the gate so it hides.
	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{
		answer(gateID, "no"),
		answer(detailID, "persistent cough"),
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	done, _, err := f.svc.Complete(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(done.Answers) != 2 {
		t.Errorf("answers = %d, want hidden answer retained", len(done.Answers))
	}
}

func TestComplete_NumericBounds(t *testing.T) {
	structure, gateID, _, ageID := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{
		answer(gateID, "no"),
		answer(ageID, "200"),
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	_, issues, err := f.svc.Complete(context.Background(), r.ID)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if len(issues) != 1 || issues[0].Code != "out_of_range" {
		t.Errorf("issues = %+v, want one out_of_range", issues)
	}
}

func TestComplete_RegexPattern(t *testing.T) {
	q := formmodel.Question{
		ID: uuid.New(), Text: "Zip", Type: formmodel.TypeText, IsActive: true,
		RegexPattern: `^\d{5}$`, RegexErrorMessage: "zip must be 5 digits",
	}
	structure := formmodel.Form{Questions: []formmodel.Question{q}}
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(q.ID, "abc")}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	_, issues, err := f.svc.Complete(context.Background(), r.ID)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if len(issues) != 1 || issues[0].Code != "pattern" || issues[0].Message != "zip must be 5 digits" {
		t.Errorf("issues = %+v, want the author's pattern message", issues)
	}
}

func TestComplete_RuleImposedRequired(t *testing.T) {
	symptoms := formmodel.Question{ID: uuid.New(), Text: "Symptoms", Type: formmodel.TypeCheckbox, SortOrder: 0, IsActive: true,
		Options: []formmodel.Option{
			{ID: uuid.New(), Text: "cough", Value: "cough"},
			{ID: uuid.New(), Text: "chest pain", Value: "chest pain"},
		}}
	onset := formmodel.Question{
		ID: uuid.New(), Text: "Pain onset", Type: formmodel.TypeText, SortOrder: 1, IsActive: true,
		Rules: []formmodel.ConditionalRule{{
			ID: uuid.New(), SourceQuestionID: symptoms.ID,
			Operator: formmodel.OpContains, CompareValue: strPtr("chest pain"), ActionType: formmodel.ActionRequire,
		}},
	}
	structure := formmodel.Form{Questions: []formmodel.Question{symptoms, onset}}
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	chestOption := symptoms.Options[1].ID
	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{
		{QuestionID: symptoms.ID, OptionID: &chestOption},
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	_, issues, err := f.svc.Complete(context.Background(), r.ID)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if len(issues) != 1 || issues[0].QuestionID != onset.ID {
		t.Errorf("issues = %+v, want rule-imposed required on onset", issues)
	}
}

func TestSaveDraft_NotEditableAfterComplete(t *testing.T) {
	structure, gateID, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(gateID, "no")}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, _, err := f.svc.Complete(context.Background(), r.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.SaveDraft(context.Background(), r.ID, nil); !errors.Is(err, ErrNotEditable) {
		t.Errorf("err = %v, want ErrNotEditable", err)
	}
}

func TestAmend_ReopensCompleted(t *testing.T) {
	structure, gateID, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)

	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(gateID, "no")}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, _, err := f.svc.Complete(context.Background(), r.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	amended, err := f.svc.Amend(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.Status != StatusAmended {
		t.Errorf("status = %s, want amended", amended.Status)
	}
	if _, err := f.svc.SaveDraft(context.Background(), r.ID, []Answer{answer(gateID, "yes")}); err != nil {
		t.Errorf("amended responses should accept saves: %v", err)
	}
}

func TestAmend_InProgressRejected(t *testing.T) {
	structure, _, _, _ := symptomStructure()
	f := newFixture(structure, form.StatusPublished)
	r := f.start(t)
	if _, err := f.svc.Amend(context.Background(), r.ID); err == nil {
		t.Error("expected error amending an in-progress response")
	}
}

func TestBuildSnapshot_CheckboxAccumulates(t *testing.T) {
	q := formmodel.Question{ID: uuid.New(), Text: "q", Type: formmodel.TypeCheckbox, IsActive: true,
		Options: []formmodel.Option{
			{ID: uuid.New(), Text: "a", Value: "a"},
			{ID: uuid.New(), Text: "b", Value: "b"},
		}}
	structure := formmodel.Form{Questions: []formmodel.Question{q}}

	optA, optB := q.Options[0].ID, q.Options[1].ID
	snap := buildSnapshot(&structure, []Answer{
		{QuestionID: q.ID, OptionID: &optA},
		{QuestionID: q.ID, OptionID: &optB},
	})
	v, ok := snap.Get(q.ID, 0)
	if !ok || v.Kind != logic.KindMulti || len(v.Items) != 2 {
		t.Fatalf("value = %+v, want two-item multi", v)
	}
}

func TestBuildSnapshot_MatrixCells(t *testing.T) {
	rowID, colID := uuid.New(), uuid.New()
	q := formmodel.Question{ID: uuid.New(), Text: "grid", Type: formmodel.TypeMatrix, IsActive: true,
		Rows: []formmodel.TableRow{{ID: rowID, Label: "r"}},
		Cols: []formmodel.TableCol{{ID: colID, Label: "c", InputType: "text"}},
	}
	structure := formmodel.Form{Questions: []formmodel.Question{q}}

	snap := buildSnapshot(&structure, []Answer{
		{QuestionID: q.ID, MatrixRowID: &rowID, MatrixColID: &colID, Value: "normal"},
	})
	v, ok := snap.Get(q.ID, 0)
	if !ok || v.Kind != logic.KindCells || v.Cells[logic.CellRef{Row: rowID, Col: colID}] != "normal" {
		t.Fatalf("value = %+v, want one cell", v)
	}
}

func TestBuildSnapshot_UnknownQuestionSkipped(t *testing.T) {
	structure := formmodel.Form{}
	snap := buildSnapshot(&structure, []Answer{answer(uuid.New(), "orphan")})
	if snap.Len() != 0 {
		t.Error("answers for deleted questions should be ignored")
	}
}
