package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type fakeExamStore struct {
	exams           map[string]*models.Exam
	components      map[string][]models.ExamComponent
	withComponents  int
	singleCreates   int
	deletedExamIDs  []string
	updateSnapshots []models.Exam
}

func (f *fakeExamStore) CreateWithComponents(ctx context.Context, exam *models.Exam, components []models.ExamComponent) error {
	f.withComponents++
	exam.ID = "exam-1"
	if f.exams == nil {
		f.exams = make(map[string]*models.Exam)
	}
	if f.components == nil {
		f.components = make(map[string][]models.ExamComponent)
	}
	f.exams[exam.ID] = exam
	f.components[exam.ID] = components
	return nil
}

func (f *fakeExamStore) Create(ctx context.Context, exam *models.Exam) error {
	f.singleCreates++
	exam.ID = "exam-2"
	if f.exams == nil {
		f.exams = make(map[string]*models.Exam)
	}
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamStore) FindByID(ctx context.Context, tenantID, id string) (*models.Exam, error) {
	if e, ok := f.exams[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExamStore) ListComponents(ctx context.Context, examID string) ([]models.ExamComponent, error) {
	return f.components[examID], nil
}

func (f *fakeExamStore) Update(ctx context.Context, exam *models.Exam) error {
	f.updateSnapshots = append(f.updateSnapshots, *exam)
	f.exams[exam.ID] = exam
	return nil
}

func (f *fakeExamStore) Delete(ctx context.Context, tenantID, id string) error {
	if _, ok := f.exams[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.exams, id)
	f.deletedExamIDs = append(f.deletedExamIDs, id)
	return nil
}

func (f *fakeExamStore) List(ctx context.Context, tenantID string, filter models.ExamFilter) ([]models.Exam, error) {
	var out []models.Exam
	for _, e := range f.exams {
		out = append(out, *e)
	}
	return out, nil
}

type fakeComponentResults struct {
	rows []models.ExamComponentResult
}

func (f *fakeComponentResults) ListByExam(ctx context.Context, examID string) ([]models.ExamComponentResult, error) {
	return f.rows, nil
}

type fakeEnabledCAs struct {
	rows []models.ClassLevelCA
}

func (f *fakeEnabledCAs) ListEnabledByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error) {
	return f.rows, nil
}

func examCtx() models.RequestContext {
	return models.RequestContext{TenantID: "tenant-1", UserID: "admin-1", Role: models.RoleAdmin}
}

func TestExamServiceCreateWithAutoCAs(t *testing.T) {
	store := &fakeExamStore{}
	cas := &fakeEnabledCAs{rows: []models.ClassLevelCA{
		{ID: "ca-1", Caption: "First CA", MaxScore: 10, Enabled: true},
		{ID: "ca-2", Caption: "Second CA", MaxScore: 20, Enabled: true},
	}}
	svc := NewExamService(store, cas, &fakeComponentResults{}, &fakeClassDirectory{}, nil, nil)

	result, err := svc.CreateWithAutoCAs(context.Background(), examCtx(), CreateExamAutoCARequest{
		ClassID:      "class-1",
		ClassLevel:   "JSS1",
		SubjectID:    "subject-1",
		Name:         "First Term Exam",
		Date:         "2026-03-10",
		Semester:     "1",
		AcademicYear: "2025/2026",
		ExamScore:    70,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Exam.MaxScore, "max score is the CA sum plus the exam score")
	require.Len(t, result.Components, 3)
	assert.Equal(t, "First CA", result.Components[0].Name)
	assert.Equal(t, models.FinalComponentName, result.Components[2].Name)
	assert.Equal(t, 70.0, result.Components[2].MaxScore)
	assert.Equal(t, 1, store.withComponents, "exam and components persist in one call")
}

func TestExamServiceCreateWithAutoCAsNoSetup(t *testing.T) {
	store := &fakeExamStore{}
	svc := NewExamService(store, &fakeEnabledCAs{}, &fakeComponentResults{}, &fakeClassDirectory{}, nil, nil)

	result, err := svc.CreateWithAutoCAs(context.Background(), examCtx(), CreateExamAutoCARequest{
		ClassID:      "class-1",
		ClassLevel:   "JSS1",
		SubjectID:    "subject-1",
		Name:         "Exam Only",
		Date:         "2026-03-10",
		Semester:     "1",
		AcademicYear: "2025/2026",
		ExamScore:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Exam.MaxScore)
	require.Len(t, result.Components, 1)
	assert.Equal(t, models.FinalComponentName, result.Components[0].Name)
}

func TestExamServiceCreateValidatesClassAndSubject(t *testing.T) {
	classes := &fakeClassDirectory{
		classes:  map[string]*models.Class{"class-1": {ID: "class-1", Name: "JSS1 A"}},
		subjects: map[string]*models.Subject{"subject-1": {ID: "subject-1", Name: "Mathematics"}},
	}
	svc := NewExamService(&fakeExamStore{}, &fakeEnabledCAs{}, &fakeComponentResults{}, classes, nil, nil)

	req := CreateExamRequest{
		ClassID:      "missing",
		SubjectID:    "subject-1",
		Name:         "Exam",
		Date:         "2026-03-10",
		Semester:     "1",
		AcademicYear: "2025/2026",
		MaxScore:     100,
	}
	_, err := svc.Create(context.Background(), examCtx(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	req.ClassID = "class-1"
	req.SubjectID = "missing"
	_, err = svc.Create(context.Background(), examCtx(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	req.SubjectID = "subject-1"
	exam, err := svc.Create(context.Background(), examCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, "exam-2", exam.ID)
}

func TestExamServiceUpdatePartial(t *testing.T) {
	store := &fakeExamStore{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", Name: "Old Name", MaxScore: 100, Semester: "1", AcademicYear: "2025/2026"},
	}}
	svc := NewExamService(store, &fakeEnabledCAs{}, &fakeComponentResults{}, &fakeClassDirectory{}, nil, nil)

	name := "New Name"
	exam, err := svc.Update(context.Background(), examCtx(), "exam-1", UpdateExamRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", exam.Name)
	assert.Equal(t, 100.0, exam.MaxScore)
	assert.Equal(t, "1", exam.Semester)
}

func TestExamServiceGetNotFound(t *testing.T) {
	svc := NewExamService(&fakeExamStore{}, &fakeEnabledCAs{}, &fakeComponentResults{}, &fakeClassDirectory{}, nil, nil)

	_, err := svc.Get(context.Background(), examCtx(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExamServiceDeleteNotFound(t *testing.T) {
	svc := NewExamService(&fakeExamStore{}, &fakeEnabledCAs{}, &fakeComponentResults{}, &fakeClassDirectory{}, nil, nil)

	err := svc.Delete(context.Background(), examCtx(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
