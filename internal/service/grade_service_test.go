package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type fakeRecords struct {
	existing    map[string]bool
	inserted    []models.AcademicRecord
	listFilter  models.GradeFilter
	listFilters []models.GradeFilter
	listResult  []models.AcademicRecord
}

func recordKey(studentID, examID string) string { return studentID + "/" + examID }

func (f *fakeRecords) Exists(ctx context.Context, tenantID, studentID, examID string) (bool, error) {
	return f.existing[recordKey(studentID, examID)], nil
}

func (f *fakeRecords) Insert(ctx context.Context, record *models.AcademicRecord) error {
	if f.existing[recordKey(record.StudentID, record.ExamID)] {
		return repository.ErrDuplicate
	}
	f.inserted = append(f.inserted, *record)
	return nil
}

func (f *fakeRecords) BulkInsert(ctx context.Context, records []models.AcademicRecord) error {
	for _, record := range records {
		if f.existing[recordKey(record.StudentID, record.ExamID)] {
			return repository.ErrDuplicate
		}
	}
	f.inserted = append(f.inserted, records...)
	return nil
}

func (f *fakeRecords) List(ctx context.Context, tenantID string, filter models.GradeFilter) ([]models.AcademicRecord, error) {
	f.listFilter = filter
	f.listFilters = append(f.listFilters, filter)
	return f.listResult, nil
}

type fakeGradeExams struct {
	exams      map[string]*models.Exam
	components map[string]*models.ExamComponent
}

func (f *fakeGradeExams) FindByID(ctx context.Context, tenantID, id string) (*models.Exam, error) {
	if e, ok := f.exams[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGradeExams) FindComponent(ctx context.Context, componentID string) (*models.ExamComponent, error) {
	if c, ok := f.components[componentID]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeResults struct {
	upserts []models.ExamComponentResult
}

func (f *fakeResults) Upsert(ctx context.Context, result *models.ExamComponentResult) error {
	f.upserts = append(f.upserts, *result)
	return nil
}

type gradeFixture struct {
	records     *fakeRecords
	exams       *fakeGradeExams
	results     *fakeResults
	students    *fakeStudentDirectory
	classes     *fakeClassDirectory
	assignments *fakeAssignments
	cache       *fakeCache
	svc         *GradeService
}

func newGradeFixture() *gradeFixture {
	students := &fakeStudentDirectory{
		students: map[string]*models.Student{
			"student-1": {ID: "student-1", Status: models.StudentStatusActive, ClassID: "class-1", UserID: "user-s1"},
			"student-2": {ID: "student-2", Status: models.StudentStatusActive, ClassID: "class-1", UserID: "user-s2"},
			"student-3": {ID: "student-3", Status: "inactive", ClassID: "class-1", UserID: "user-s3"},
			"student-9": {ID: "student-9", Status: models.StudentStatusActive, ClassID: "class-9", UserID: "user-s9"},
		},
		rosters: map[string][]models.Student{
			"class-1": {
				{ID: "student-1", Status: models.StudentStatusActive, ClassID: "class-1"},
				{ID: "student-2", Status: models.StudentStatusActive, ClassID: "class-1"},
			},
		},
		teachers: map[string]*models.Teacher{"user-t1": {ID: "teacher-1", UserID: "user-t1"}},
	}
	classes := &fakeClassDirectory{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "JSS1 A"},
	}}
	assignments := &fakeAssignments{assigned: map[string]bool{
		assignmentKey("teacher-1", "subject-1", "class-1"): true,
	}}
	access := NewAccessService(assignments, &fakeParentLinks{}, students, classes, nil)

	records := &fakeRecords{existing: map[string]bool{}}
	exams := &fakeGradeExams{
		exams: map[string]*models.Exam{
			"exam-1": {ID: "exam-1", TenantID: "tenant-1", ClassID: "class-1", SubjectID: "subject-1", Semester: "1", AcademicYear: "2025/2026"},
			"exam-2": {ID: "exam-2", TenantID: "tenant-1", ClassID: "class-1", SubjectID: "subject-2", Semester: "1", AcademicYear: "2025/2026"},
			"exam-x": {ID: "exam-x", TenantID: "tenant-2", ClassID: "class-x", SubjectID: "subject-1", Semester: "1", AcademicYear: "2025/2026"},
		},
		components: map[string]*models.ExamComponent{
			"comp-1": {ID: "comp-1", ExamID: "exam-1", Name: "First CA", MaxScore: 10},
			"comp-x": {ID: "comp-x", ExamID: "exam-x", Name: "First CA", MaxScore: 10},
		},
	}
	results := &fakeResults{}
	cache := &fakeCache{}

	return &gradeFixture{
		records:     records,
		exams:       exams,
		results:     results,
		students:    students,
		classes:     classes,
		assignments: assignments,
		cache:       cache,
		svc:         NewGradeService(records, exams, results, students, access, cache, nil, nil),
	}
}

func adminCtx() models.RequestContext {
	return models.RequestContext{TenantID: "tenant-1", UserID: "admin-1", Role: models.RoleAdmin}
}

func teacherCtx() models.RequestContext {
	return models.RequestContext{TenantID: "tenant-1", UserID: "user-t1", Role: models.RoleTeacher}
}

func TestGradeServiceRecordCopiesExamFields(t *testing.T) {
	fx := newGradeFixture()

	record, err := fx.svc.Record(context.Background(), teacherCtx(), GradeRecordRequest{
		StudentID: "student-1", ExamID: "exam-1", Grade: "85",
	})
	require.NoError(t, err)
	assert.Equal(t, "subject-1", record.SubjectID)
	assert.Equal(t, "1", record.Semester)
	assert.Equal(t, "2025/2026", record.AcademicYear)
	require.Len(t, fx.records.inserted, 1)
	require.Len(t, fx.cache.deleted, 1)
	assert.Equal(t, "reports:tenant-1:*", fx.cache.deleted[0])
}

func TestGradeServiceRecordUnknownStudent(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.Record(context.Background(), adminCtx(), GradeRecordRequest{
		StudentID: "missing", ExamID: "exam-1", Grade: "85",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceRecordInactiveStudent(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.Record(context.Background(), adminCtx(), GradeRecordRequest{
		StudentID: "student-3", ExamID: "exam-1", Grade: "85",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, fx.records.inserted)
}

func TestGradeServiceRecordUnknownExam(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.Record(context.Background(), adminCtx(), GradeRecordRequest{
		StudentID: "student-1", ExamID: "missing", Grade: "85",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGradeServiceRecordTeacherWithoutAssignment(t *testing.T) {
	fx := newGradeFixture()

	// exam-2's subject is not assigned to teacher-1
	_, err := fx.svc.Record(context.Background(), teacherCtx(), GradeRecordRequest{
		StudentID: "student-1", ExamID: "exam-2", Grade: "85",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestGradeServiceRecordClassMismatch(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.Record(context.Background(), adminCtx(), GradeRecordRequest{
		StudentID: "student-9", ExamID: "exam-1", Grade: "85",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestGradeServiceRecordDuplicateConflict(t *testing.T) {
	fx := newGradeFixture()
	fx.records.existing[recordKey("student-1", "exam-1")] = true

	_, err := fx.svc.Record(context.Background(), adminCtx(), GradeRecordRequest{
		StudentID: "student-1", ExamID: "exam-1", Grade: "85",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, fx.records.inserted)
}

func TestGradeServiceBulkRecordAllOrNothing(t *testing.T) {
	fx := newGradeFixture()
	fx.records.existing[recordKey("student-2", "exam-1")] = true

	_, err := fx.svc.BulkRecord(context.Background(), teacherCtx(), BulkGradeRequest{
		Records: []GradeRecordRequest{
			{StudentID: "student-1", ExamID: "exam-1", Grade: "80"},
			{StudentID: "student-2", ExamID: "exam-1", Grade: "90"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, fx.records.inserted, "a failing record persists nothing")
	assert.Empty(t, fx.cache.deleted)
}

func TestGradeServiceBulkRecordRejectsInBatchDuplicate(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.BulkRecord(context.Background(), adminCtx(), BulkGradeRequest{
		Records: []GradeRecordRequest{
			{StudentID: "student-1", ExamID: "exam-1", Grade: "80"},
			{StudentID: "student-1", ExamID: "exam-1", Grade: "81"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, fx.records.inserted)
}

func TestGradeServiceBulkRecordSuccess(t *testing.T) {
	fx := newGradeFixture()

	records, err := fx.svc.BulkRecord(context.Background(), teacherCtx(), BulkGradeRequest{
		Records: []GradeRecordRequest{
			{StudentID: "student-1", ExamID: "exam-1", Grade: "80"},
			{StudentID: "student-2", ExamID: "exam-1", Grade: "90"},
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, fx.records.inserted, 2)
	assert.Len(t, fx.cache.deleted, 1)
}

func TestGradeServiceAddScoresUnknownComponent(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.AddScores(context.Background(), adminCtx(), AddScoresRequest{
		Scores: []StudentScoreInput{{StudentID: "student-1", ComponentID: "missing", Score: 8}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, fx.results.upserts)
}

func TestGradeServiceAddScoresUpserts(t *testing.T) {
	fx := newGradeFixture()

	saved, err := fx.svc.AddScores(context.Background(), teacherCtx(), AddScoresRequest{
		Scores: []StudentScoreInput{{StudentID: "student-1", ComponentID: "comp-1", Score: 8}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.Len(t, fx.results.upserts, 1)
	assert.Equal(t, 8.0, fx.results.upserts[0].Score)
}

func TestGradeServiceListScopesUnfilteredTeacher(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.List(context.Background(), teacherCtx(), GradeListRequest{})
	require.NoError(t, err)
	require.Len(t, fx.records.listFilters, 1, "only the assigned class is queried")
	assert.Equal(t, []string{"student-1", "student-2"}, fx.records.listFilter.StudentIDs)
	assert.Equal(t, []string{"subject-1"}, fx.records.listFilter.SubjectIDs)
}

func TestGradeServiceListFormTeacherWithoutAssignments(t *testing.T) {
	fx := newGradeFixture()
	fx.classes.classes["class-1"].FormTeacherID = "teacher-1"
	fx.assignments.assigned = map[string]bool{}

	_, err := fx.svc.List(context.Background(), teacherCtx(), GradeListRequest{})
	require.NoError(t, err)
	require.Len(t, fx.records.listFilters, 1)
	assert.Equal(t, []string{"student-1", "student-2"}, fx.records.listFilter.StudentIDs)
	assert.Empty(t, fx.records.listFilter.SubjectIDs, "a form teacher reads every subject of their class")
}

func TestGradeServiceListSubjectFilterScopedToAssignedClasses(t *testing.T) {
	fx := newGradeFixture()
	fx.students.rosters["class-2"] = []models.Student{
		{ID: "student-5", Status: models.StudentStatusActive, ClassID: "class-2"},
	}

	// subject-1 is assigned in class-1 only; class-2 students stay invisible
	_, err := fx.svc.List(context.Background(), teacherCtx(), GradeListRequest{SubjectID: "subject-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1", "student-2"}, fx.records.listFilter.StudentIDs)
	assert.Equal(t, "subject-1", fx.records.listFilter.SubjectID)
}

func TestGradeServiceListRejectsForeignSubject(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.List(context.Background(), teacherCtx(), GradeListRequest{SubjectID: "subject-2"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestGradeServiceAddScoresRejectsForeignTenantComponent(t *testing.T) {
	fx := newGradeFixture()

	// comp-x hangs off an exam owned by another tenant
	_, err := fx.svc.AddScores(context.Background(), adminCtx(), AddScoresRequest{
		Scores: []StudentScoreInput{{StudentID: "student-1", ComponentID: "comp-x", Score: 8}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, fx.results.upserts)
}

func TestGradeServiceListResolvesClassRoster(t *testing.T) {
	fx := newGradeFixture()

	_, err := fx.svc.List(context.Background(), adminCtx(), GradeListRequest{ClassID: "class-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1", "student-2"}, fx.records.listFilter.StudentIDs)
}
