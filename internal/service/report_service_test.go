package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/pkg/config"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type fakeReportGrades struct {
	listCalls  int
	lastFilter models.GradeFilter
	records    []models.AcademicRecord
	cardRows   []models.ReportCardGrade
}

func (f *fakeReportGrades) List(ctx context.Context, tenantID string, filter models.GradeFilter) ([]models.AcademicRecord, error) {
	f.listCalls++
	f.lastFilter = filter
	return f.records, nil
}

func (f *fakeReportGrades) ReportCardRows(ctx context.Context, tenantID, studentID, semester, academicYear string) ([]models.ReportCardGrade, error) {
	return f.cardRows, nil
}

type fakeAttendanceCounts struct {
	counts     []models.AttendanceStatusCount
	lastFilter models.AttendanceFilter
}

func (f *fakeAttendanceCounts) StatusCounts(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error) {
	f.lastFilter = filter
	return f.counts, nil
}

type fakeDateRange struct {
	from, to *time.Time
}

func (f *fakeDateRange) DateRange(ctx context.Context, tenantID, semester, academicYear string) (*time.Time, *time.Time, error) {
	return f.from, f.to, nil
}

type reportFixture struct {
	grades     *fakeReportGrades
	attendance *fakeAttendanceCounts
	exams      *fakeDateRange
	cache      *fakeCache
	svc        *ReportService
}

func newReportFixture() *reportFixture {
	students := &fakeStudentDirectory{
		students: map[string]*models.Student{
			"student-1": {ID: "student-1", Status: models.StudentStatusActive, ClassID: "class-1", UserID: "user-s1", FirstName: "Ada", LastName: "Obi"},
			"student-2": {ID: "student-2", Status: models.StudentStatusActive, ClassID: "class-1", UserID: "user-s2", FirstName: "Bola", LastName: "Ade"},
		},
		rosters: map[string][]models.Student{
			"class-1": {
				{ID: "student-1", ClassID: "class-1", FirstName: "Ada", LastName: "Obi"},
				{ID: "student-2", ClassID: "class-1", FirstName: "Bola", LastName: "Ade"},
			},
		},
		teachers: map[string]*models.Teacher{"user-t1": {ID: "teacher-1", UserID: "user-t1"}},
	}
	classes := &fakeClassDirectory{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "JSS1 A", FormTeacherID: "teacher-1"},
	}}
	access := NewAccessService(&fakeAssignments{assigned: map[string]bool{}}, &fakeParentLinks{links: map[string]bool{
		"user-p1/student-1": true,
	}}, students, classes, nil)

	grades := &fakeReportGrades{}
	attendance := &fakeAttendanceCounts{}
	exams := &fakeDateRange{}
	cache := &fakeCache{}
	cfg := config.ReportsConfig{CacheTTL: time.Minute, ExportEnabled: true}
	return &reportFixture{
		grades:     grades,
		attendance: attendance,
		exams:      exams,
		cache:      cache,
		svc:        NewReportService(grades, attendance, exams, students, classes, access, cache, cfg, nil),
	}
}

func TestReportCardAttendanceDefaultsAllStatuses(t *testing.T) {
	fx := newReportFixture()
	fx.attendance.counts = []models.AttendanceStatusCount{
		{StudentID: "student-1", Status: models.AttendancePresent, Count: 12},
		{StudentID: "student-1", Status: models.AttendanceLate, Count: 2},
	}

	card, err := fx.svc.ReportCard(context.Background(), adminCtx(), "student-1", ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, 12, card.Attendance.Present)
	assert.Equal(t, 2, card.Attendance.Late)
	assert.Equal(t, 0, card.Attendance.Absent)
	assert.Equal(t, 0, card.Attendance.Excused)
}

func TestReportCardStudentSelfOnly(t *testing.T) {
	fx := newReportFixture()

	rctx := models.RequestContext{TenantID: "tenant-1", UserID: "user-s1", Role: models.RoleStudent}
	_, err := fx.svc.ReportCard(context.Background(), rctx, "student-1", ReportPeriod{})
	require.NoError(t, err)

	_, err = fx.svc.ReportCard(context.Background(), rctx, "student-2", ReportPeriod{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReportCardParentLinkedOnly(t *testing.T) {
	fx := newReportFixture()

	rctx := models.RequestContext{TenantID: "tenant-1", UserID: "user-p1", Role: models.RoleParent}
	_, err := fx.svc.ReportCard(context.Background(), rctx, "student-1", ReportPeriod{})
	require.NoError(t, err)

	_, err = fx.svc.ReportCard(context.Background(), rctx, "student-2", ReportPeriod{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReportCardPeriodClampsAttendanceWindow(t *testing.T) {
	fx := newReportFixture()
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	fx.exams.from = &from
	fx.exams.to = &to

	_, err := fx.svc.ReportCard(context.Background(), adminCtx(), "student-1", ReportPeriod{Semester: "1"})
	require.NoError(t, err)
	require.NotNil(t, fx.attendance.lastFilter.From)
	assert.Equal(t, from, *fx.attendance.lastFilter.From)
	require.NotNil(t, fx.attendance.lastFilter.To)
	assert.Equal(t, to, *fx.attendance.lastFilter.To)
}

func TestClassReportSubjectAverages(t *testing.T) {
	fx := newReportFixture()
	fx.grades.records = []models.AcademicRecord{
		{StudentID: "student-1", SubjectID: "math", Grade: "85"},
		{StudentID: "student-2", SubjectID: "math", Grade: "90"},
		{StudentID: "student-1", SubjectID: "math", Grade: "A"},
		{StudentID: "student-1", SubjectID: "english", Grade: "70"},
	}

	report, err := fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "", ReportPeriod{})
	require.NoError(t, err)
	require.Len(t, report.SubjectAverages, 2)
	assert.Equal(t, "english", report.SubjectAverages[0].SubjectID)
	assert.Equal(t, "70.00", report.SubjectAverages[0].Average)
	assert.Equal(t, "math", report.SubjectAverages[1].SubjectID)
	assert.Equal(t, "87.50", report.SubjectAverages[1].Average, "non-numeric grades are excluded, not zeroed")
	assert.Equal(t, 2, report.SubjectAverages[1].Graded)
	require.Len(t, report.Students, 2)
}

func TestClassReportSubjectFilterNarrowsGradesAndAttendance(t *testing.T) {
	fx := newReportFixture()

	_, err := fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "math", ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, "math", fx.grades.lastFilter.SubjectID)
	assert.Equal(t, "math", fx.attendance.lastFilter.SubjectID)
}

func TestClassReportSubjectFilterCachedSeparately(t *testing.T) {
	fx := newReportFixture()

	_, err := fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "", ReportPeriod{})
	require.NoError(t, err)
	_, err = fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "math", ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.grades.listCalls, "subject-narrowed report must not reuse the unfiltered cache entry")
}

func TestClassReportServedFromCache(t *testing.T) {
	fx := newReportFixture()

	_, err := fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "", ReportPeriod{})
	require.NoError(t, err)
	_, err = fx.svc.ClassReport(context.Background(), adminCtx(), "class-1", "", ReportPeriod{})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.grades.listCalls, "second call should hit the cache")
}

func TestClassReportFormTeacherAllowed(t *testing.T) {
	fx := newReportFixture()

	rctx := models.RequestContext{TenantID: "tenant-1", UserID: "user-t1", Role: models.RoleTeacher}
	_, err := fx.svc.ClassReport(context.Background(), rctx, "class-1", "", ReportPeriod{})
	require.NoError(t, err)
}

func TestClassReportStudentForbidden(t *testing.T) {
	fx := newReportFixture()

	rctx := models.RequestContext{TenantID: "tenant-1", UserID: "user-s1", Role: models.RoleStudent}
	_, err := fx.svc.ClassReport(context.Background(), rctx, "class-1", "", ReportPeriod{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAttendanceReportTeacherRequiresScope(t *testing.T) {
	fx := newReportFixture()

	rctx := models.RequestContext{TenantID: "tenant-1", UserID: "user-t1", Role: models.RoleTeacher}
	_, err := fx.svc.AttendanceReport(context.Background(), rctx, AttendanceReportRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceReportGroupsPerStudent(t *testing.T) {
	fx := newReportFixture()
	fx.attendance.counts = []models.AttendanceStatusCount{
		{StudentID: "student-2", Status: models.AttendanceAbsent, Count: 3},
		{StudentID: "student-1", Status: models.AttendancePresent, Count: 10},
		{StudentID: "student-1", Status: models.AttendanceExcused, Count: 1},
	}

	report, err := fx.svc.AttendanceReport(context.Background(), adminCtx(), AttendanceReportRequest{ClassID: "class-1"})
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "student-1", report[0].StudentID)
	assert.Equal(t, 10, report[0].Attendance.Present)
	assert.Equal(t, 1, report[0].Attendance.Excused)
	assert.Equal(t, 0, report[0].Attendance.Late)
	assert.Equal(t, "student-2", report[1].StudentID)
	assert.Equal(t, 3, report[1].Attendance.Absent)
}

func TestAttendanceReportRejectsBadDates(t *testing.T) {
	fx := newReportFixture()

	_, err := fx.svc.AttendanceReport(context.Background(), adminCtx(), AttendanceReportRequest{From: "02-01-2026"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportReportCardCSV(t *testing.T) {
	fx := newReportFixture()
	fx.grades.cardRows = []models.ReportCardGrade{
		{SubjectID: "math", ExamID: "exam-1", ExamName: "First Term Exam", Grade: "85", MaxScore: 100, Semester: "1", AcademicYear: "2025/2026"},
	}

	payload, contentType, err := fx.svc.ExportReportCard(context.Background(), adminCtx(), "student-1", ReportPeriod{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "First Term Exam")
}

func TestExportDisabled(t *testing.T) {
	fx := newReportFixture()
	fx.svc.cfg.ExportEnabled = false

	_, _, err := fx.svc.ExportReportCard(context.Background(), adminCtx(), "student-1", ReportPeriod{}, "csv")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
