package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/pkg/config"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
	"github.com/noah-isme/school-core-api/pkg/export"
)

type reportGradeReader interface {
	List(ctx context.Context, tenantID string, filter models.GradeFilter) ([]models.AcademicRecord, error)
	ReportCardRows(ctx context.Context, tenantID, studentID, semester, academicYear string) ([]models.ReportCardGrade, error)
}

type attendanceCountReader interface {
	StatusCounts(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error)
}

type examDateRangeReader interface {
	DateRange(ctx context.Context, tenantID, semester, academicYear string) (*time.Time, *time.Time, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ReportPeriod narrows a report to a semester and academic year. When either
// field is set, the attendance window is clamped to the exam date range of
// that period.
type ReportPeriod struct {
	Semester     string `form:"semester"`
	AcademicYear string `form:"academicYear"`
}

// AttendanceReportRequest filters the attendance report. Teachers must scope
// the query by class or student; students and parents are pinned to a student
// they are entitled to.
type AttendanceReportRequest struct {
	StudentID string `form:"studentId"`
	ClassID   string `form:"classId"`
	SubjectID string `form:"subjectId"`
	From      string `form:"startDate"`
	To        string `form:"endDate"`
}

// ReportService assembles report cards, class reports and attendance reports,
// caching assembled payloads per tenant.
type ReportService struct {
	grades     reportGradeReader
	attendance attendanceCountReader
	exams      examDateRangeReader
	students   directory.StudentDirectory
	classes    directory.ClassDirectory
	access     *AccessService
	cache      reportCache
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	cfg        config.ReportsConfig
	logger     *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(grades reportGradeReader, attendance attendanceCountReader, exams examDateRangeReader, students directory.StudentDirectory, classes directory.ClassDirectory, access *AccessService, cache reportCache, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		grades:     grades,
		attendance: attendance,
		exams:      exams,
		students:   students,
		classes:    classes,
		access:     access,
		cache:      cache,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		cfg:        cfg,
		logger:     logger,
	}
}

// ReportCard assembles one student's report card: graded exams joined with
// exam metadata plus the attendance summary for the period.
func (s *ReportService) ReportCard(ctx context.Context, rctx models.RequestContext, studentID string, period ReportPeriod) (*models.ReportCard, error) {
	student, err := s.students.Student(ctx, rctx, studentID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	if err := s.access.AuthorizeStudentRead(ctx, rctx, student); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:card:%s:%s:%s", rctx.TenantID, studentID, period.Semester, period.AcademicYear)
	if s.cache != nil {
		var cached models.ReportCard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report card cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	grades, err := s.grades.ReportCardRows(ctx, rctx.TenantID, studentID, period.Semester, period.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	filter := models.AttendanceFilter{StudentID: studentID}
	if err := s.applyPeriodWindow(ctx, rctx.TenantID, period, &filter); err != nil {
		return nil, err
	}
	summary, err := s.attendanceSummary(ctx, rctx.TenantID, filter)
	if err != nil {
		return nil, err
	}

	card := &models.ReportCard{
		Student:    *student,
		Grades:     grades,
		Attendance: summary[studentID],
	}
	s.cacheSet(ctx, key, card)
	return card, nil
}

// ClassReport assembles the class roster with per-student attendance counts
// and per-subject numeric averages. Non-numeric grades are excluded from the
// averages rather than counted as zero. A non-empty subjectID narrows both
// the averages and the attendance counts to that subject.
func (s *ReportService) ClassReport(ctx context.Context, rctx models.RequestContext, classID, subjectID string, period ReportPeriod) (*models.ClassReport, error) {
	switch rctx.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		teacher, err := s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
		ok, err := s.access.CanReadClass(ctx, rctx, teacher, classID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	class, err := s.classes.Class(ctx, rctx, classID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, err
	}

	key := fmt.Sprintf("reports:%s:class:%s:%s:%s:%s", rctx.TenantID, classID, subjectID, period.Semester, period.AcademicYear)
	if s.cache != nil {
		var cached models.ClassReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("class report cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	roster, err := s.students.StudentsByClass(ctx, rctx, classID)
	if err != nil {
		return nil, err
	}

	report := &models.ClassReport{
		Class:           *class,
		SubjectAverages: []models.SubjectAverage{},
		Students:        []models.ClassReportRow{},
	}
	if len(roster) == 0 {
		s.cacheSet(ctx, key, report)
		return report, nil
	}

	studentIDs := make([]string, 0, len(roster))
	for _, student := range roster {
		studentIDs = append(studentIDs, student.ID)
	}

	records, err := s.grades.List(ctx, rctx.TenantID, models.GradeFilter{
		StudentIDs:   studentIDs,
		SubjectID:    subjectID,
		Semester:     period.Semester,
		AcademicYear: period.AcademicYear,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	report.SubjectAverages = subjectAverages(records)

	filter := models.AttendanceFilter{StudentIDs: studentIDs, SubjectID: subjectID}
	if err := s.applyPeriodWindow(ctx, rctx.TenantID, period, &filter); err != nil {
		return nil, err
	}
	summaries, err := s.attendanceSummary(ctx, rctx.TenantID, filter)
	if err != nil {
		return nil, err
	}
	for _, student := range roster {
		report.Students = append(report.Students, models.ClassReportRow{
			Student:    student,
			Attendance: summaries[student.ID],
		})
	}

	s.cacheSet(ctx, key, report)
	return report, nil
}

// AttendanceReport aggregates attendance counts per student within the
// filter. Every student in the output carries all four status counters.
func (s *ReportService) AttendanceReport(ctx context.Context, rctx models.RequestContext, req AttendanceReportRequest) ([]models.StudentAttendanceReport, error) {
	switch rctx.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if req.ClassID == "" && req.StudentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "classId or studentId is required")
		}
		teacher, err := s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
		if req.ClassID != "" {
			ok, err := s.access.CanReadClass(ctx, rctx, teacher, req.ClassID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, appErrors.ErrForbidden
			}
		} else if err := s.authorizeStudentParam(ctx, rctx, req.StudentID); err != nil {
			return nil, err
		}
	case models.RoleStudent, models.RoleParent:
		if req.StudentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
		}
		if err := s.authorizeStudentParam(ctx, rctx, req.StudentID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	filter := models.AttendanceFilter{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
	}
	for _, bound := range []struct {
		raw  string
		dest **time.Time
	}{{req.From, &filter.From}, {req.To, &filter.To}} {
		if bound.raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", bound.raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "dates must use the format 2006-01-02")
		}
		*bound.dest = &parsed
	}

	summaries, err := s.attendanceSummary(ctx, rctx.TenantID, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.StudentAttendanceReport, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.StudentAttendanceReport{StudentID: id, Attendance: summaries[id]})
	}
	return out, nil
}

// ExportReportCard renders a student's report card as CSV or PDF.
func (s *ReportService) ExportReportCard(ctx context.Context, rctx models.RequestContext, studentID string, period ReportPeriod, format string) ([]byte, string, error) {
	if !s.cfg.ExportEnabled {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "report export is disabled")
	}
	card, err := s.ReportCard(ctx, rctx, studentID, period)
	if err != nil {
		return nil, "", err
	}

	rows := make([][]string, 0, len(card.Grades)+1)
	for _, grade := range card.Grades {
		rows = append(rows, []string{
			grade.SubjectID,
			grade.ExamName,
			grade.Grade,
			strconv.FormatFloat(grade.MaxScore, 'f', -1, 64),
			grade.Semester,
			grade.AcademicYear,
		})
	}
	rows = append(rows, []string{
		"attendance",
		fmt.Sprintf("present=%d absent=%d late=%d excused=%d",
			card.Attendance.Present, card.Attendance.Absent, card.Attendance.Late, card.Attendance.Excused),
		"", "", "", "",
	})
	dataset := export.Dataset{
		Headers: []string{"Subject", "Exam", "Grade", "Max Score", "Semester", "Academic Year"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Report Card - %s %s", card.Student.FirstName, card.Student.LastName)
	return s.render(dataset, title, format)
}

// ExportClassReport renders a class report as CSV or PDF.
func (s *ReportService) ExportClassReport(ctx context.Context, rctx models.RequestContext, classID, subjectID string, period ReportPeriod, format string) ([]byte, string, error) {
	if !s.cfg.ExportEnabled {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "report export is disabled")
	}
	report, err := s.ClassReport(ctx, rctx, classID, subjectID, period)
	if err != nil {
		return nil, "", err
	}

	rows := make([][]string, 0, len(report.Students))
	for _, row := range report.Students {
		rows = append(rows, []string{
			row.Student.FirstName + " " + row.Student.LastName,
			strconv.Itoa(row.Attendance.Present),
			strconv.Itoa(row.Attendance.Absent),
			strconv.Itoa(row.Attendance.Late),
			strconv.Itoa(row.Attendance.Excused),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Present", "Absent", "Late", "Excused"},
		Rows:    rows,
	}
	return s.render(dataset, "Class Report - "+report.Class.Name, format)
}

// InvalidateTenant drops every cached report for the tenant.
func (s *ReportService) InvalidateTenant(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPattern(ctx, "reports:"+tenantID+":*")
}

func (s *ReportService) render(dataset export.Dataset, title, format string) ([]byte, string, error) {
	switch format {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ReportService) authorizeStudentParam(ctx context.Context, rctx models.RequestContext, studentID string) error {
	student, err := s.students.Student(ctx, rctx, studentID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return err
	}
	return s.access.AuthorizeStudentRead(ctx, rctx, student)
}

// applyPeriodWindow clamps the attendance filter to the exam date range of
// the requested semester and academic year.
func (s *ReportService) applyPeriodWindow(ctx context.Context, tenantID string, period ReportPeriod, filter *models.AttendanceFilter) error {
	if period.Semester == "" && period.AcademicYear == "" {
		return nil
	}
	from, to, err := s.exams.DateRange(ctx, tenantID, period.Semester, period.AcademicYear)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report period")
	}
	filter.From = from
	filter.To = to
	return nil
}

func (s *ReportService) attendanceSummary(ctx context.Context, tenantID string, filter models.AttendanceFilter) (map[string]models.AttendanceSummary, error) {
	counts, err := s.attendance.StatusCounts(ctx, tenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	summaries := make(map[string]models.AttendanceSummary, len(counts))
	for _, count := range counts {
		summary := summaries[count.StudentID]
		summary.Add(count.Status, count.Count)
		summaries[count.StudentID] = summary
	}
	return summaries, nil
}

func (s *ReportService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// subjectAverages computes the mean of numeric grade values per subject to
// two decimals. Records whose grade does not parse as a number are skipped.
func subjectAverages(records []models.AcademicRecord) []models.SubjectAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, record := range records {
		value, err := strconv.ParseFloat(record.Grade, 64)
		if err != nil {
			continue
		}
		sums[record.SubjectID] += value
		counts[record.SubjectID]++
	}

	subjects := make([]string, 0, len(sums))
	for subject := range sums {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	averages := make([]models.SubjectAverage, 0, len(subjects))
	for _, subject := range subjects {
		averages = append(averages, models.SubjectAverage{
			SubjectID: subject,
			Average:   fmt.Sprintf("%.2f", sums[subject]/float64(counts[subject])),
			Graded:    counts[subject],
		})
	}
	return averages
}
