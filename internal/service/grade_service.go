package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type academicRecordRepo interface {
	Exists(ctx context.Context, tenantID, studentID, examID string) (bool, error)
	Insert(ctx context.Context, record *models.AcademicRecord) error
	BulkInsert(ctx context.Context, records []models.AcademicRecord) error
	List(ctx context.Context, tenantID string, filter models.GradeFilter) ([]models.AcademicRecord, error)
}

type examReader interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Exam, error)
	FindComponent(ctx context.Context, componentID string) (*models.ExamComponent, error)
}

type componentResultWriter interface {
	Upsert(ctx context.Context, result *models.ExamComponentResult) error
}

type reportCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GradeRecordRequest records a final grade for one (student, exam) pair.
type GradeRecordRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ExamID    string `json:"exam_id" validate:"required"`
	Grade     string `json:"grade" validate:"required"`
}

// BulkGradeRequest records multiple grades. The batch is all-or-nothing: the
// first record failing any check aborts the call with zero rows persisted.
type BulkGradeRequest struct {
	Records []GradeRecordRequest `json:"records" validate:"required,min=1,dive"`
}

// StudentScoreInput carries one raw component score.
type StudentScoreInput struct {
	StudentID   string  `json:"student_id" validate:"required"`
	ComponentID string  `json:"component_id" validate:"required"`
	Score       float64 `json:"score" validate:"gte=0"`
}

// AddScoresRequest upserts raw component scores.
type AddScoresRequest struct {
	Scores []StudentScoreInput `json:"scores" validate:"required,min=1,dive"`
}

// GradeListRequest filters academic record listings.
type GradeListRequest struct {
	StudentID    string `form:"studentId"`
	ClassID      string `form:"classId"`
	SubjectID    string `form:"subjectId"`
	ExamID       string `form:"examId"`
	Semester     string `form:"semester"`
	AcademicYear string `form:"academicYear"`
}

// GradeService orchestrates grade and component-score recording.
type GradeService struct {
	records   academicRecordRepo
	exams     examReader
	results   componentResultWriter
	students  directory.StudentDirectory
	access    *AccessService
	cache     reportCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(records academicRecordRepo, exams examReader, results componentResultWriter, students directory.StudentDirectory, access *AccessService, cache reportCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		records:   records,
		exams:     exams,
		results:   results,
		students:  students,
		access:    access,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Record validates and inserts one grade. The check order is fixed: active
// student, exam in tenant, teacher subject authorization, class membership,
// duplicate, then insert copying subject/semester/year from the exam.
func (s *GradeService) Record(ctx context.Context, rctx models.RequestContext, req GradeRecordRequest) (*models.AcademicRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	var teacher *models.Teacher
	if rctx.Role == models.RoleTeacher {
		var err error
		teacher, err = s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
	}

	record, err := s.validateRecord(ctx, rctx, teacher, req)
	if err != nil {
		return nil, err
	}

	if err := s.records.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "grade already recorded for this student and exam")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.invalidateReports(ctx, rctx.TenantID)
	return record, nil
}

// BulkRecord validates every record in submission order and persists them in
// one transaction only after the whole batch passes. One bad record means
// zero grades persisted.
func (s *GradeService) BulkRecord(ctx context.Context, rctx models.RequestContext, req BulkGradeRequest) ([]models.AcademicRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}

	var teacher *models.Teacher
	if rctx.Role == models.RoleTeacher {
		var err error
		teacher, err = s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(req.Records))
	records := make([]models.AcademicRecord, 0, len(req.Records))
	for _, item := range req.Records {
		key := item.StudentID + "/" + item.ExamID
		if seen[key] {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("duplicate grade for student %s in batch", item.StudentID))
		}
		seen[key] = true

		record, err := s.validateRecord(ctx, rctx, teacher, item)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := s.records.BulkInsert(ctx, records); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "grade already recorded for a student in this batch")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grades")
	}

	s.invalidateReports(ctx, rctx.TenantID)
	s.logger.Info("grades bulk recorded", zap.String("tenant_id", rctx.TenantID), zap.Int("count", len(records)))
	return records, nil
}

func (s *GradeService) validateRecord(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, req GradeRecordRequest) (*models.AcademicRecord, error) {
	student, err := s.students.Student(ctx, rctx, req.StudentID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found or inactive")
	}

	exam, err := s.exams.FindByID(ctx, rctx.TenantID, req.ExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	if rctx.Role == models.RoleTeacher {
		ok, err := s.access.CanWriteSubject(ctx, rctx, teacher, exam.SubjectID, exam.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher assignment")
		}
		if !ok {
			return nil, appErrors.ErrForbidden
		}
	}

	if student.ClassID != exam.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to this class")
	}

	exists, err := s.records.Exists(ctx, rctx.TenantID, req.StudentID, req.ExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing grade")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "grade already recorded for this student and exam")
	}

	return &models.AcademicRecord{
		TenantID:     rctx.TenantID,
		StudentID:    req.StudentID,
		SubjectID:    exam.SubjectID,
		ExamID:       req.ExamID,
		Grade:        req.Grade,
		Semester:     exam.Semester,
		AcademicYear: exam.AcademicYear,
	}, nil
}

// AddScores upserts raw component scores. Unknown students or components are
// rejected with not found; teachers need the subject assignment of the
// component's exam.
func (s *GradeService) AddScores(ctx context.Context, rctx models.RequestContext, req AddScoresRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scores payload")
	}

	var teacher *models.Teacher
	if rctx.Role == models.RoleTeacher {
		var err error
		teacher, err = s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return 0, err
		}
	}

	saved := 0
	for _, score := range req.Scores {
		if _, err := s.students.Student(ctx, rctx, score.StudentID); err != nil {
			if appErrors.Is(err, appErrors.ErrNotFound) {
				return saved, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", score.StudentID))
			}
			return saved, err
		}
		component, err := s.exams.FindComponent(ctx, score.ComponentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return saved, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("component %s not found", score.ComponentID))
			}
			return saved, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
		}
		// The component lookup is keyed by id alone; the tenant check lives on
		// the owning exam. A component whose exam belongs to another tenant is
		// reported as missing.
		exam, err := s.exams.FindByID(ctx, rctx.TenantID, component.ExamID)
		if err != nil {
			if err == sql.ErrNoRows {
				return saved, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("component %s not found", score.ComponentID))
			}
			return saved, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
		}
		if rctx.Role == models.RoleTeacher {
			ok, err := s.access.CanWriteSubject(ctx, rctx, teacher, exam.SubjectID, exam.ClassID)
			if err != nil {
				return saved, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher assignment")
			}
			if !ok {
				return saved, appErrors.ErrForbidden
			}
		}
		result := &models.ExamComponentResult{
			StudentID:   score.StudentID,
			ComponentID: score.ComponentID,
			Score:       score.Score,
		}
		if err := s.results.Upsert(ctx, result); err != nil {
			return saved, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save score")
		}
		saved++
	}

	s.invalidateReports(ctx, rctx.TenantID)
	return saved, nil
}

// List returns academic records matching the filter with teacher scoping:
// teachers only see grades from classes where they are form teacher or hold
// the matching subject assignment. Explicit filters outside that scope are
// rejected; an unfiltered teacher query is narrowed per class.
func (s *GradeService) List(ctx context.Context, rctx models.RequestContext, req GradeListRequest) ([]models.AcademicRecord, error) {
	filter := models.GradeFilter{
		StudentID:    req.StudentID,
		ClassID:      req.ClassID,
		SubjectID:    req.SubjectID,
		ExamID:       req.ExamID,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}

	if rctx.Role == models.RoleTeacher {
		teacher, err := s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
		switch {
		case filter.ClassID != "":
			ok, err := s.access.CanReadClass(ctx, rctx, teacher, filter.ClassID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, appErrors.ErrForbidden
			}
			if filter.SubjectID != "" {
				ok, err := s.access.CanWriteSubject(ctx, rctx, teacher, filter.SubjectID, filter.ClassID)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher assignment")
				}
				if !ok {
					formOK, err := s.access.IsFormTeacher(ctx, rctx, teacher, filter.ClassID)
					if err != nil {
						return nil, err
					}
					if !formOK {
						return nil, appErrors.ErrForbidden
					}
				}
			}
		case filter.SubjectID != "":
			classIDs, err := s.subjectClassIDs(ctx, rctx, teacher, filter.SubjectID)
			if err != nil {
				return nil, err
			}
			if len(classIDs) == 0 {
				return nil, appErrors.ErrForbidden
			}
			ids, err := s.rosterIDs(ctx, rctx, classIDs)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				return []models.AcademicRecord{}, nil
			}
			filter.StudentIDs = ids
		default:
			return s.listTeacherScoped(ctx, rctx, teacher, filter)
		}
	}

	if filter.ClassID != "" {
		ids, err := s.rosterIDs(ctx, rctx, []string{filter.ClassID})
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.AcademicRecord{}, nil
		}
		filter.StudentIDs = ids
	}

	records, err := s.records.List(ctx, rctx.TenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return records, nil
}

// listTeacherScoped answers an unfiltered teacher query class by class: form
// classes yield every subject, other classes only the teacher's assigned
// subjects there.
func (s *GradeService) listTeacherScoped(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, base models.GradeFilter) ([]models.AcademicRecord, error) {
	formClasses, err := s.access.FormClasses(ctx, rctx, teacher)
	if err != nil {
		return nil, err
	}
	assignments, err := s.access.TeacherAssignments(ctx, rctx, teacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher assignments")
	}

	form := make(map[string]bool, len(formClasses))
	for _, class := range formClasses {
		form[class.ID] = true
	}
	subjectsByClass := make(map[string][]string)
	for _, assignment := range assignments {
		if form[assignment.ClassID] {
			continue
		}
		if !slices.Contains(subjectsByClass[assignment.ClassID], assignment.SubjectID) {
			subjectsByClass[assignment.ClassID] = append(subjectsByClass[assignment.ClassID], assignment.SubjectID)
		}
	}

	classIDs := make([]string, 0, len(form)+len(subjectsByClass))
	for id := range form {
		classIDs = append(classIDs, id)
	}
	for id := range subjectsByClass {
		classIDs = append(classIDs, id)
	}
	sort.Strings(classIDs)
	if len(classIDs) == 0 {
		return []models.AcademicRecord{}, nil
	}

	out := []models.AcademicRecord{}
	seen := make(map[string]bool)
	for _, classID := range classIDs {
		roster, err := s.students.StudentsByClass(ctx, rctx, classID)
		if err != nil {
			return nil, err
		}
		if len(roster) == 0 {
			continue
		}
		scoped := base
		scoped.StudentIDs = make([]string, 0, len(roster))
		for _, student := range roster {
			scoped.StudentIDs = append(scoped.StudentIDs, student.ID)
		}
		if !form[classID] {
			scoped.SubjectIDs = subjectsByClass[classID]
		}
		records, err := s.records.List(ctx, rctx.TenantID, scoped)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
		}
		for _, record := range records {
			if record.ID != "" {
				if seen[record.ID] {
					continue
				}
				seen[record.ID] = true
			}
			out = append(out, record)
		}
	}
	return out, nil
}

// subjectClassIDs lists the classes in which the teacher may read the given
// subject: their form classes plus the classes of a matching assignment.
func (s *GradeService) subjectClassIDs(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, subjectID string) ([]string, error) {
	formClasses, err := s.access.FormClasses(ctx, rctx, teacher)
	if err != nil {
		return nil, err
	}
	assignments, err := s.access.TeacherAssignments(ctx, rctx, teacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher assignments")
	}
	set := make(map[string]bool)
	for _, class := range formClasses {
		set[class.ID] = true
	}
	for _, assignment := range assignments {
		if assignment.SubjectID == subjectID {
			set[assignment.ClassID] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *GradeService) rosterIDs(ctx context.Context, rctx models.RequestContext, classIDs []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, classID := range classIDs {
		roster, err := s.students.StudentsByClass(ctx, rctx, classID)
		if err != nil {
			return nil, err
		}
		for _, student := range roster {
			if seen[student.ID] {
				continue
			}
			seen[student.ID] = true
			ids = append(ids, student.ID)
		}
	}
	return ids, nil
}

func (s *GradeService) invalidateReports(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:"+tenantID+":*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
