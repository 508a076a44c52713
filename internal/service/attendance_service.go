package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type attendanceRepo interface {
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	BulkInsert(ctx context.Context, records []models.AttendanceRecord) error
}

// AttendanceInput is one submitted attendance entry.
type AttendanceInput struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required"`
}

// BulkAttendanceRequest records multiple entries as one all-or-nothing batch.
type BulkAttendanceRequest struct {
	Records []AttendanceInput `json:"records" validate:"required,min=1,dive"`
}

// AttendanceService records attendance entries.
type AttendanceService struct {
	attendance attendanceRepo
	students   directory.StudentDirectory
	access     *AccessService
	cache      reportCacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepo, students directory.StudentDirectory, access *AccessService, cache reportCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		students:   students,
		access:     access,
		cache:      cache,
		validator:  validate,
		logger:     logger,
	}
}

// Record validates and inserts one attendance entry. A second entry for the
// same (student, class, subject, date) is a conflict.
func (s *AttendanceService) Record(ctx context.Context, rctx models.RequestContext, req AttendanceInput) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	var teacher *models.Teacher
	if rctx.Role == models.RoleTeacher {
		var err error
		teacher, err = s.access.ResolveTeacher(ctx, rctx)
		if err != nil {
			return nil, err
		}
	}

	record, err := s.validateEntry(ctx, rctx, teacher, req, map[string]bool{})
	if err != nil {
		return nil, err
	}

	if err := s.attendance.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this student and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidateReports(ctx, rctx.TenantID)
	return record, nil
}

// BulkRecord validates every entry in submission order and persists them in
// one transaction. The first failing entry aborts with nothing persisted.
func (s *AttendanceService) BulkRecord(ctx context.Context, rctx models.RequestContext, req BulkAttendanceRequest) ([]models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
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
	records := make([]models.AttendanceRecord, 0, len(req.Records))
	for _, item := range req.Records {
		record, err := s.validateEntry(ctx, rctx, teacher, item, seen)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := s.attendance.BulkInsert(ctx, records); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for a student in this batch")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.invalidateReports(ctx, rctx.TenantID)
	s.logger.Info("attendance bulk recorded", zap.String("tenant_id", rctx.TenantID), zap.Int("count", len(records)))
	return records, nil
}

func (s *AttendanceService) validateEntry(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, req AttendanceInput, seen map[string]bool) (*models.AttendanceRecord, error) {
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", req.Status))
	}

	key := req.StudentID + "/" + req.ClassID + "/" + req.SubjectID + "/" + req.Date
	if seen[key] {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("duplicate attendance for student %s in batch", req.StudentID))
	}
	seen[key] = true

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
	if student.ClassID != req.ClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to this class")
	}

	if rctx.Role == models.RoleTeacher {
		ok, err := s.access.CanReadClass(ctx, rctx, teacher, req.ClassID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErrors.ErrForbidden
		}
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	return &models.AttendanceRecord{
		TenantID:   rctx.TenantID,
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		SubjectID:  req.SubjectID,
		Date:       date,
		Status:     status,
		RecordedBy: rctx.UserID,
	}, nil
}

func (s *AttendanceService) invalidateReports(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:"+tenantID+":*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
