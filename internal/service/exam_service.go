package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type examRepo interface {
	CreateWithComponents(ctx context.Context, exam *models.Exam, components []models.ExamComponent) error
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, tenantID, id string) (*models.Exam, error)
	ListComponents(ctx context.Context, examID string) ([]models.ExamComponent, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string, filter models.ExamFilter) ([]models.Exam, error)
}

type enabledCAReader interface {
	ListEnabledByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error)
}

type componentResultReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.ExamComponentResult, error)
}

// CreateExamAutoCARequest creates an exam whose components are derived from
// the enabled CA registry plus a final exam-score component.
type CreateExamAutoCARequest struct {
	ClassID      string  `json:"class_id" validate:"required"`
	ClassLevel   string  `json:"class_level" validate:"required"`
	SubjectID    string  `json:"subject_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Semester     string  `json:"semester" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	ExamScore    float64 `json:"exam_score" validate:"required,gt=0"`
}

// CreateExamRequest creates an exam with a caller-supplied max score and no
// component expansion.
type CreateExamRequest struct {
	ClassID      string  `json:"class_id" validate:"required"`
	SubjectID    string  `json:"subject_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	Semester     string  `json:"semester" validate:"required"`
	AcademicYear string  `json:"academic_year" validate:"required"`
	MaxScore     float64 `json:"max_score" validate:"required,gt=0"`
}

// UpdateExamRequest partially updates an exam; absent fields are preserved.
type UpdateExamRequest struct {
	Name         *string  `json:"name"`
	Date         *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	MaxScore     *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Semester     *string  `json:"semester"`
	AcademicYear *string  `json:"academic_year"`
}

// ExamService manages exam definitions and component expansion.
type ExamService struct {
	exams     examRepo
	caSetup   enabledCAReader
	results   componentResultReader
	classes   directory.ClassDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(exams examRepo, caSetup enabledCAReader, results componentResultReader, classes directory.ClassDirectory, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, caSetup: caSetup, results: results, classes: classes, validator: validate, logger: logger}
}

// CreateWithAutoCAs derives the exam's components from the enabled CA rows
// for the class level. The exam's max score is the sum of the enabled CA max
// scores plus the final exam-score component, and exam plus components are
// persisted in one transaction.
func (s *ExamService) CreateWithAutoCAs(ctx context.Context, rctx models.RequestContext, req CreateExamAutoCARequest) (*models.ExamWithComponents, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	cas, err := s.caSetup.ListEnabledByLevel(ctx, rctx.TenantID, req.ClassLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ca setup")
	}

	totalCAMax := 0.0
	components := make([]models.ExamComponent, 0, len(cas)+1)
	for _, ca := range cas {
		totalCAMax += ca.MaxScore
		components = append(components, models.ExamComponent{Name: ca.Caption, MaxScore: ca.MaxScore})
	}
	components = append(components, models.ExamComponent{Name: models.FinalComponentName, MaxScore: req.ExamScore})

	date, _ := time.Parse("2006-01-02", req.Date)
	exam := &models.Exam{
		TenantID:     rctx.TenantID,
		ClassID:      req.ClassID,
		SubjectID:    req.SubjectID,
		Name:         req.Name,
		Date:         date,
		MaxScore:     totalCAMax + req.ExamScore,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err := s.exams.CreateWithComponents(ctx, exam, components); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}

	s.logger.Info("exam created with auto components",
		zap.String("tenant_id", rctx.TenantID),
		zap.String("exam_id", exam.ID),
		zap.Int("components", len(components)),
		zap.Float64("max_score", exam.MaxScore))
	return &models.ExamWithComponents{Exam: *exam, Components: components}, nil
}

// Create inserts an exam on the manual path after confirming the class and
// subject exist in the classroom directory.
func (s *ExamService) Create(ctx context.Context, rctx models.RequestContext, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	if _, err := s.classes.Class(ctx, rctx, req.ClassID); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, err
	}
	if _, err := s.classes.Subject(ctx, rctx, req.SubjectID); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, err
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	exam := &models.Exam{
		TenantID:     rctx.TenantID,
		ClassID:      req.ClassID,
		SubjectID:    req.SubjectID,
		Name:         req.Name,
		Date:         date,
		MaxScore:     req.MaxScore,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Get returns one exam with its components.
func (s *ExamService) Get(ctx context.Context, rctx models.RequestContext, id string) (*models.ExamWithComponents, error) {
	exam, err := s.exams.FindByID(ctx, rctx.TenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	components, err := s.exams.ListComponents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam components")
	}
	return &models.ExamWithComponents{Exam: *exam, Components: components}, nil
}

// Results returns every recorded component score for an exam.
func (s *ExamService) Results(ctx context.Context, rctx models.RequestContext, id string) ([]models.ExamComponentResult, error) {
	if _, err := s.exams.FindByID(ctx, rctx.TenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	results, err := s.results.ListByExam(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam results")
	}
	return results, nil
}

// List returns exams matching the filter.
func (s *ExamService) List(ctx context.Context, rctx models.RequestContext, filter models.ExamFilter) ([]models.Exam, error) {
	exams, err := s.exams.List(ctx, rctx.TenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// Update merges the supplied fields into an existing exam.
func (s *ExamService) Update(ctx context.Context, rctx models.RequestContext, id string, req UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam update payload")
	}

	exam, err := s.exams.FindByID(ctx, rctx.TenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	if req.Name != nil {
		exam.Name = *req.Name
	}
	if req.Date != nil {
		date, _ := time.Parse("2006-01-02", *req.Date)
		exam.Date = date
	}
	if req.MaxScore != nil {
		exam.MaxScore = *req.MaxScore
	}
	if req.Semester != nil {
		exam.Semester = *req.Semester
	}
	if req.AcademicYear != nil {
		exam.AcademicYear = *req.AcademicYear
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam and its components.
func (s *ExamService) Delete(ctx context.Context, rctx models.RequestContext, id string) error {
	if err := s.exams.Delete(ctx, rctx.TenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}
