package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type parentLinkWriter interface {
	Insert(ctx context.Context, link *models.ParentStudent) error
}

// LinkParentRequest links a parent user to a student.
type LinkParentRequest struct {
	ParentID  string `json:"parent_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// ParentLinkService manages parent-student links. Links gate what the parent
// role may read in reports and attendance.
type ParentLinkService struct {
	links     parentLinkWriter
	students  directory.StudentDirectory
	profiles  directory.ProfileDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParentLinkService constructs ParentLinkService.
func NewParentLinkService(links parentLinkWriter, students directory.StudentDirectory, profiles directory.ProfileDirectory, validate *validator.Validate, logger *zap.Logger) *ParentLinkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentLinkService{links: links, students: students, profiles: profiles, validator: validate, logger: logger}
}

// Link validates both ends and creates the link. The parent must resolve to a
// parent-role profile and the student must exist; a second identical link is
// a conflict.
func (s *ParentLinkService) Link(ctx context.Context, rctx models.RequestContext, req LinkParentRequest) (*models.ParentStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent link payload")
	}

	profile, err := s.profiles.Profile(ctx, rctx, req.ParentID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
		}
		return nil, err
	}
	if profile.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a parent")
	}

	if _, err := s.students.Student(ctx, rctx, req.StudentID); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}

	link := &models.ParentStudent{
		ParentID:  req.ParentID,
		StudentID: req.StudentID,
		TenantID:  rctx.TenantID,
	}
	if err := s.links.Insert(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "parent is already linked to this student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create parent link")
	}

	s.logger.Info("parent linked to student",
		zap.String("tenant_id", rctx.TenantID),
		zap.String("parent_id", req.ParentID),
		zap.String("student_id", req.StudentID))
	return link, nil
}
