package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/directory"
	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type teacherAssignmentReader interface {
	Exists(ctx context.Context, tenantID, teacherID, subjectID, classID string) (bool, error)
	ExistsForClass(ctx context.Context, tenantID, teacherID, classID string) (bool, error)
	ListAssignments(ctx context.Context, tenantID, teacherID string) ([]models.TeacherSubject, error)
}

type parentLinkReader interface {
	Exists(ctx context.Context, tenantID, parentID, studentID string) (bool, error)
}

// AccessService is the role-based visibility gate applied across grade
// recording and report assembly. Missing upstream entities surface as 404
// before any authorization verdict; authorization failures return a fixed
// forbidden message that does not reveal whether the blocked resource exists.
type AccessService struct {
	assignments teacherAssignmentReader
	parents     parentLinkReader
	students    directory.StudentDirectory
	classes     directory.ClassDirectory
	logger      *zap.Logger
}

// NewAccessService constructs AccessService.
func NewAccessService(assignments teacherAssignmentReader, parents parentLinkReader, students directory.StudentDirectory, classes directory.ClassDirectory, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{assignments: assignments, parents: parents, students: students, classes: classes, logger: logger}
}

// ResolveTeacher maps the calling user to their teacher identity.
func (s *AccessService) ResolveTeacher(ctx context.Context, rctx models.RequestContext) (*models.Teacher, error) {
	teacher, err := s.students.TeacherByUser(ctx, rctx, rctx.UserID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, err
	}
	return teacher, nil
}

// CanReadClass grants class-level read access to the form teacher or to any
// teacher holding a subject assignment in the class.
func (s *AccessService) CanReadClass(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, classID string) (bool, error) {
	formOK, err := s.IsFormTeacher(ctx, rctx, teacher, classID)
	if err != nil {
		return false, err
	}
	if formOK {
		return true, nil
	}
	return s.assignments.ExistsForClass(ctx, rctx.TenantID, teacher.ID, classID)
}

// IsFormTeacher reports whether the teacher is the form teacher of the class.
func (s *AccessService) IsFormTeacher(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, classID string) (bool, error) {
	class, err := s.classes.Class(ctx, rctx, classID)
	if err != nil {
		return false, err
	}
	return class.FormTeacherID != "" && class.FormTeacherID == teacher.ID, nil
}

// CanWriteSubject requires the specific subject assignment. Form-teacher
// status alone never grants subject-level write access; that asymmetry with
// CanReadClass is intentional.
func (s *AccessService) CanWriteSubject(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher, subjectID, classID string) (bool, error) {
	return s.assignments.Exists(ctx, rctx.TenantID, teacher.ID, subjectID, classID)
}

// TeacherAssignments lists the teacher's (subject, class) assignment pairs.
func (s *AccessService) TeacherAssignments(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher) ([]models.TeacherSubject, error) {
	return s.assignments.ListAssignments(ctx, rctx.TenantID, teacher.ID)
}

// FormClasses lists the classes the teacher is form teacher of.
func (s *AccessService) FormClasses(ctx context.Context, rctx models.RequestContext, teacher *models.Teacher) ([]models.Class, error) {
	return s.classes.ClassesByFormTeacher(ctx, rctx, teacher.ID)
}

// AuthorizeStudentRead decides whether the caller may view the student's
// records: admins always, teachers when they can read the student's class,
// students only themselves, parents only linked students.
func (s *AccessService) AuthorizeStudentRead(ctx context.Context, rctx models.RequestContext, student *models.Student) error {
	switch rctx.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		teacher, err := s.ResolveTeacher(ctx, rctx)
		if err != nil {
			return err
		}
		ok, err := s.CanReadClass(ctx, rctx, teacher, student.ClassID)
		if err != nil {
			return err
		}
		if !ok {
			return appErrors.ErrForbidden
		}
		return nil
	case models.RoleStudent:
		if student.UserID != rctx.UserID {
			return appErrors.ErrForbidden
		}
		return nil
	case models.RoleParent:
		linked, err := s.parents.Exists(ctx, rctx.TenantID, rctx.UserID, student.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check parent link")
		}
		if !linked {
			return appErrors.ErrForbidden
		}
		return nil
	default:
		return appErrors.ErrForbidden
	}
}
