package directory

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

// StudentClient talks to the student directory service.
type StudentClient struct {
	client
}

// NewStudentClient builds a student directory client.
func NewStudentClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics UpstreamMetrics) *StudentClient {
	return &StudentClient{client: newClient(baseURL, "students", timeout, logger, metrics)}
}

// Student fetches a single student by id.
func (c *StudentClient) Student(ctx context.Context, rctx models.RequestContext, id string) (*models.Student, error) {
	var student models.Student
	if err := c.get(ctx, rctx, "/students/"+url.PathEscape(id), &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// StudentsByClass fetches the roster of a class.
func (c *StudentClient) StudentsByClass(ctx context.Context, rctx models.RequestContext, classID string) ([]models.Student, error) {
	var students []models.Student
	if err := c.get(ctx, rctx, "/students?classId="+url.QueryEscape(classID), &students); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return []models.Student{}, nil
		}
		return nil, err
	}
	return students, nil
}

// TeacherByUser resolves the teacher identity behind a user account.
func (c *StudentClient) TeacherByUser(ctx context.Context, rctx models.RequestContext, userID string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := c.get(ctx, rctx, "/students/teachers?userId="+url.QueryEscape(userID), &teacher); err != nil {
		return nil, err
	}
	return &teacher, nil
}
