package directory

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

// ClassClient talks to the classroom directory service.
type ClassClient struct {
	client
}

// NewClassClient builds a classroom directory client.
func NewClassClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics UpstreamMetrics) *ClassClient {
	return &ClassClient{client: newClient(baseURL, "classes", timeout, logger, metrics)}
}

// Class fetches a single class by id.
func (c *ClassClient) Class(ctx context.Context, rctx models.RequestContext, id string) (*models.Class, error) {
	var class models.Class
	if err := c.get(ctx, rctx, "/classes/"+url.PathEscape(id), &class); err != nil {
		return nil, err
	}
	return &class, nil
}

// ClassesByFormTeacher lists the classes a teacher is form teacher of.
func (c *ClassClient) ClassesByFormTeacher(ctx context.Context, rctx models.RequestContext, teacherID string) ([]models.Class, error) {
	var classes []models.Class
	if err := c.get(ctx, rctx, "/classes?formTeacherId="+url.QueryEscape(teacherID), &classes); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return []models.Class{}, nil
		}
		return nil, err
	}
	return classes, nil
}

// Subject fetches a single subject by id.
func (c *ClassClient) Subject(ctx context.Context, rctx models.RequestContext, id string) (*models.Subject, error) {
	var subject models.Subject
	if err := c.get(ctx, rctx, "/subjects/"+url.PathEscape(id), &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}
