package directory

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/models"
)

// ProfileClient talks to the profile service.
type ProfileClient struct {
	client
}

// NewProfileClient builds a profile service client.
func NewProfileClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics UpstreamMetrics) *ProfileClient {
	return &ProfileClient{client: newClient(baseURL, "profiles", timeout, logger, metrics)}
}

// Profile fetches a user profile by id.
func (c *ProfileClient) Profile(ctx context.Context, rctx models.RequestContext, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.get(ctx, rctx, "/profiles/"+url.PathEscape(id), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
