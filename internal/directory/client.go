// Package directory provides typed HTTP clients for the sibling services this
// API depends on. Call sites depend on the StudentDirectory, ClassDirectory
// and ProfileDirectory interfaces; retries, timeouts and error mapping live
// here rather than scattered per call.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

// StudentDirectory resolves students and teacher identities.
type StudentDirectory interface {
	Student(ctx context.Context, rctx models.RequestContext, id string) (*models.Student, error)
	StudentsByClass(ctx context.Context, rctx models.RequestContext, classID string) ([]models.Student, error)
	TeacherByUser(ctx context.Context, rctx models.RequestContext, userID string) (*models.Teacher, error)
}

// ClassDirectory resolves classes and subjects.
type ClassDirectory interface {
	Class(ctx context.Context, rctx models.RequestContext, id string) (*models.Class, error)
	Subject(ctx context.Context, rctx models.RequestContext, id string) (*models.Subject, error)
	ClassesByFormTeacher(ctx context.Context, rctx models.RequestContext, teacherID string) ([]models.Class, error)
}

// ProfileDirectory resolves user profiles.
type ProfileDirectory interface {
	Profile(ctx context.Context, rctx models.RequestContext, id string) (*models.Profile, error)
}

// UpstreamMetrics counts failed calls per sibling service. A nil recorder
// disables counting.
type UpstreamMetrics interface {
	RecordUpstreamError(service string)
}

type client struct {
	baseURL string
	service string
	http    *http.Client
	logger  *zap.Logger
	metrics UpstreamMetrics
}

func newClient(baseURL, service string, timeout time.Duration, logger *zap.Logger, metrics UpstreamMetrics) client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return client{
		baseURL: baseURL,
		service: service,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

func (c client) recordError() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamError(c.service)
}

type upstreamEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get performs a GET against the sibling service, forwarding the caller's
// bearer token and tenant id, and decodes the data payload into dest.
// Upstream 404s surface as NOT_FOUND; every other failure is UPSTREAM_FAILURE.
func (c client) get(ctx context.Context, rctx models.RequestContext, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build upstream request")
	}
	if rctx.Token != "" {
		req.Header.Set("Authorization", "Bearer "+rctx.Token)
	}
	if rctx.TenantID != "" {
		req.Header.Set("X-Tenant-ID", rctx.TenantID)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordError()
		c.logger.Warn("upstream request failed", zap.String("path", path), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "upstream request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return appErrors.Clone(appErrors.ErrNotFound, "upstream resource not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordError()
		c.logger.Warn("upstream returned error status", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "read upstream response")
	}

	var envelope upstreamEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode upstream response")
	}
	if len(envelope.Data) == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "upstream resource not found")
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode upstream payload")
	}
	return nil
}
