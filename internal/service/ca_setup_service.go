package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type caSetupRepo interface {
	Save(ctx context.Context, tenantID, classLevel string, entries []repository.CASetupUpsert) ([]models.CASetupResult, error)
	ListByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.ClassLevelCA, error)
	Update(ctx context.Context, row *models.ClassLevelCA) error
}

// CASetupEntryInput is one submitted setup entry. Entries missing either
// caption or max score are silently skipped, matching the save contract.
type CASetupEntryInput struct {
	ID       string   `json:"id"`
	Caption  string   `json:"caption"`
	MaxScore *float64 `json:"max_score"`
	Enabled  *bool    `json:"enabled"`
}

// SaveCASetupRequest is the payload for saving a class level's CA slots.
type SaveCASetupRequest struct {
	ClassLevel string              `json:"class_level" validate:"required"`
	Entries    []CASetupEntryInput `json:"ca_setup" validate:"required"`
}

// UpdateCASetupRequest partially updates one CA row.
type UpdateCASetupRequest struct {
	Caption  *string  `json:"caption"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Enabled  *bool    `json:"enabled"`
}

// CASetupService manages the continuous-assessment registry.
type CASetupService struct {
	repo      caSetupRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCASetupService constructs CASetupService.
func NewCASetupService(repo caSetupRepo, validate *validator.Validate, logger *zap.Logger) *CASetupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CASetupService{repo: repo, validator: validate, logger: logger}
}

// Save upserts the submitted entries in one transaction and reports each
// processed entry with its resulting row state and a created flag.
func (s *CASetupService) Save(ctx context.Context, rctx models.RequestContext, req SaveCASetupRequest) ([]models.CASetupResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ca setup payload")
	}

	upserts := make([]repository.CASetupUpsert, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if entry.Caption == "" || entry.MaxScore == nil {
			continue
		}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		upserts = append(upserts, repository.CASetupUpsert{
			ID:       entry.ID,
			Caption:  entry.Caption,
			MaxScore: *entry.MaxScore,
			Enabled:  enabled,
		})
	}

	results, err := s.repo.Save(ctx, rctx.TenantID, req.ClassLevel, upserts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save ca setup")
	}
	s.logger.Info("ca setup saved",
		zap.String("tenant_id", rctx.TenantID),
		zap.String("class_level", req.ClassLevel),
		zap.Int("entries", len(results)))
	return results, nil
}

// Get returns the CA rows for a class level ordered by id. An empty set is
// reported as not found: callers cannot distinguish an empty-but-valid
// configuration from one that was never created, and the contract treats
// both as "configuration absent".
func (s *CASetupService) Get(ctx context.Context, rctx models.RequestContext, classLevel string) ([]models.ClassLevelCA, error) {
	if classLevel == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class level is required")
	}
	rows, err := s.repo.ListByLevel(ctx, rctx.TenantID, classLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ca setup")
	}
	if len(rows) == 0 {
		return []models.ClassLevelCA{}, appErrors.Clone(appErrors.ErrNotFound, "no ca setup found for this class level")
	}
	return rows, nil
}

// Update applies a partial update to one CA row scoped to the tenant.
func (s *CASetupService) Update(ctx context.Context, rctx models.RequestContext, id string, req UpdateCASetupRequest) (*models.ClassLevelCA, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ca update payload")
	}

	row, err := s.repo.FindByID(ctx, rctx.TenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ca setup entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ca setup entry")
	}

	if req.Caption != nil {
		row.Caption = *req.Caption
	}
	if req.MaxScore != nil {
		row.MaxScore = *req.MaxScore
	}
	if req.Enabled != nil {
		row.Enabled = *req.Enabled
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ca setup entry")
	}
	return row, nil
}
