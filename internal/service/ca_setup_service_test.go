package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-core-api/internal/models"
	"github.com/noah-isme/school-core-api/internal/repository"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type fakeCASetupRepo struct {
	rows     map[string]*models.ClassLevelCA
	byLevel  []models.ClassLevelCA
	received []repository.CASetupUpsert
}

func (f *fakeCASetupRepo) Save(ctx context.Context, tenantID, classLevel string, entries []repository.CASetupUpsert) ([]models.CASetupResult, error) {
	f.received = entries
	results := make([]models.CASetupResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, models.CASetupResult{
			ClassLevelCA: models.ClassLevelCA{
				ID:         entry.ID,
				TenantID:   tenantID,
				ClassLevel: classLevel,
				Caption:    entry.Caption,
				MaxScore:   entry.MaxScore,
				Enabled:    entry.Enabled,
			},
			Created: entry.ID == "",
		})
	}
	return results, nil
}

func (f *fakeCASetupRepo) ListByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error) {
	return f.byLevel, nil
}

func (f *fakeCASetupRepo) FindByID(ctx context.Context, tenantID, id string) (*models.ClassLevelCA, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCASetupRepo) Update(ctx context.Context, row *models.ClassLevelCA) error {
	f.rows[row.ID] = row
	return nil
}

func caCtx() models.RequestContext {
	return models.RequestContext{TenantID: "tenant-1", UserID: "admin-1", Role: models.RoleAdmin}
}

func TestCASetupServiceSaveSkipsIncompleteEntries(t *testing.T) {
	repo := &fakeCASetupRepo{}
	svc := NewCASetupService(repo, nil, nil)

	max := 20.0
	disabled := false
	results, err := svc.Save(context.Background(), caCtx(), SaveCASetupRequest{
		ClassLevel: "JSS1",
		Entries: []CASetupEntryInput{
			{Caption: "First CA", MaxScore: &max},
			{Caption: "No max score"},
			{MaxScore: &max},
			{Caption: "Disabled CA", MaxScore: &max, Enabled: &disabled},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, repo.received, 2)
	assert.Equal(t, "First CA", repo.received[0].Caption)
	assert.True(t, repo.received[0].Enabled, "enabled should default to true")
	assert.False(t, repo.received[1].Enabled)
}

func TestCASetupServiceGetEmptyReturnsNotFound(t *testing.T) {
	svc := NewCASetupService(&fakeCASetupRepo{}, nil, nil)

	rows, err := svc.Get(context.Background(), caCtx(), "JSS2")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	require.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCASetupServiceGetRequiresClassLevel(t *testing.T) {
	svc := NewCASetupService(&fakeCASetupRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), caCtx(), "")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestCASetupServiceUpdateMergesFields(t *testing.T) {
	repo := &fakeCASetupRepo{rows: map[string]*models.ClassLevelCA{
		"ca-1": {ID: "ca-1", TenantID: "tenant-1", ClassLevel: "JSS1", Caption: "First CA", MaxScore: 10, Enabled: true},
	}}
	svc := NewCASetupService(repo, nil, nil)

	newMax := 15.0
	row, err := svc.Update(context.Background(), caCtx(), "ca-1", UpdateCASetupRequest{MaxScore: &newMax})
	require.NoError(t, err)
	assert.Equal(t, 15.0, row.MaxScore)
	assert.Equal(t, "First CA", row.Caption)
	assert.True(t, row.Enabled)
}

func TestCASetupServiceUpdateNotFound(t *testing.T) {
	svc := NewCASetupService(&fakeCASetupRepo{rows: map[string]*models.ClassLevelCA{}}, nil, nil)

	caption := "Renamed"
	_, err := svc.Update(context.Background(), caCtx(), "missing", UpdateCASetupRequest{Caption: &caption})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
