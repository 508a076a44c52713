package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// CASetupRepository persists per-class-level continuous-assessment slots.
type CASetupRepository struct {
	db *sqlx.DB
}

// NewCASetupRepository creates a new CA setup repository.
func NewCASetupRepository(db *sqlx.DB) *CASetupRepository {
	return &CASetupRepository{db: db}
}

// CASetupUpsert is one entry of a setup save call.
type CASetupUpsert struct {
	ID       string
	Caption  string
	MaxScore float64
	Enabled  bool
}

// Save upserts the given entries for a class level inside one transaction.
// Entries carrying an id update the existing row; the rest are inserted.
// Any failure rolls back the whole call.
func (r *CASetupRepository) Save(ctx context.Context, tenantID, classLevel string, entries []CASetupUpsert) ([]models.CASetupResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ca setup tx: %w", err)
	}

	now := time.Now().UTC()
	results := make([]models.CASetupResult, 0, len(entries))
	for _, entry := range entries {
		row := models.ClassLevelCA{
			ID:         entry.ID,
			TenantID:   tenantID,
			ClassLevel: classLevel,
			Caption:    entry.Caption,
			MaxScore:   entry.MaxScore,
			Enabled:    entry.Enabled,
			UpdatedAt:  now,
		}
		created := true
		if entry.ID != "" {
			var exists bool
			if err := tx.GetContext(ctx, &exists,
				`SELECT EXISTS(SELECT 1 FROM class_level_cas WHERE id = $1 AND tenant_id = $2)`,
				entry.ID, tenantID); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, fmt.Errorf("check ca row: %w", err)
			}
			created = !exists
		}
		if created {
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			row.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO class_level_cas
                (id, tenant_id, class_level, caption, max_score, enabled, created_at, updated_at)
                VALUES (:id, :tenant_id, :class_level, :caption, :max_score, :enabled, :created_at, :updated_at)`, row); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, fmt.Errorf("insert ca row: %w", err)
			}
		} else {
			if _, err := tx.NamedExecContext(ctx, `UPDATE class_level_cas
                SET caption = :caption, max_score = :max_score, enabled = :enabled, updated_at = :updated_at
                WHERE id = :id AND tenant_id = :tenant_id`, row); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, fmt.Errorf("update ca row: %w", err)
			}
		}
		results = append(results, models.CASetupResult{ClassLevelCA: row, Created: created})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ca setup: %w", err)
	}
	return results, nil
}

// ListByLevel returns all CA rows for the class level ordered by id.
func (r *CASetupRepository) ListByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error) {
	var rows []models.ClassLevelCA
	const query = `SELECT id, tenant_id, class_level, caption, max_score, enabled, created_at, updated_at
        FROM class_level_cas WHERE tenant_id = $1 AND class_level = $2 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, classLevel); err != nil {
		return nil, fmt.Errorf("list ca setup: %w", err)
	}
	return rows, nil
}

// ListEnabledByLevel returns the enabled CA rows used for exam expansion.
func (r *CASetupRepository) ListEnabledByLevel(ctx context.Context, tenantID, classLevel string) ([]models.ClassLevelCA, error) {
	var rows []models.ClassLevelCA
	const query = `SELECT id, tenant_id, class_level, caption, max_score, enabled, created_at, updated_at
        FROM class_level_cas WHERE tenant_id = $1 AND class_level = $2 AND enabled = true ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, classLevel); err != nil {
		return nil, fmt.Errorf("list enabled ca setup: %w", err)
	}
	return rows, nil
}

// FindByID returns one CA row scoped to the tenant.
func (r *CASetupRepository) FindByID(ctx context.Context, tenantID, id string) (*models.ClassLevelCA, error) {
	var row models.ClassLevelCA
	const query = `SELECT id, tenant_id, class_level, caption, max_score, enabled, created_at, updated_at
        FROM class_level_cas WHERE id = $1 AND tenant_id = $2`
	if err := r.db.GetContext(ctx, &row, query, id, tenantID); err != nil {
		return nil, err
	}
	return &row, nil
}

// Update persists caption/max_score/enabled changes on an existing row.
func (r *CASetupRepository) Update(ctx context.Context, row *models.ClassLevelCA) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_level_cas
        SET caption = :caption, max_score = :max_score, enabled = :enabled, updated_at = :updated_at
        WHERE id = :id AND tenant_id = :tenant_id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update ca setup: %w", err)
	}
	return nil
}
