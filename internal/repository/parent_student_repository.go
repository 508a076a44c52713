package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// ParentStudentRepository persists parent-student links.
type ParentStudentRepository struct {
	db *sqlx.DB
}

// NewParentStudentRepository creates a new parent student repository.
func NewParentStudentRepository(db *sqlx.DB) *ParentStudentRepository {
	return &ParentStudentRepository{db: db}
}

// Exists reports whether the parent is linked to the student.
func (r *ParentStudentRepository) Exists(ctx context.Context, tenantID, parentID, studentID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM parent_students
        WHERE tenant_id = $1 AND parent_id = $2 AND student_id = $3)`
	if err := r.db.GetContext(ctx, &exists, query, tenantID, parentID, studentID); err != nil {
		return false, fmt.Errorf("check parent link: %w", err)
	}
	return exists, nil
}

// Insert creates a parent-student link; duplicates surface as ErrDuplicate.
func (r *ParentStudentRepository) Insert(ctx context.Context, link *models.ParentStudent) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO parent_students (id, parent_id, student_id, tenant_id, created_at)
        VALUES (:id, :parent_id, :student_id, :tenant_id, :created_at)
        ON CONFLICT (parent_id, student_id, tenant_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, link)
	if err != nil {
		return fmt.Errorf("insert parent link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert parent link affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}
