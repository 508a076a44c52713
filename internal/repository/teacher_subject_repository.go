package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// TeacherSubjectRepository reads teacher subject-teaching authorizations.
type TeacherSubjectRepository struct {
	db *sqlx.DB
}

// NewTeacherSubjectRepository creates a new teacher subject repository.
func NewTeacherSubjectRepository(db *sqlx.DB) *TeacherSubjectRepository {
	return &TeacherSubjectRepository{db: db}
}

// Exists reports whether the teacher is assigned the subject in the class.
func (r *TeacherSubjectRepository) Exists(ctx context.Context, tenantID, teacherID, subjectID, classID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM teacher_subjects
        WHERE tenant_id = $1 AND teacher_id = $2 AND subject_id = $3 AND class_id = $4)`
	if err := r.db.GetContext(ctx, &exists, query, tenantID, teacherID, subjectID, classID); err != nil {
		return false, fmt.Errorf("check teacher subject: %w", err)
	}
	return exists, nil
}

// ExistsForClass reports whether the teacher teaches any subject in the class.
func (r *TeacherSubjectRepository) ExistsForClass(ctx context.Context, tenantID, teacherID, classID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM teacher_subjects
        WHERE tenant_id = $1 AND teacher_id = $2 AND class_id = $3)`
	if err := r.db.GetContext(ctx, &exists, query, tenantID, teacherID, classID); err != nil {
		return false, fmt.Errorf("check teacher class: %w", err)
	}
	return exists, nil
}

// ListAssignments returns every (subject, class) assignment of the teacher.
func (r *TeacherSubjectRepository) ListAssignments(ctx context.Context, tenantID, teacherID string) ([]models.TeacherSubject, error) {
	var rows []models.TeacherSubject
	const query = `SELECT teacher_id, subject_id, class_id, tenant_id, created_at FROM teacher_subjects
        WHERE tenant_id = $1 AND teacher_id = $2 ORDER BY class_id, subject_id`
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return rows, nil
}

