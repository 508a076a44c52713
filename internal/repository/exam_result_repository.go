package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// ExamResultRepository persists raw per-component scores.
type ExamResultRepository struct {
	db *sqlx.DB
}

// NewExamResultRepository creates a new exam result repository.
func NewExamResultRepository(db *sqlx.DB) *ExamResultRepository {
	return &ExamResultRepository{db: db}
}

// Upsert inserts or replaces the score for a (student, component) pair.
// Last write wins on that key.
func (r *ExamResultRepository) Upsert(ctx context.Context, result *models.ExamComponentResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_component_results (id, student_id, component_id, score, updated_at)
        VALUES (:id, :student_id, :component_id, :score, :updated_at)
        ON CONFLICT (student_id, component_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("upsert component result: %w", err)
	}
	return nil
}

// ListByExam returns every recorded score for an exam's components.
func (r *ExamResultRepository) ListByExam(ctx context.Context, examID string) ([]models.ExamComponentResult, error) {
	var results []models.ExamComponentResult
	const query = `SELECT r.id, r.student_id, r.component_id, r.score, r.updated_at
        FROM exam_component_results r
        JOIN exam_components c ON c.id = r.component_id
        WHERE c.exam_id = $1
        ORDER BY r.student_id, r.component_id`
	if err := r.db.SelectContext(ctx, &results, query, examID); err != nil {
		return nil, fmt.Errorf("list component results: %w", err)
	}
	return results, nil
}
