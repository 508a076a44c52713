package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// ExamRepository persists exams and their components.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// CreateWithComponents inserts the exam and its components in one
// transaction so a mid-sequence failure never leaves an exam whose max score
// disagrees with its parts.
func (r *ExamRepository) CreateWithComponents(ctx context.Context, exam *models.Exam, components []models.ExamComponent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam tx: %w", err)
	}

	stampExam(exam)
	if _, err := tx.NamedExecContext(ctx, insertExamQuery, exam); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert exam: %w", err)
	}
	for i := range components {
		if components[i].ID == "" {
			components[i].ID = uuid.NewString()
		}
		components[i].ExamID = exam.ID
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO exam_components (id, exam_id, name, max_score)
            VALUES (:id, :exam_id, :name, :max_score)`, components[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert exam component: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam: %w", err)
	}
	return nil
}

const insertExamQuery = `INSERT INTO exams
    (id, tenant_id, class_id, subject_id, name, date, max_score, semester, academic_year, created_at, updated_at)
    VALUES (:id, :tenant_id, :class_id, :subject_id, :name, :date, :max_score, :semester, :academic_year, :created_at, :updated_at)`

// Create inserts an exam without components (manual path).
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	stampExam(exam)
	if _, err := r.db.NamedExecContext(ctx, insertExamQuery, exam); err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

func stampExam(exam *models.Exam) {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
}

// FindByID returns one exam scoped to the tenant.
func (r *ExamRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Exam, error) {
	var exam models.Exam
	const query = `SELECT id, tenant_id, class_id, subject_id, name, date, max_score, semester, academic_year, created_at, updated_at
        FROM exams WHERE id = $1 AND tenant_id = $2`
	if err := r.db.GetContext(ctx, &exam, query, id, tenantID); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListComponents returns the components of an exam.
func (r *ExamRepository) ListComponents(ctx context.Context, examID string) ([]models.ExamComponent, error) {
	var components []models.ExamComponent
	const query = `SELECT id, exam_id, name, max_score FROM exam_components WHERE exam_id = $1 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &components, query, examID); err != nil {
		return nil, fmt.Errorf("list exam components: %w", err)
	}
	return components, nil
}

// FindComponent returns one component by id.
func (r *ExamRepository) FindComponent(ctx context.Context, componentID string) (*models.ExamComponent, error) {
	var component models.ExamComponent
	const query = `SELECT id, exam_id, name, max_score FROM exam_components WHERE id = $1`
	if err := r.db.GetContext(ctx, &component, query, componentID); err != nil {
		return nil, err
	}
	return &component, nil
}

// Update persists exam field changes.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET class_id = :class_id, subject_id = :subject_id, name = :name, date = :date,
        max_score = :max_score, semester = :semester, academic_year = :academic_year, updated_at = :updated_at
        WHERE id = :id AND tenant_id = :tenant_id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// Delete removes an exam and its components. Component results cascade at the
// database level.
func (r *ExamRepository) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam delete tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_components WHERE exam_id = $1`, id); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete exam components: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("delete exam affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam delete: %w", err)
	}
	return nil
}

// List returns exams matching the filter.
func (r *ExamRepository) List(ctx context.Context, tenantID string, filter models.ExamFilter) ([]models.Exam, error) {
	query := `SELECT id, tenant_id, class_id, subject_id, name, date, max_score, semester, academic_year, created_at, updated_at
        FROM exams WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.Semester != "" {
		query += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	query += " ORDER BY date DESC"
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// DateRange returns the min and max exam dates matching the semester/year
// filter; nil bounds when no exam matches. Reports derive the attendance
// window from it.
func (r *ExamRepository) DateRange(ctx context.Context, tenantID, semester, academicYear string) (*time.Time, *time.Time, error) {
	query := `SELECT MIN(date) AS min_date, MAX(date) AS max_date FROM exams WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if semester != "" {
		query += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, semester)
	}
	if academicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, academicYear)
	}
	var bounds struct {
		MinDate *time.Time `db:"min_date"`
		MaxDate *time.Time `db:"max_date"`
	}
	if err := r.db.GetContext(ctx, &bounds, query, args...); err != nil {
		return nil, nil, fmt.Errorf("exam date range: %w", err)
	}
	return bounds.MinDate, bounds.MaxDate, nil
}
