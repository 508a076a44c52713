package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-core-api/internal/models"
)

// AcademicRecordRepository persists final grades per (student, exam).
type AcademicRecordRepository struct {
	db *sqlx.DB
}

// NewAcademicRecordRepository creates a new academic record repository.
func NewAcademicRecordRepository(db *sqlx.DB) *AcademicRecordRepository {
	return &AcademicRecordRepository{db: db}
}

// Exists reports whether a grade is already recorded for the key.
func (r *AcademicRecordRepository) Exists(ctx context.Context, tenantID, studentID, examID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM academic_records WHERE tenant_id = $1 AND student_id = $2 AND exam_id = $3)`
	if err := r.db.GetContext(ctx, &exists, query, tenantID, studentID, examID); err != nil {
		return false, fmt.Errorf("check academic record: %w", err)
	}
	return exists, nil
}

const insertAcademicRecordQuery = `INSERT INTO academic_records
    (id, tenant_id, student_id, subject_id, exam_id, grade, semester, academic_year, created_at)
    VALUES (:id, :tenant_id, :student_id, :subject_id, :exam_id, :grade, :semester, :academic_year, :created_at)
    ON CONFLICT (student_id, exam_id, tenant_id) DO NOTHING`

// Insert writes one grade row. The unique (student_id, exam_id, tenant_id)
// constraint backs the application-level duplicate check; a conflicting
// concurrent insert surfaces as ErrDuplicate instead of a silent second row.
func (r *AcademicRecordRepository) Insert(ctx context.Context, record *models.AcademicRecord) error {
	stampRecord(record)
	res, err := r.db.NamedExecContext(ctx, insertAcademicRecordQuery, record)
	if err != nil {
		return fmt.Errorf("insert academic record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert academic record affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// BulkInsert writes all rows in one transaction; any duplicate or failure
// rolls back the whole batch.
func (r *AcademicRecordRepository) BulkInsert(ctx context.Context, records []models.AcademicRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin academic record tx: %w", err)
	}
	for i := range records {
		stampRecord(&records[i])
		res, err := tx.NamedExecContext(ctx, insertAcademicRecordQuery, records[i])
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk insert academic record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk insert academic record affected: %w", err)
		}
		if affected == 0 {
			tx.Rollback() //nolint:errcheck
			return ErrDuplicate
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit academic records: %w", err)
	}
	return nil
}

func stampRecord(record *models.AcademicRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// List returns academic records matching the filter.
func (r *AcademicRecordRepository) List(ctx context.Context, tenantID string, filter models.GradeFilter) ([]models.AcademicRecord, error) {
	query := `SELECT id, tenant_id, student_id, subject_id, exam_id, grade, semester, academic_year, created_at
        FROM academic_records WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.ExamID != "" {
		query += fmt.Sprintf(" AND exam_id = $%d", len(args)+1)
		args = append(args, filter.ExamID)
	}
	if filter.Semester != "" {
		query += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if len(filter.StudentIDs) > 0 {
		placeholders := make([]string, len(filter.StudentIDs))
		for i, id := range filter.StudentIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND student_id IN (%s)", strings.Join(placeholders, ","))
	}
	if len(filter.SubjectIDs) > 0 {
		placeholders := make([]string, len(filter.SubjectIDs))
		for i, id := range filter.SubjectIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND subject_id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY created_at DESC"
	var records []models.AcademicRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list academic records: %w", err)
	}
	return records, nil
}

// ReportCardRows joins a student's grades with exam metadata for the report
// card, optionally filtered by semester and academic year.
func (r *AcademicRecordRepository) ReportCardRows(ctx context.Context, tenantID, studentID, semester, academicYear string) ([]models.ReportCardGrade, error) {
	query := `SELECT ar.subject_id, ar.exam_id, e.name AS exam_name, ar.grade, e.max_score, ar.semester, ar.academic_year
        FROM academic_records ar
        JOIN exams e ON e.id = ar.exam_id
        WHERE ar.tenant_id = $1 AND ar.student_id = $2`
	args := []interface{}{tenantID, studentID}
	if semester != "" {
		query += fmt.Sprintf(" AND ar.semester = $%d", len(args)+1)
		args = append(args, semester)
	}
	if academicYear != "" {
		query += fmt.Sprintf(" AND ar.academic_year = $%d", len(args)+1)
		args = append(args, academicYear)
	}
	query += " ORDER BY e.date ASC"
	var rows []models.ReportCardGrade
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("report card rows: %w", err)
	}
	return rows, nil
}
