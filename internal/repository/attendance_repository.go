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

// AttendanceRepository persists attendance records and aggregates.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const insertAttendanceQuery = `INSERT INTO attendance_records
    (id, tenant_id, student_id, class_id, subject_id, date, status, recorded_by, created_at)
    VALUES (:id, :tenant_id, :student_id, :class_id, :subject_id, :date, :status, :recorded_by, :created_at)
    ON CONFLICT (student_id, class_id, subject_id, date) DO NOTHING`

// Insert writes one attendance row; a duplicate (student, class, subject,
// date) surfaces as ErrDuplicate.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	stampAttendance(record)
	res, err := r.db.NamedExecContext(ctx, insertAttendanceQuery, record)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// BulkInsert writes all rows in one transaction; any duplicate or failure
// rolls back the whole batch.
func (r *AttendanceRepository) BulkInsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	for i := range records {
		stampAttendance(&records[i])
		res, err := tx.NamedExecContext(ctx, insertAttendanceQuery, records[i])
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk insert attendance: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk insert attendance affected: %w", err)
		}
		if affected == 0 {
			tx.Rollback() //nolint:errcheck
			return ErrDuplicate
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance: %w", err)
	}
	return nil
}

func stampAttendance(record *models.AttendanceRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// StatusCounts aggregates attendance grouped by (student, status) within the
// filter. Absent statuses simply produce no row; callers default them to 0.
func (r *AttendanceRepository) StatusCounts(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AttendanceStatusCount, error) {
	query := `SELECT student_id, status, COUNT(*) AS count FROM attendance_records WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	if len(filter.StudentIDs) > 0 {
		placeholders := make([]string, len(filter.StudentIDs))
		for i, id := range filter.StudentIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND student_id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " GROUP BY student_id, status"
	var counts []models.AttendanceStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("attendance status counts: %w", err)
	}
	return counts, nil
}
