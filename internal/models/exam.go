package models

import "time"

// FinalComponentName is the name of the auto-created component holding the
// final exam score alongside the CA-derived components.
const FinalComponentName = "Exam"

// Exam is a scored assessment for one class and subject. MaxScore equals the
// sum of the component max scores whenever components exist.
type Exam struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Name         string    `db:"name" json:"name"`
	Date         time.Time `db:"date" json:"date"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ExamComponent is one scored part of an exam, owned by the exam and removed
// with it.
type ExamComponent struct {
	ID       string  `db:"id" json:"id"`
	ExamID   string  `db:"exam_id" json:"exam_id"`
	Name     string  `db:"name" json:"name"`
	MaxScore float64 `db:"max_score" json:"max_score"`
}

// ExamWithComponents bundles an exam with its derived components.
type ExamWithComponents struct {
	Exam
	Components []ExamComponent `json:"components"`
}

// ExamComponentResult records a raw score per (student, component).
// Upserts are last-write-wins on that key.
type ExamComponentResult struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	ComponentID string    `db:"component_id" json:"component_id"`
	Score       float64   `db:"score" json:"score"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter narrows exam listings.
type ExamFilter struct {
	ClassID      string
	SubjectID    string
	Semester     string
	AcademicYear string
}
