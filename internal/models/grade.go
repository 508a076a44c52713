package models

import "time"

// AcademicRecord is the final grade for one (student, exam) pair. Subject,
// semester and academic year are copied from the exam at record time.
type AcademicRecord struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ExamID       string    `db:"exam_id" json:"exam_id"`
	Grade        string    `db:"grade" json:"grade"`
	Semester     string    `db:"semester" json:"semester"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GradeFilter narrows academic record listings. StudentIDs and SubjectIDs are
// filled by the service layer (class roster resolution, teacher scoping) and
// are not caller-supplied.
type GradeFilter struct {
	StudentID    string
	ClassID      string
	SubjectID    string
	ExamID       string
	Semester     string
	AcademicYear string
	StudentIDs   []string
	SubjectIDs   []string
}

// ReportCardGrade joins an academic record with its exam metadata.
type ReportCardGrade struct {
	SubjectID    string  `db:"subject_id" json:"subject_id"`
	ExamID       string  `db:"exam_id" json:"exam_id"`
	ExamName     string  `db:"exam_name" json:"exam_name"`
	Grade        string  `db:"grade" json:"grade"`
	MaxScore     float64 `db:"max_score" json:"max_score"`
	Semester     string  `db:"semester" json:"semester"`
	AcademicYear string  `db:"academic_year" json:"academic_year"`
}

// ReportCard is the per-student report assembled from grades and attendance.
type ReportCard struct {
	Student    Student           `json:"student"`
	Grades     []ReportCardGrade `json:"grades"`
	Attendance AttendanceSummary `json:"attendance"`
}

// SubjectAverage is the numeric average of parsed grade values for a subject.
// Non-numeric grades are excluded from the average, not treated as zero.
type SubjectAverage struct {
	SubjectID string `json:"subject_id"`
	Average   string `json:"average"`
	Graded    int    `json:"graded"`
}

// ClassReportRow pairs a roster student with their attendance counts.
type ClassReportRow struct {
	Student    Student           `json:"student"`
	Attendance AttendanceSummary `json:"attendance"`
}

// ClassReport aggregates a class roster with subject averages.
type ClassReport struct {
	Class           Class            `json:"class"`
	SubjectAverages []SubjectAverage `json:"subject_averages"`
	Students        []ClassReportRow `json:"students"`
}
