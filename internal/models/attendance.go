package models

import "time"

// AttendanceStatus enumerates the recordable attendance states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// AllAttendanceStatuses lists every status in output order. Aggregations must
// emit all four keys even when a count is zero.
var AllAttendanceStatuses = []AttendanceStatus{
	AttendancePresent,
	AttendanceAbsent,
	AttendanceLate,
	AttendanceExcused,
}

// Valid reports whether the status is a known enum member.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// AttendanceRecord is one student's attendance for a (class, subject, date).
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	TenantID   string           `db:"tenant_id" json:"tenant_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ClassID    string           `db:"class_id" json:"class_id"`
	SubjectID  string           `db:"subject_id" json:"subject_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	RecordedBy string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceSummary holds per-status counts with all statuses always present.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
}

// Add increments the counter matching the status.
func (s *AttendanceSummary) Add(status AttendanceStatus, count int) {
	switch status {
	case AttendancePresent:
		s.Present += count
	case AttendanceAbsent:
		s.Absent += count
	case AttendanceLate:
		s.Late += count
	case AttendanceExcused:
		s.Excused += count
	}
}

// AttendanceFilter narrows attendance aggregation queries.
type AttendanceFilter struct {
	StudentID  string
	ClassID    string
	SubjectID  string
	From       *time.Time
	To         *time.Time
	StudentIDs []string
}

// AttendanceStatusCount is one aggregation row grouped by student and status.
type AttendanceStatusCount struct {
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Count     int              `db:"count" json:"count"`
}

// StudentAttendanceReport is one row of the attendance report.
type StudentAttendanceReport struct {
	StudentID  string            `json:"student_id"`
	Attendance AttendanceSummary `json:"attendance"`
}
