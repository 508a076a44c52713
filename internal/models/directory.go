package models

import "time"

// Student statuses as reported by the student directory.
const StudentStatusActive = "active"

// Student is the student directory's representation of a learner.
type Student struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ClassID   string `json:"classId"`
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Teacher is the directory identity behind a teacher-role user.
type Teacher struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// Class is the classroom directory's view of a class. FormTeacherID grants
// blanket read authorization over the class in reports and attendance.
type Class struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FormTeacherID string `json:"formTeacherId"`
}

// Subject is the classroom directory's view of a subject.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is the profile service's view of a user.
type Profile struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// TeacherSubject authorizes a teacher to teach a subject in a class.
type TeacherSubject struct {
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParentStudent links a parent user to a student within a tenant.
type ParentStudent struct {
	ID        string    `db:"id" json:"id"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
