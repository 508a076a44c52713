package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/school-core-api/internal/models"
	appErrors "github.com/noah-isme/school-core-api/pkg/errors"
)

type fakeStudentDirectory struct {
	students map[string]*models.Student
	rosters  map[string][]models.Student
	teachers map[string]*models.Teacher
}

func (f *fakeStudentDirectory) Student(ctx context.Context, rctx models.RequestContext, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentDirectory) StudentsByClass(ctx context.Context, rctx models.RequestContext, classID string) ([]models.Student, error) {
	return f.rosters[classID], nil
}

func (f *fakeStudentDirectory) TeacherByUser(ctx context.Context, rctx models.RequestContext, userID string) (*models.Teacher, error) {
	if t, ok := f.teachers[userID]; ok {
		return t, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

type fakeClassDirectory struct {
	classes  map[string]*models.Class
	subjects map[string]*models.Subject
}

func (f *fakeClassDirectory) Class(ctx context.Context, rctx models.RequestContext, id string) (*models.Class, error) {
	if c, ok := f.classes[id]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
}

func (f *fakeClassDirectory) Subject(ctx context.Context, rctx models.RequestContext, id string) (*models.Subject, error) {
	if s, ok := f.subjects[id]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
}

func (f *fakeClassDirectory) ClassesByFormTeacher(ctx context.Context, rctx models.RequestContext, teacherID string) ([]models.Class, error) {
	ids := make([]string, 0, len(f.classes))
	for id := range f.classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []models.Class
	for _, id := range ids {
		if f.classes[id].FormTeacherID == teacherID {
			out = append(out, *f.classes[id])
		}
	}
	return out, nil
}

type fakeProfileDirectory struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfileDirectory) Profile(ctx context.Context, rctx models.RequestContext, id string) (*models.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
}

type fakeAssignments struct {
	// keys are teacher/subject/class
	assigned map[string]bool
}

func assignmentKey(teacherID, subjectID, classID string) string {
	return teacherID + "/" + subjectID + "/" + classID
}

func (f *fakeAssignments) Exists(ctx context.Context, tenantID, teacherID, subjectID, classID string) (bool, error) {
	return f.assigned[assignmentKey(teacherID, subjectID, classID)], nil
}

func (f *fakeAssignments) ExistsForClass(ctx context.Context, tenantID, teacherID, classID string) (bool, error) {
	for key := range f.assigned {
		parts := strings.Split(key, "/")
		if parts[0] == teacherID && parts[2] == classID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssignments) ListAssignments(ctx context.Context, tenantID, teacherID string) ([]models.TeacherSubject, error) {
	keys := make([]string, 0, len(f.assigned))
	for key := range f.assigned {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var assignments []models.TeacherSubject
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if parts[0] == teacherID {
			assignments = append(assignments, models.TeacherSubject{
				TeacherID: parts[0],
				SubjectID: parts[1],
				ClassID:   parts[2],
				TenantID:  tenantID,
			})
		}
	}
	return assignments, nil
}

type fakeParentLinks struct {
	links map[string]bool
}

func (f *fakeParentLinks) Exists(ctx context.Context, tenantID, parentID, studentID string) (bool, error) {
	return f.links[parentID+"/"+studentID], nil
}

type fakeCache struct {
	store    map[string][]byte
	deleted  []string
	setCount int
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.store == nil {
		f.store = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	f.setCount++
	return nil
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	return nil
}
