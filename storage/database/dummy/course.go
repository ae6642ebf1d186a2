package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/educa/core/course"
)

type courseRepository struct {
	subjects    *subjectTable
	courses     *courseTable
	enrollments *enrollmentTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{
		subjects:    db.subject,
		courses:     db.course,
		enrollments: db.enrollment,
	}
}

// CreateSubject seeds a Subject; the catalog is managed out of band.
func (repo *courseRepository) CreateSubject(_ context.Context, sub course.Subject) (course.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	repo.subjects.table[sub.ID] = &sub
	return sub, nil
}

func (repo *courseRepository) QuerySubjects(_ context.Context) ([]course.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subjects := make([]course.Subject, 0, len(repo.subjects.table))
	for _, sub := range repo.subjects.table {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Title < subjects[j].Title })
	return subjects, nil
}

func (repo *courseRepository) GetSubject(_ context.Context, id string) (course.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if sub, ok := repo.subjects.table[id]; ok {
		return *sub, nil
	}
	return course.Subject{}, course.ErrSubjectNotFound
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	for _, c := range repo.courses.table {
		if c.Slug == crs.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}

	crs.ID = uuid.New().String()
	repo.courses.seq++
	repo.courses.order[crs.ID] = repo.courses.seq
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) isEnrolled(courseID, studentID string) bool {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	_, ok := repo.enrollments.table[enrollmentKey{courseID: courseID, studentID: studentID}]
	return ok
}

func (repo *courseRepository) matches(crs course.Course, id, ownerID, studentID string) bool {
	if id != "" && crs.ID != id {
		return false
	}
	if ownerID != "" && crs.OwnerID != ownerID {
		return false
	}
	if studentID != "" && !repo.isEnrolled(crs.ID, studentID) {
		return false
	}
	return true
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	for _, crs := range repo.courses.table {
		if repo.matches(*crs, filter.ID, filter.OwnerID, filter.StudentID) {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	var courses []course.Course
	for _, crs := range repo.courses.table {
		if filter.SubjectID != "" && crs.SubjectID != filter.SubjectID {
			continue
		}
		if repo.matches(*crs, "", filter.OwnerID, filter.StudentID) {
			courses = append(courses, *crs)
		}
	}
	// newest first
	sort.Slice(courses, func(i, j int) bool {
		return repo.courses.order[courses[i].ID] > repo.courses.order[courses[j].ID]
	})
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	origCrs, ok := repo.courses.table[crs.ID]
	if !ok || origCrs.OwnerID != crs.OwnerID {
		return course.Course{}, course.ErrNotFound
	}
	for _, c := range repo.courses.table {
		if c.ID != crs.ID && c.Slug == crs.Slug {
			return course.Course{}, course.ErrSlugExists
		}
	}

	// only save set fields; the owner never changes
	if crs.SubjectID != "" {
		origCrs.SubjectID = crs.SubjectID
	}
	if crs.Title != "" {
		origCrs.Title = crs.Title
	}
	if crs.Slug != "" {
		origCrs.Slug = crs.Slug
	}
	if crs.Overview != "" {
		origCrs.Overview = crs.Overview
	}
	if !crs.UpdatedAt.IsZero() {
		origCrs.UpdatedAt = crs.UpdatedAt
	}

	repo.courses.table[crs.ID] = origCrs
	return *origCrs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id, ownerID string) error {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	crs, ok := repo.courses.table[id]
	if !ok || crs.OwnerID != ownerID {
		return course.ErrNotFound
	}
	delete(repo.courses.table, id)
	delete(repo.courses.order, id)

	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()
	for key := range repo.enrollments.table {
		if key.courseID == id {
			delete(repo.enrollments.table, key)
		}
	}
	return nil
}

func (repo *courseRepository) AddStudent(_ context.Context, courseID, studentID string) error {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	// set-membership add: re-adding is a no-op
	repo.enrollments.table[enrollmentKey{courseID: courseID, studentID: studentID}] = struct{}{}
	return nil
}
