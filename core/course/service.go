package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSlugExists      = errors.New("a course with this slug already exists")
)

type (
	Repository interface {
		// CreateSubject seeds a Subject; the catalog is managed out of band
		// (admin CLI), not through the public API.
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		// QueryCourses returns matches ordered by creation time, newest first.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		// UpdateCourse writes crs conditionally on (ID, OwnerID); a miss on
		// either is ErrNotFound.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id, ownerID string) error
		// AddStudent links a student to a course; adding an existing link is
		// a no-op. Must be a single atomic upsert.
		AddStudent(ctx context.Context, courseID, studentID string) error
	}

	Service interface {
		Subjects(ctx context.Context) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		List(ctx context.Context, owner user.User) ([]Course, error)
		Get(ctx context.Context, owner user.User, id string) (Course, error)
		Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error)
		Update(ctx context.Context, owner user.User, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, owner user.User, id string) error
		Enroll(ctx context.Context, student user.User, courseID string) error
		EnrolledCourses(ctx context.Context, student user.User) ([]Course, error)
		EnrolledCourse(ctx context.Context, student user.User, id string) (Course, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ScopedRepository narrows a Repository to the Courses owned by one user:
// reads are filtered on the owner and writes have the owner forced. A Course
// owned by someone else is indistinguishable from a missing one (ErrNotFound).
type ScopedRepository struct {
	repo  Repository
	owner user.User
}

func NewScopedRepository(repo Repository, owner user.User) ScopedRepository {
	return ScopedRepository{repo: repo, owner: owner}
}

func (r ScopedRepository) List(ctx context.Context) ([]Course, error) {
	return r.repo.QueryCourses(ctx, QueryFilter{OwnerID: r.owner.ID})
}

func (r ScopedRepository) Get(ctx context.Context, id string) (Course, error) {
	return r.repo.GetCourse(ctx, GetFilter{ID: id, OwnerID: r.owner.ID})
}

func (r ScopedRepository) Create(ctx context.Context, crs Course) (Course, error) {
	crs.OwnerID = r.owner.ID
	return r.repo.CreateCourse(ctx, crs)
}

func (r ScopedRepository) Update(ctx context.Context, crs Course) (Course, error) {
	crs.OwnerID = r.owner.ID
	return r.repo.UpdateCourse(ctx, crs)
}

func (r ScopedRepository) Delete(ctx context.Context, id string) error {
	return r.repo.DeleteCourse(ctx, id, r.owner.ID)
}

func (svc *service) scoped(owner user.User) ScopedRepository {
	return NewScopedRepository(svc.repo, owner)
}

// checkSubject resolves a subject reference, reporting a caller-correctable
// ValidationError when it does not exist.
func (svc *service) checkSubject(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "subject", Error: err.Error()})
		}
		return errors.Wrap(err, "resolving subject")
	}
	return nil
}

func (svc *service) Subjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) List(ctx context.Context, owner user.User) ([]Course, error) {
	return svc.scoped(owner).List(ctx)
}

func (svc *service) Get(ctx context.Context, owner user.User, id string) (Course, error) {
	return svc.scoped(owner).Get(ctx, id)
}

func (svc *service) Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error) {
	if err := svc.checkSubject(ctx, nc.Subject); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		SubjectID: nc.Subject,
		Title:     nc.Title,
		Slug:      nc.Slug,
		Overview:  nc.Overview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := svc.scoped(owner).Create(ctx, crs)
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *service) Update(ctx context.Context, owner user.User, id string, uc UpdateCourse) (Course, error) {
	// unset fields keep their current values
	if uc.Subject != "" {
		if err := svc.checkSubject(ctx, uc.Subject); err != nil {
			return Course{}, err
		}
	}

	crs := Course{
		ID:        id,
		SubjectID: uc.Subject,
		Title:     uc.Title,
		Slug:      uc.Slug,
		Overview:  uc.Overview,
		UpdatedAt: time.Now().UTC(),
	}
	crs, err := svc.scoped(owner).Update(ctx, crs)
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return Course{}, err
	}
	return crs, nil
}

func (svc *service) Delete(ctx context.Context, owner user.User, id string) error {
	return svc.scoped(owner).Delete(ctx, id)
}

// Enroll links a student to any existing course; unlike course management it
// is not ownership-scoped (the catalog is public, only authorship is private).
// Repeated calls succeed and leave a single membership.
func (svc *service) Enroll(ctx context.Context, student user.User, courseID string) error {
	crs, err := svc.repo.GetCourse(ctx, GetFilter{ID: courseID})
	if err != nil {
		return err
	}
	return svc.repo.AddStudent(ctx, crs.ID, student.ID)
}

func (svc *service) EnrolledCourses(ctx context.Context, student user.User) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, QueryFilter{StudentID: student.ID})
}

func (svc *service) EnrolledCourse(ctx context.Context, student user.User, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id, StudentID: student.ID})
}
