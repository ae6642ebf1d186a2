package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/course"
)

// psql error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) course.Repository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

type courseRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	SubjectID string    `db:"subject_id"`
	Title     string    `db:"title"`
	Slug      string    `db:"slug"`
	Overview  string    `db:"overview"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row courseRow) toCourse() course.Course {
	return course.Course{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		SubjectID: row.SubjectID,
		Title:     row.Title,
		Slug:      row.Slug,
		Overview:  row.Overview,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func pqErrCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

const courseColumns = `id, owner_id, subject_id, title, slug, overview, created_at, updated_at`

func (repo *courseRepository) CreateSubject(ctx context.Context, sub course.Subject) (course.Subject, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO subject (id, title, slug) VALUES ($1, $2, $3)`, sub.ID, sub.Title, sub.Slug)
	if err != nil {
		return course.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *courseRepository) QuerySubjects(ctx context.Context) ([]course.Subject, error) {
	var subjects []course.Subject
	err := repo.db.SelectContext(ctx, &subjects, `SELECT id, title, slug FROM subject ORDER BY title`)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, id string) (course.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Subject{}, course.ErrSubjectNotFound
	}
	var sub course.Subject
	if err := repo.db.GetContext(ctx, &sub, `SELECT id, title, slug FROM subject WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Subject{}, course.ErrSubjectNotFound
		}
		return course.Subject{}, errors.Wrap(err, "finding subject")
	}
	return sub, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course (id, owner_id, subject_id, title, slug, overview, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.OwnerID, crs.SubjectID, crs.Title, crs.Slug, crs.Overview, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		if pqErrCode(err) == pqUniqueViolation {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
	}

	q := `SELECT c.id, c.owner_id, c.subject_id, c.title, c.slug, c.overview, c.created_at, c.updated_at FROM course c`
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StudentID != "" {
		q += ` JOIN student_course sc ON sc.course_id = c.id AND sc.student_id = ` + arg(filter.StudentID)
	}
	if filter.ID != "" {
		conds = append(conds, `c.id = `+arg(filter.ID))
	}
	if filter.OwnerID != "" {
		conds = append(conds, `c.owner_id = `+arg(filter.OwnerID))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}

	var row courseRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := `SELECT c.id, c.owner_id, c.subject_id, c.title, c.slug, c.overview, c.created_at, c.updated_at FROM course c`
	var conds []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StudentID != "" {
		q += ` JOIN student_course sc ON sc.course_id = c.id AND sc.student_id = ` + arg(filter.StudentID)
	}
	if filter.OwnerID != "" {
		conds = append(conds, `c.owner_id = `+arg(filter.OwnerID))
	}
	if filter.SubjectID != "" {
		conds = append(conds, `c.subject_id = `+arg(filter.SubjectID))
	}
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY c.created_at DESC`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if _, err := uuid.Parse(crs.ID); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE course SET
			subject_id = COALESCE(NULLIF($3, '')::uuid, subject_id),
			title      = COALESCE(NULLIF($4, ''), title),
			slug       = COALESCE(NULLIF($5, ''), slug),
			overview   = COALESCE(NULLIF($6, ''), overview),
			updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+courseColumns,
		crs.ID, crs.OwnerID, crs.SubjectID, crs.Title, crs.Slug, crs.Overview,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		if pqErrCode(err) == pqUniqueViolation {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id, ownerID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	// single atomic set-membership add; re-adding is a no-op
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO student_course (course_id, student_id, enrolled_at) VALUES ($1, $2, now())
		 ON CONFLICT (course_id, student_id) DO NOTHING`,
		courseID, studentID,
	)
	if err != nil {
		// course deleted between lookup and add
		if pqErrCode(err) == pqForeignKeyViolation {
			return course.ErrNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}
