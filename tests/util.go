package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo course.Repository, title, slug string) course.Subject {
	t.Helper()

	sub, err := repo.CreateSubject(context.Background(), course.Subject{Title: title, Slug: slug})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	owner user.User,
	sub course.Subject,
	title, slug, overview string,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		OwnerID:   owner.ID,
		SubjectID: sub.ID,
		Title:     title,
		Slug:      slug,
		Overview:  overview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}
