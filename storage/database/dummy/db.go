package dummydb

import (
	"sync"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

type (
	DB struct {
		user       *userTable
		subject    *subjectTable
		course     *courseTable
		enrollment *enrollmentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*course.Subject
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
		seq   int // insertion order, for stable newest-first listings
		order map[string]int
	}

	// enrollmentTable is the Student<->Course membership set.
	enrollmentTable struct {
		sync.RWMutex
		table map[enrollmentKey]struct{}
	}

	enrollmentKey struct {
		courseID  string
		studentID string
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		subject:    &subjectTable{table: make(map[string]*course.Subject)},
		course:     &courseTable{table: make(map[string]*course.Course), order: make(map[string]int)},
		enrollment: &enrollmentTable{table: make(map[enrollmentKey]struct{})},
	}
}
