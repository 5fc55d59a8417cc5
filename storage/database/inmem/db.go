package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
)

type (
	// DB is a process local store, used in DEV with the "memory" engine and in tests.
	DB struct {
		user   *userTable
		course *courseTable
		quiz   *quizTable
	}

	userTable struct {
		sync.RWMutex
		table        map[string]*user.User
		certificates map[string]user.Certificate // {studentID/courseID: Certificate}
	}

	courseTable struct {
		sync.RWMutex
		table       map[string]*course.Course
		modules     map[string][]course.Module    // {courseID: modules}
		enrollments map[string]*course.Enrollment // {courseID/studentID: Enrollment}
	}

	quizTable struct {
		sync.RWMutex
		table    map[string]*quiz.Quiz
		attempts map[string][]quiz.Attempt // {quizID: attempts}
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			table:        make(map[string]*user.User),
			certificates: make(map[string]user.Certificate),
		},
		course: &courseTable{
			table:       make(map[string]*course.Course),
			modules:     make(map[string][]course.Module),
			enrollments: make(map[string]*course.Enrollment),
		},
		quiz: &quizTable{
			table:    make(map[string]*quiz.Quiz),
			attempts: make(map[string][]quiz.Attempt),
		},
	}
	return db, nil
}

func pairKey(a, b string) string {
	return a + "/" + b
}
