package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func copyCourse(crs course.Course) course.Course {
	crs.ModuleIDs = append([]string(nil), crs.ModuleIDs...)
	return crs
}

func copyEnrollment(enr course.Enrollment) course.Enrollment {
	enr.CompletedModules = append([]course.CompletedModule{}, enr.CompletedModules...)
	enr.QuizScores = append([]course.QuizScore{}, enr.QuizScores...)
	if enr.CompletedAt != nil {
		t := *enr.CompletedAt
		enr.CompletedAt = &t
	}
	return enr
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, modules []course.Module) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs = copyCourse(crs)
	repo.db.table[crs.ID] = &crs
	repo.db.modules[crs.ID] = append([]course.Module(nil), modules...)
	return copyCourse(crs), nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return copyCourse(*crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		if filter.InstructorID != "" && crs.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		courses = append(courses, copyCourse(*crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) QueryModules(_ context.Context, courseID string) ([]course.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.table[courseID]; !ok {
		return nil, course.ErrNotFound
	}
	return append([]course.Module{}, repo.db.modules[courseID]...), nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[enr.CourseID]; !ok {
		return course.Enrollment{}, course.ErrNotFound
	}
	key := pairKey(enr.CourseID, enr.StudentID)
	if _, ok := repo.db.enrollments[key]; ok {
		return course.Enrollment{}, course.ErrAlreadyEnrolled
	}
	enr = copyEnrollment(enr)
	repo.db.enrollments[key] = &enr
	return copyEnrollment(enr), nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, courseID, studentID string) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[pairKey(courseID, studentID)]; ok {
		return copyEnrollment(*enr), nil
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		enrollments = append(enrollments, copyEnrollment(*enr))
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt) })
	return enrollments, nil
}

func (repo *courseRepository) UpdateEnrollment(_ context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(enr.CourseID, enr.StudentID)
	stored, ok := repo.db.enrollments[key]
	if !ok {
		return course.Enrollment{}, course.ErrNotEnrolled
	}
	if stored.Version != enr.Version {
		return course.Enrollment{}, core.ErrConcurrentUpdate
	}
	enr = copyEnrollment(enr)
	enr.Version++
	repo.db.enrollments[key] = &enr
	return copyEnrollment(enr), nil
}
