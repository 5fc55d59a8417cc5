package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound          = core.NewError(core.CodeNotFound, "course not found")
	ErrModuleNotFound    = core.NewError(core.CodeNotFound, "module not found in course")
	ErrNotEnrolled       = core.NewError(core.CodeNotEnrolled, "student is not enrolled in this course")
	ErrAlreadyEnrolled   = core.NewError(core.CodeAlreadyEnrolled, "student is already enrolled in this course")
	ErrNoModules         = core.NewError(core.CodeInvalidConfiguration, "course has no modules")
	ErrEmptyEnrollmentID = errors.New("course and student ids are required")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, modules []Module) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		QueryModules(ctx context.Context, courseID string) ([]Module, error)

		// CreateEnrollment fails with ErrAlreadyEnrolled if the student is already enrolled.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// GetEnrollment fails with ErrNotEnrolled if there is no such enrollment.
		GetEnrollment(ctx context.Context, courseID, studentID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
		// UpdateEnrollment stores enr if the stored version still is enr.Version, and bumps the version.
		// Completed modules and quiz scores are only ever added. It fails with core.ErrConcurrentUpdate
		// when the stored version moved on.
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, []Module, error) {
	now := nowFunc().UTC()
	crs := Course{
		ID:           nc.ID,
		InstructorID: nc.InstructorID,
		Title:        nc.Title,
		Description:  nc.Description,
		Status:       nc.Status,
		ModuleIDs:    make([]string, 0, len(nc.Modules)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	if crs.Status == "" {
		crs.Status = StatusDraft
	}

	modules := make([]Module, 0, len(nc.Modules))
	for i, nm := range nc.Modules {
		mod := Module{
			ID:       uuid.New().String(),
			CourseID: crs.ID,
			Title:    nm.Title,
			Order:    i + 1,
			Content:  make([]ContentItem, 0, len(nm.Content)),
		}
		for _, item := range nm.Content {
			mod.Content = append(mod.Content, ContentItem{
				Type:            item.Type,
				Title:           core.CleanString(item.Title),
				URL:             item.URL,
				DurationMinutes: item.DurationMinutes,
				QuizID:          item.QuizID,
			})
		}
		modules = append(modules, mod)
		crs.ModuleIDs = append(crs.ModuleIDs, mod.ID)
	}

	crs, err := svc.repo.CreateCourse(ctx, crs, modules)
	if err != nil {
		return Course{}, nil, errors.Wrap(err, "creating course")
	}
	return crs, modules, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) Modules(ctx context.Context, courseID string) ([]Module, error) {
	return svc.repo.QueryModules(ctx, courseID)
}

// Enroll creates the (empty) progress record of the student. Only published courses accept enrollments.
func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	if courseID == "" || studentID == "" {
		return Enrollment{}, ErrEmptyEnrollmentID
	}
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if crs.Status != StatusPublished {
		return Enrollment{}, ErrNotFound
	}

	return svc.repo.CreateEnrollment(ctx, Enrollment{
		CourseID:         courseID,
		StudentID:        studentID,
		EnrolledAt:       nowFunc().UTC(),
		CompletedModules: []CompletedModule{},
		QuizScores:       []QuizScore{},
		Version:          1,
	})
}

func (svc *Service) Progress(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, courseID, studentID)
}

func (svc *Service) Enrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}
