package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Content types
const (
	ContentVideo    = "video"
	ContentDocument = "document"
	ContentQuiz     = "quiz"
)

// Enrollment statuses
const (
	EnrollmentEnrolled   = "enrolled"
	EnrollmentInProgress = "in_progress"
	EnrollmentCompleted  = "completed"
)

type Course struct {
	ID           string    `json:"id"`
	InstructorID string    `json:"instructor_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	ModuleIDs    []string  `json:"module_ids"` // ordered
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c Course) HasModule(moduleID string) bool {
	for _, id := range c.ModuleIDs {
		if id == moduleID {
			return true
		}
	}
	return false
}

type ContentItem struct {
	Type            string `json:"type"`
	Title           string `json:"title"`
	URL             string `json:"url,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	QuizID          string `json:"quiz_id,omitempty"`
}

type Module struct {
	ID       string        `json:"id"`
	CourseID string        `json:"course_id"`
	Title    string        `json:"title"`
	Order    int           `json:"order"`
	Content  []ContentItem `json:"content"`
}

type CompletedModule struct {
	ModuleID    string    `json:"module_id"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// QuizScore is a passing quiz score propagated from the quiz attempt log.
type QuizScore struct {
	QuizID        string    `json:"quiz_id"`
	Score         float64   `json:"score"`
	AttemptNumber int       `json:"attempt_number"`
	RecordedAt    time.Time `json:"recorded_at"` // UTC
}

// Enrollment is the progress record of a student in a course. It exists iff the student is enrolled.
type Enrollment struct {
	CourseID         string            `json:"course_id"`
	StudentID        string            `json:"student_id"`
	EnrolledAt       time.Time         `json:"enrolled_at"` // UTC
	CompletedModules []CompletedModule `json:"completed_modules"`
	QuizScores       []QuizScore       `json:"quiz_scores"`
	OverallProgress  float64           `json:"overall_progress"` // percentage in [0, 100]
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Version          int64             `json:"-"`
}

func (e Enrollment) Status() string {
	switch {
	case e.OverallProgress >= 100:
		return EnrollmentCompleted
	case len(e.CompletedModules) > 0 || len(e.QuizScores) > 0:
		return EnrollmentInProgress
	default:
		return EnrollmentEnrolled
	}
}

func (e Enrollment) HasCompleted(moduleID string) bool {
	for _, cm := range e.CompletedModules {
		if cm.ModuleID == moduleID {
			return true
		}
	}
	return false
}

func (e Enrollment) HasQuizScore(quizID string, attemptNumber int) bool {
	for _, qs := range e.QuizScores {
		if qs.QuizID == quizID && qs.AttemptNumber == attemptNumber {
			return true
		}
	}
	return false
}

// clone returns a copy of e that does not share its slices.
func (e Enrollment) clone() Enrollment {
	c := e
	c.CompletedModules = append(make([]CompletedModule, 0, len(e.CompletedModules)+1), e.CompletedModules...)
	c.QuizScores = append(make([]QuizScore, 0, len(e.QuizScores)+1), e.QuizScores...)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

type EnrollmentFilter struct {
	CourseID  string
	StudentID string
}

type QueryFilter struct {
	InstructorID string
	Status       string
}

// NewContentItem contains information needed to add content to a module.
type NewContentItem struct {
	Type            string `json:"type" yaml:"type" validate:"required,contenttype"`
	Title           string `json:"title" yaml:"title" validate:"required,notblank"`
	URL             string `json:"url" yaml:"url" validate:"omitempty,url"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes" validate:"gte=0"`
	QuizID          string `json:"quiz_id" yaml:"quiz_id"`
}

type NewModule struct {
	Title   string           `json:"title" yaml:"title" validate:"required,notblank"`
	Content []NewContentItem `json:"content" yaml:"content" validate:"dive"`
}

// NewCourse contains information needed to create a new Course with its modules.
type NewCourse struct {
	ID           string      `json:"id" yaml:"id"`
	InstructorID string      `json:"instructor_id" yaml:"instructor_id" validate:"required"`
	Title        string      `json:"title" yaml:"title" validate:"required,notblank"`
	Description  string      `json:"description" yaml:"description"`
	Status       string      `json:"status" yaml:"status" validate:"omitempty,oneof=draft published archived"`
	Modules      []NewModule `json:"modules" yaml:"modules" validate:"required,min=1,dive"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	if nc.Status == "" {
		nc.Status = StatusDraft
	}
	for i := range nc.Modules {
		nc.Modules[i].Title = core.CleanString(nc.Modules[i].Title)
	}
	return validate.Struct(nc)
}
