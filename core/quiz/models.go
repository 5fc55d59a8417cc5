package quiz

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Defaults applied to new quizzes.
const (
	DefaultTimeLimitMinutes    = 30
	DefaultPassingScorePercent = 70
	DefaultMaxAttempts         = 3
	DefaultPoints              = 1
)

type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int      `json:"points"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Quiz struct {
	ID                  string     `json:"id"`
	CourseID            string     `json:"course_id"`
	ModuleID            string     `json:"module_id,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Questions           []Question `json:"questions"`
	TimeLimitMinutes    int        `json:"time_limit_minutes"`
	PassingScorePercent float64    `json:"passing_score_percent"`
	MaxAttempts         int        `json:"max_attempts"`
	CreatedAt           time.Time  `json:"created_at"` // UTC
}

func (q Quiz) TotalPoints() int {
	var total int
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// StudentQuestion is a Question without its answer.
type StudentQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// StudentQuiz is the view of a Quiz handed to students taking it.
type StudentQuiz struct {
	ID                  string            `json:"id"`
	CourseID            string            `json:"course_id"`
	ModuleID            string            `json:"module_id,omitempty"`
	Title               string            `json:"title"`
	Description         string            `json:"description,omitempty"`
	Questions           []StudentQuestion `json:"questions"`
	TimeLimitMinutes    int               `json:"time_limit_minutes"`
	PassingScorePercent float64           `json:"passing_score_percent"`
	MaxAttempts         int               `json:"max_attempts"`
}

func (q Quiz) ForStudent() StudentQuiz {
	questions := make([]StudentQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, StudentQuestion{
			Text:    question.Text,
			Options: question.Options,
			Points:  question.Points,
		})
	}
	return StudentQuiz{
		ID:                  q.ID,
		CourseID:            q.CourseID,
		ModuleID:            q.ModuleID,
		Title:               q.Title,
		Description:         q.Description,
		Questions:           questions,
		TimeLimitMinutes:    q.TimeLimitMinutes,
		PassingScorePercent: q.PassingScorePercent,
		MaxAttempts:         q.MaxAttempts,
	}
}

// Attempt is an entry of the append-only attempt log of a quiz.
type Attempt struct {
	QuizID          string    `json:"quiz_id"`
	StudentID       string    `json:"student_id"`
	AttemptNumber   int       `json:"attempt_number"`
	ScorePercent    float64   `json:"score_percent"`
	Passed          bool      `json:"passed"`
	AnsweredOptions []int     `json:"answered_options"`
	CompletedAt     time.Time `json:"completed_at"` // UTC
}

// AttemptResult is returned to the student after a graded submission.
type AttemptResult struct {
	QuizID            string    `json:"quiz_id"`
	StudentID         string    `json:"student_id"`
	AttemptNumber     int       `json:"attempt_number"`
	ScorePercent      float64   `json:"score_percent"`
	Passed            bool      `json:"passed"`
	MaxAttempts       int       `json:"max_attempts"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	CompletedAt       time.Time `json:"completed_at"`
}

// AttemptOrderingFields are the fields attempts can be ordered by.
var AttemptOrderingFields = []string{"student_id", "attempt_number", "score_percent", "completed_at"}

type AttemptFilter struct {
	StudentID  string
	PassedOnly bool
}

// NewQuestion contains information needed to create a Question. Points defaults to DefaultPoints.
type NewQuestion struct {
	Text          string   `json:"text" yaml:"text" validate:"required,notblank"`
	Options       []string `json:"options" yaml:"options" validate:"min=2,dive,notblank"`
	CorrectOption int      `json:"correct_option" yaml:"correct_option" validate:"gte=0"`
	Points        *int     `json:"points" yaml:"points" validate:"omitempty,gte=0"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// NewQuiz contains information needed to create a Quiz. Zero values are replaced by the defaults.
type NewQuiz struct {
	ID                  string        `json:"id" yaml:"id"`
	CourseID            string        `json:"course_id" yaml:"course_id" validate:"required"`
	ModuleID            string        `json:"module_id" yaml:"module_id"`
	Title               string        `json:"title" yaml:"title" validate:"required,notblank"`
	Description         string        `json:"description" yaml:"description"`
	Questions           []NewQuestion `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
	TimeLimitMinutes    int           `json:"time_limit_minutes" yaml:"time_limit_minutes" validate:"gte=0"`
	PassingScorePercent float64       `json:"passing_score_percent" yaml:"passing_score_percent" validate:"gte=0,lte=100"`
	MaxAttempts         int           `json:"max_attempts" yaml:"max_attempts" validate:"gte=0"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	nq.applyDefaults()
	return validate.Struct(nq)
}

func (nq *NewQuiz) applyDefaults() {
	if nq.TimeLimitMinutes == 0 {
		nq.TimeLimitMinutes = DefaultTimeLimitMinutes
	}
	if nq.PassingScorePercent == 0 {
		nq.PassingScorePercent = DefaultPassingScorePercent
	}
	if nq.MaxAttempts == 0 {
		nq.MaxAttempts = DefaultMaxAttempts
	}
	for i := range nq.Questions {
		if nq.Questions[i].Points == nil {
			pts := DefaultPoints
			nq.Questions[i].Points = &pts
		}
	}
}

// SubmitAttempt is the body of a quiz submission.
type SubmitAttempt struct {
	Answers []int `json:"answers" validate:"required"`
}
