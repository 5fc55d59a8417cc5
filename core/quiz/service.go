package quiz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound             = core.NewError(core.CodeNotFound, "quiz not found")
	ErrAttemptLimitExceeded = core.NewError(core.CodeAttemptLimitExceeded, "maximum number of attempts reached")
	ErrNoPoints             = core.NewError(core.CodeInvalidConfiguration, "quiz questions are worth 0 points in total")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id string) (Quiz, error)
		QueryQuizzes(ctx context.Context, courseID string) ([]Quiz, error)
		CountAttempts(ctx context.Context, quizID, studentID string) (int, error)
		// AddAttempt appends a to the log. It fails with core.ErrConcurrentUpdate if the student already has an
		// attempt numbered a.AttemptNumber.
		AddAttempt(ctx context.Context, a Attempt) (Attempt, error)
		QueryAttempts(ctx context.Context, quizID string, filter AttemptFilter, ordering []core.DBOrdering) ([]Attempt, error)
	}

	Service struct {
		repo  Repository
		locks core.KeyedMutex
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nq NewQuiz) (Quiz, error) {
	nq.applyDefaults()
	q := Quiz{
		ID:                  nq.ID,
		CourseID:            nq.CourseID,
		ModuleID:            nq.ModuleID,
		Title:               nq.Title,
		Description:         nq.Description,
		Questions:           make([]Question, 0, len(nq.Questions)),
		TimeLimitMinutes:    nq.TimeLimitMinutes,
		PassingScorePercent: nq.PassingScorePercent,
		MaxAttempts:         nq.MaxAttempts,
		CreatedAt:           nowFunc().UTC(),
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	for _, nqn := range nq.Questions {
		q.Questions = append(q.Questions, Question{
			Text:          core.CleanString(nqn.Text),
			Options:       nqn.Options,
			CorrectOption: nqn.CorrectOption,
			Points:        *nqn.Points,
			Explanation:   nqn.Explanation,
		})
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) Get(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Quiz, error) {
	return svc.repo.QueryQuizzes(ctx, courseID)
}

// RecordAttempt grades and appends an attempt, unless the student has used all of the quiz attempts.
// The cap check, the grading and the append are atomic per (quiz, student): concurrent submissions are
// serialized in process, and a lost insert race against another process is re-checked from the cap.
func (svc *Service) RecordAttempt(ctx context.Context, quizID, studentID string, answers []int) (AttemptResult, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptResult{}, errors.Wrap(err, "getting quiz")
	}

	unlock := svc.locks.Lock(quizID + "/" + studentID)
	defer unlock()

	for try := 1; ; try++ {
		count, err := svc.repo.CountAttempts(ctx, quizID, studentID)
		if err != nil {
			return AttemptResult{}, errors.Wrap(err, "counting attempts")
		}
		if count >= q.MaxAttempts {
			return AttemptResult{}, ErrAttemptLimitExceeded
		}

		grade, err := Grade(q, answers)
		if err != nil {
			return AttemptResult{}, err
		}

		a, err := svc.repo.AddAttempt(ctx, Attempt{
			QuizID:          quizID,
			StudentID:       studentID,
			AttemptNumber:   count + 1,
			ScorePercent:    grade.ScorePercent,
			Passed:          grade.Passed,
			AnsweredOptions: answers,
			CompletedAt:     nowFunc().UTC(),
		})
		if err != nil {
			if errors.Cause(err) == core.ErrConcurrentUpdate && try < core.MaxWriteAttempts {
				continue
			}
			return AttemptResult{}, errors.Wrap(err, "adding attempt")
		}

		return AttemptResult{
			QuizID:            a.QuizID,
			StudentID:         a.StudentID,
			AttemptNumber:     a.AttemptNumber,
			ScorePercent:      a.ScorePercent,
			Passed:            a.Passed,
			MaxAttempts:       q.MaxAttempts,
			AttemptsRemaining: q.MaxAttempts - a.AttemptNumber,
			CompletedAt:       a.CompletedAt,
		}, nil
	}
}

// Results returns the attempts of every student of the quiz.
func (svc *Service) Results(ctx context.Context, quizID string, ordering []core.DBOrdering) ([]Attempt, error) {
	if _, err := svc.repo.GetQuiz(ctx, quizID); err != nil {
		return nil, errors.Wrap(err, "getting quiz")
	}
	return svc.repo.QueryAttempts(ctx, quizID, AttemptFilter{}, cleanOrdering(ordering))
}

// cleanOrdering drops the orderings on unknown fields.
func cleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, field := range AttemptOrderingFields {
			if ord.Field == field {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}

func (svc *Service) PassingAttempts(ctx context.Context, quizID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, quizID, AttemptFilter{PassedOnly: true}, nil)
}

func (svc *Service) StudentAttempts(ctx context.Context, quizID, studentID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, quizID, AttemptFilter{StudentID: studentID}, nil)
}
