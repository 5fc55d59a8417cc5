package learning

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/quiz"
)

// Synchronizer propagates passing quiz scores from the attempt log to the course progress records.
// Propagation is at least once; the progress record dedupes scores on (quiz, attempt number).
type Synchronizer struct {
	courses *course.Service
}

func NewSynchronizer(courses *course.Service) *Synchronizer {
	return &Synchronizer{courses: courses}
}

// OnQuizPassed records a passing attempt on the progress record of the student in the quiz course.
// It fails with course.ErrNotFound if the course is gone and course.ErrNotEnrolled if the student has no
// progress record; the attempt itself is left untouched either way.
func (s *Synchronizer) OnQuizPassed(ctx context.Context, q quiz.Quiz, studentID string, score float64, attemptNumber int) (course.Enrollment, error) {
	enr, err := s.courses.RecordQuizScore(ctx, q.CourseID, studentID, course.QuizScore{
		QuizID:        q.ID,
		Score:         score,
		AttemptNumber: attemptNumber,
	})
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "recording quiz score")
	}
	return enr, nil
}
