package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz}
}

func copyQuiz(q quiz.Quiz) quiz.Quiz {
	q.Questions = append([]quiz.Question(nil), q.Questions...)
	return q
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q = copyQuiz(q)
	repo.db.table[q.ID] = &q
	return copyQuiz(q), nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id string) (quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.table[id]; ok {
		return copyQuiz(*q), nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, courseID string) ([]quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quizzes := make([]quiz.Quiz, 0)
	for _, q := range repo.db.table {
		if courseID == "" || q.CourseID == courseID {
			quizzes = append(quizzes, copyQuiz(*q))
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (repo *quizRepository) CountAttempts(_ context.Context, quizID, studentID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, a := range repo.db.attempts[quizID] {
		if a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (repo *quizRepository) AddAttempt(_ context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[a.QuizID]; !ok {
		return quiz.Attempt{}, quiz.ErrNotFound
	}
	for _, stored := range repo.db.attempts[a.QuizID] {
		if stored.StudentID == a.StudentID && stored.AttemptNumber == a.AttemptNumber {
			return quiz.Attempt{}, core.ErrConcurrentUpdate
		}
	}
	a.AnsweredOptions = append([]int{}, a.AnsweredOptions...)
	repo.db.attempts[a.QuizID] = append(repo.db.attempts[a.QuizID], a)
	return a, nil
}

func (repo *quizRepository) QueryAttempts(
	_ context.Context,
	quizID string,
	filter quiz.AttemptFilter,
	ordering []core.DBOrdering,
) ([]quiz.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]quiz.Attempt, 0)
	for _, a := range repo.db.attempts[quizID] {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.PassedOnly && !a.Passed {
			continue
		}
		a.AnsweredOptions = append([]int{}, a.AnsweredOptions...)
		attempts = append(attempts, a)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "completed_at", Ascending: true}}
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareAttempts(attempts[i], attempts[j], ord.Field); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	})
	return attempts, nil
}

func compareAttempts(a, b quiz.Attempt, field string) int {
	switch field {
	case "student_id":
		return strings.Compare(a.StudentID, b.StudentID)
	case "attempt_number":
		return a.AttemptNumber - b.AttemptNumber
	case "score_percent":
		switch {
		case a.ScorePercent < b.ScorePercent:
			return -1
		case a.ScorePercent > b.ScorePercent:
			return 1
		}
	case "completed_at":
		switch {
		case a.CompletedAt.Before(b.CompletedAt):
			return -1
		case a.CompletedAt.After(b.CompletedAt):
			return 1
		}
	}
	return 0
}
