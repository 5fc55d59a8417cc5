package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/storage/database"
)

type quizRepository struct {
	db core.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db core.DB) quiz.Repository {
	return &quizRepository{db: db}
}

type quizRow struct {
	ID                  string    `db:"id"`
	CourseID            string    `db:"course_id"`
	ModuleID            string    `db:"module_id"`
	Title               string    `db:"title"`
	Description         string    `db:"description"`
	Questions           string    `db:"questions"`
	TimeLimitMinutes    int       `db:"time_limit_minutes"`
	PassingScorePercent float64   `db:"passing_score_percent"`
	MaxAttempts         int       `db:"max_attempts"`
	CreatedAt           time.Time `db:"created_at"`
}

func (r quizRow) toQuiz() (quiz.Quiz, error) {
	q := quiz.Quiz{
		ID:                  r.ID,
		CourseID:            r.CourseID,
		ModuleID:            r.ModuleID,
		Title:               r.Title,
		Description:         r.Description,
		Questions:           []quiz.Question{},
		TimeLimitMinutes:    r.TimeLimitMinutes,
		PassingScorePercent: r.PassingScorePercent,
		MaxAttempts:         r.MaxAttempts,
		CreatedAt:           utc(r.CreatedAt),
	}
	if err := fromJSON(r.Questions, &q.Questions); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

type attemptRow struct {
	QuizID          string    `db:"quiz_id"`
	StudentID       string    `db:"student_id"`
	AttemptNumber   int       `db:"attempt_number"`
	ScorePercent    float64   `db:"score_percent"`
	Passed          bool      `db:"passed"`
	AnsweredOptions string    `db:"answered_options"`
	CompletedAt     time.Time `db:"completed_at"`
}

func (r attemptRow) toAttempt() (quiz.Attempt, error) {
	a := quiz.Attempt{
		QuizID:          r.QuizID,
		StudentID:       r.StudentID,
		AttemptNumber:   r.AttemptNumber,
		ScorePercent:    r.ScorePercent,
		Passed:          r.Passed,
		AnsweredOptions: []int{},
		CompletedAt:     utc(r.CompletedAt),
	}
	if err := fromJSON(r.AnsweredOptions, &a.AnsweredOptions); err != nil {
		return quiz.Attempt{}, err
	}
	return a, nil
}

const (
	quizColumns = `id, course_id, module_id, title, description, questions, time_limit_minutes,
		passing_score_percent, max_attempts, created_at`
	attemptColumns = "quiz_id, student_id, attempt_number, score_percent, passed, answered_options, completed_at"
)

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	questions, err := toJSON(q.Questions)
	if err != nil {
		return quiz.Quiz{}, err
	}
	stmt := repo.db.Rebind(`INSERT INTO quizzes (` + quizColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = repo.db.ExecContext(ctx, stmt,
		q.ID, q.CourseID, q.ModuleID, q.Title, q.Description, questions,
		q.TimeLimitMinutes, q.PassingScorePercent, q.MaxAttempts, q.CreatedAt)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var row quizRow
	stmt := repo.db.Rebind(`SELECT ` + quizColumns + ` FROM quizzes WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, stmt, id); err != nil {
		return quiz.Quiz{}, trapNoRows(err, quiz.ErrNotFound)
	}
	return row.toQuiz()
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context, courseID string) ([]quiz.Quiz, error) {
	var (
		rows []quizRow
		args []interface{}
	)
	stmt := `SELECT ` + quizColumns + ` FROM quizzes`
	if courseID != "" {
		stmt += ` WHERE course_id = ?`
		args = append(args, courseID)
	}
	stmt += ` ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(stmt), args...); err != nil {
		return nil, errors.Wrap(err, "selecting quizzes")
	}

	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		q, err := r.toQuiz()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

func (repo *quizRepository) CountAttempts(ctx context.Context, quizID, studentID string) (int, error) {
	var count int
	stmt := repo.db.Rebind(`SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = ? AND student_id = ?`)
	if err := repo.db.GetContext(ctx, &count, stmt, quizID, studentID); err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return count, nil
}

func (repo *quizRepository) AddAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	if _, err := repo.GetQuiz(ctx, a.QuizID); err != nil {
		return quiz.Attempt{}, err
	}
	if a.AnsweredOptions == nil {
		a.AnsweredOptions = []int{}
	}
	answers, err := toJSON(a.AnsweredOptions)
	if err != nil {
		return quiz.Attempt{}, err
	}

	stmt := repo.db.Rebind(`INSERT INTO quiz_attempts (` + attemptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = repo.db.ExecContext(ctx, stmt,
		a.QuizID, a.StudentID, a.AttemptNumber, a.ScorePercent, a.Passed, answers, a.CompletedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return quiz.Attempt{}, core.ErrConcurrentUpdate
		}
		return quiz.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return a, nil
}

// orderBy builds the ORDER BY clause of the attempts, ignoring unknown fields.
func orderBy(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		for _, field := range quiz.AttemptOrderingFields {
			if ord.Field == field {
				clauses = append(clauses, ord.String())
				break
			}
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "completed_at ASC")
	}
	clauses = append(clauses, "student_id ASC", "attempt_number ASC")
	return strings.Join(clauses, ", ")
}

func (repo *quizRepository) QueryAttempts(
	ctx context.Context,
	quizID string,
	filter quiz.AttemptFilter,
	ordering []core.DBOrdering,
) ([]quiz.Attempt, error) {
	conds := []string{"quiz_id = ?"}
	args := []interface{}{quizID}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.PassedOnly {
		conds = append(conds, "passed = ?")
		args = append(args, true)
	}
	stmt := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY ` + orderBy(ordering)

	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(stmt), args...); err != nil {
		return nil, errors.Wrap(err, "selecting attempts")
	}
	attempts := make([]quiz.Attempt, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAttempt()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}
