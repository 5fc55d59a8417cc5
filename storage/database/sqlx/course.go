package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/storage/database"
)

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID           string    `db:"id"`
	InstructorID string    `db:"instructor_id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type moduleRow struct {
	ID       string `db:"id"`
	CourseID string `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
	Content  string `db:"content"`
}

type enrollmentRow struct {
	CourseID        string     `db:"course_id"`
	StudentID       string     `db:"student_id"`
	EnrolledAt      time.Time  `db:"enrolled_at"`
	OverallProgress float64    `db:"overall_progress"`
	CompletedAt     *time.Time `db:"completed_at"`
	Version         int64      `db:"version"`
}

type completedModuleRow struct {
	ModuleID    string    `db:"module_id"`
	CompletedAt time.Time `db:"completed_at"`
}

type quizScoreRow struct {
	QuizID        string    `db:"quiz_id"`
	AttemptNumber int       `db:"attempt_number"`
	Score         float64   `db:"score"`
	RecordedAt    time.Time `db:"recorded_at"`
}

const (
	courseColumns     = "id, instructor_id, title, description, status, created_at, updated_at"
	enrollmentColumns = "course_id, student_id, enrolled_at, overall_progress, completed_at, version"
)

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, modules []course.Module) (course.Course, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`INSERT INTO courses (` + courseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		_, err := tx.ExecContext(ctx, q,
			crs.ID, crs.InstructorID, crs.Title, crs.Description, crs.Status, crs.CreatedAt, crs.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting course")
		}

		q = tx.Rebind(`INSERT INTO modules (id, course_id, title, position, content) VALUES (?, ?, ?, ?, ?)`)
		for _, mod := range modules {
			content, err := toJSON(mod.Content)
			if err != nil {
				return err
			}
			if _, err = tx.ExecContext(ctx, q, mod.ID, crs.ID, mod.Title, mod.Order, content); err != nil {
				return errors.Wrap(err, "inserting module")
			}
		}
		return nil
	})
	if err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo *courseRepository) moduleIDs(ctx context.Context, courseID string) ([]string, error) {
	ids := make([]string, 0)
	q := repo.db.Rebind(`SELECT id FROM modules WHERE course_id = ? ORDER BY position`)
	if err := repo.db.SelectContext(ctx, &ids, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting module ids")
	}
	return ids, nil
}

func (repo *courseRepository) toCourse(ctx context.Context, r courseRow) (course.Course, error) {
	ids, err := repo.moduleIDs(ctx, r.ID)
	if err != nil {
		return course.Course{}, err
	}
	return course.Course{
		ID:           r.ID,
		InstructorID: r.InstructorID,
		Title:        r.Title,
		Description:  r.Description,
		Status:       r.Status,
		ModuleIDs:    ids,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
	}, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	q := repo.db.Rebind(`SELECT ` + courseColumns + ` FROM courses WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound)
	}
	return repo.toCourse(ctx, row)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.InstructorID != "" {
		conds = append(conds, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	q := `SELECT ` + courseColumns + ` FROM courses`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		crs, err := repo.toCourse(ctx, r)
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo *courseRepository) courseExists(ctx context.Context, exec core.DBExecutor, id string) error {
	var found string
	q := exec.Rebind(`SELECT id FROM courses WHERE id = ?`)
	if err := exec.GetContext(ctx, &found, q, id); err != nil {
		return trapNoRows(err, course.ErrNotFound)
	}
	return nil
}

func (repo *courseRepository) QueryModules(ctx context.Context, courseID string) ([]course.Module, error) {
	if err := repo.courseExists(ctx, repo.db, courseID); err != nil {
		return nil, err
	}

	var rows []moduleRow
	q := repo.db.Rebind(`SELECT id, course_id, title, position, content FROM modules WHERE course_id = ? ORDER BY position`)
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, r := range rows {
		mod := course.Module{ID: r.ID, CourseID: r.CourseID, Title: r.Title, Order: r.Position, Content: []course.ContentItem{}}
		if err := fromJSON(r.Content, &mod.Content); err != nil {
			return nil, err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	if err := repo.courseExists(ctx, repo.db, enr.CourseID); err != nil {
		return course.Enrollment{}, err
	}

	q := repo.db.Rebind(`INSERT INTO enrollments (` + enrollmentColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		enr.CourseID, enr.StudentID, enr.EnrolledAt, enr.OverallProgress, enr.CompletedAt, enr.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	if enr.CompletedModules == nil {
		enr.CompletedModules = []course.CompletedModule{}
	}
	if enr.QuizScores == nil {
		enr.QuizScores = []course.QuizScore{}
	}
	return enr, nil
}

// loadEnrollment fills the completed modules and quiz scores of the enrollment row.
func loadEnrollment(ctx context.Context, exec core.DBExecutor, r enrollmentRow) (course.Enrollment, error) {
	enr := course.Enrollment{
		CourseID:         r.CourseID,
		StudentID:        r.StudentID,
		EnrolledAt:       utc(r.EnrolledAt),
		CompletedModules: make([]course.CompletedModule, 0),
		QuizScores:       make([]course.QuizScore, 0),
		OverallProgress:  r.OverallProgress,
		Version:          r.Version,
	}
	if r.CompletedAt != nil {
		t := utc(*r.CompletedAt)
		enr.CompletedAt = &t
	}

	var modules []completedModuleRow
	q := exec.Rebind(`
		SELECT module_id, completed_at FROM completed_modules
		WHERE course_id = ? AND student_id = ? ORDER BY completed_at, module_id`)
	if err := exec.SelectContext(ctx, &modules, q, r.CourseID, r.StudentID); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "selecting completed modules")
	}
	for _, m := range modules {
		enr.CompletedModules = append(enr.CompletedModules, course.CompletedModule{
			ModuleID:    m.ModuleID,
			CompletedAt: utc(m.CompletedAt),
		})
	}

	var scores []quizScoreRow
	q = exec.Rebind(`
		SELECT quiz_id, attempt_number, score, recorded_at FROM quiz_scores
		WHERE course_id = ? AND student_id = ? ORDER BY recorded_at, quiz_id, attempt_number`)
	if err := exec.SelectContext(ctx, &scores, q, r.CourseID, r.StudentID); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "selecting quiz scores")
	}
	for _, s := range scores {
		enr.QuizScores = append(enr.QuizScores, course.QuizScore{
			QuizID:        s.QuizID,
			Score:         s.Score,
			AttemptNumber: s.AttemptNumber,
			RecordedAt:    utc(s.RecordedAt),
		})
	}
	return enr, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, courseID, studentID string) (course.Enrollment, error) {
	var row enrollmentRow
	q := repo.db.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = ? AND student_id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, courseID, studentID); err != nil {
		return course.Enrollment{}, trapNoRows(err, course.ErrNotEnrolled)
	}
	return loadEnrollment(ctx, repo.db, row)
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, filter course.EnrollmentFilter) ([]course.Enrollment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CourseID != "" {
		conds = append(conds, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY enrolled_at`

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enr, err := loadEnrollment(ctx, repo.db, r)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enr)
	}
	return enrollments, nil
}

func (repo *courseRepository) UpdateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	var updated course.Enrollment
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`
			UPDATE enrollments SET overall_progress = ?, completed_at = ?, version = version + 1
			WHERE course_id = ? AND student_id = ? AND version = ?`)
		res, err := tx.ExecContext(ctx, q, enr.OverallProgress, enr.CompletedAt, enr.CourseID, enr.StudentID, enr.Version)
		if err != nil {
			return errors.Wrap(err, "updating enrollment")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "updating enrollment")
		}
		if n == 0 {
			var version int64
			q = tx.Rebind(`SELECT version FROM enrollments WHERE course_id = ? AND student_id = ?`)
			if err = tx.GetContext(ctx, &version, q, enr.CourseID, enr.StudentID); err != nil {
				return trapNoRows(err, course.ErrNotEnrolled)
			}
			return core.ErrConcurrentUpdate
		}

		q = tx.Rebind(`
			INSERT INTO completed_modules (course_id, student_id, module_id, completed_at) VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING`)
		for _, cm := range enr.CompletedModules {
			if _, err = tx.ExecContext(ctx, q, enr.CourseID, enr.StudentID, cm.ModuleID, cm.CompletedAt); err != nil {
				return errors.Wrap(err, "inserting completed module")
			}
		}

		q = tx.Rebind(`
			INSERT INTO quiz_scores (course_id, student_id, quiz_id, attempt_number, score, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`)
		for _, qs := range enr.QuizScores {
			_, err = tx.ExecContext(ctx, q, enr.CourseID, enr.StudentID, qs.QuizID, qs.AttemptNumber, qs.Score, qs.RecordedAt)
			if err != nil {
				return errors.Wrap(err, "inserting quiz score")
			}
		}

		var row enrollmentRow
		q = tx.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = ? AND student_id = ?`)
		if err = tx.GetContext(ctx, &row, q, enr.CourseID, enr.StudentID); err != nil {
			return errors.Wrap(err, "selecting enrollment")
		}
		updated, err = loadEnrollment(ctx, tx, row)
		return err
	})
	if err != nil {
		return course.Enrollment{}, err
	}
	return updated, nil
}
