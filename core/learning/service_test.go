package learning_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

type fixture struct {
	env     *testutil.Env
	student user.User
	course  course.Course
	modules []course.Module
	quiz    quiz.Quiz
}

// newFixture sets up a published course of 2 modules with a 5 questions quiz passing at 70%.
func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	teacher := testutil.CreateUser(t, env.Users, "Teacher", "teacher@academia.test", user.RoleTeacher)
	student := testutil.CreateUser(t, env.Users, "Ada", "ada@academia.test", user.RoleStudent)
	crs, modules := testutil.CreateCourse(t, env.Courses, teacher.ID, 2)
	q := testutil.CreateQuiz(t, env.Quizzes, crs.ID, 70, 3, 1, 1, 1, 1, 1)
	return fixture{env: env, student: student, course: crs, modules: modules, quiz: q}
}

// answers returns answers to the fixture quiz with n correct ones.
func answers(n int) []int {
	ans := make([]int, 5)
	for i := n; i < 5; i++ {
		ans[i] = 1
	}
	return ans
}

func TestService_ReportModuleComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.env.Learning.ReportModuleComplete(ctx, f.course.ID, f.student.ID, f.modules[0].ID)
	assert.Equal(t, course.ErrNotEnrolled, errors.Cause(err))

	_, err = f.env.Learning.Enroll(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)

	res, err := f.env.Learning.ReportModuleComplete(ctx, f.course.ID, f.student.ID, f.modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, float64(50), res.Enrollment.OverallProgress)
	assert.Nil(t, res.Certificate)
	assert.Empty(t, f.env.Mail.SentMessages())

	res, err = f.env.Learning.ReportModuleComplete(ctx, f.course.ID, f.student.ID, f.modules[1].ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), res.Enrollment.OverallProgress)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, user.CertificateID(f.course.ID, f.student.ID), res.Certificate.ID)
	assert.Equal(t, f.student.ID, res.Certificate.StudentID)
	assert.Equal(t, f.course.ID, res.Certificate.CourseID)

	msgs := f.env.Mail.SentMessages()
	if assert.Len(t, msgs, 1) {
		assert.Equal(t, f.student.Email, msgs[0].To[0].Address)
		assert.Contains(t, msgs[0].Subject, f.course.Title)
		assert.Contains(t, msgs[0].TextContent, res.Certificate.ID)
		assert.Contains(t, msgs[0].HTMLContent, "http://academia.test/certificates/"+res.Certificate.ID)
	}

	t.Run("completing again issues nothing", func(t *testing.T) {
		for _, mod := range f.modules {
			res, err := f.env.Learning.ReportModuleComplete(ctx, f.course.ID, f.student.ID, mod.ID)
			require.NoError(t, err)
			assert.Nil(t, res.Certificate)
		}
		certs, err := f.env.Users.Certificates(ctx, f.student.ID)
		require.NoError(t, err)
		assert.Len(t, certs, 1)
		assert.Len(t, f.env.Mail.SentMessages(), 1)
	})
}

func TestService_ReportModuleComplete_concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.env.Learning.Enroll(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)
	_, err = f.env.Learning.ReportModuleComplete(ctx, f.course.ID, f.student.ID, f.modules[0].ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.env.Learning.ReportModuleComplete(context.Background(), f.course.ID, f.student.ID, f.modules[1].ID)
			if err != nil {
				assert.Equal(t, core.ErrConcurrentUpdate, errors.Cause(err))
			}
		}()
	}
	wg.Wait()

	certs, err := f.env.Users.Certificates(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Len(t, f.env.Mail.SentMessages(), 1)
}

func TestService_SubmitQuizAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.env.Learning.Enroll(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)

	t.Run("failing attempt", func(t *testing.T) {
		sub, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(3))
		require.NoError(t, err)
		assert.Equal(t, 1, sub.AttemptNumber)
		assert.Equal(t, float64(60), sub.ScorePercent)
		assert.False(t, sub.Passed)
		assert.Equal(t, learning.SyncNotRequired, sub.ProgressSync)

		enr, err := f.env.Courses.Progress(ctx, f.course.ID, f.student.ID)
		require.NoError(t, err)
		assert.Empty(t, enr.QuizScores)
	})

	t.Run("passing attempt", func(t *testing.T) {
		sub, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(4))
		require.NoError(t, err)
		assert.Equal(t, 2, sub.AttemptNumber)
		assert.Equal(t, float64(80), sub.ScorePercent)
		assert.True(t, sub.Passed)
		assert.Equal(t, 1, sub.AttemptsRemaining)
		assert.Equal(t, learning.SyncDone, sub.ProgressSync)

		enr, err := f.env.Courses.Progress(ctx, f.course.ID, f.student.ID)
		require.NoError(t, err)
		if assert.Len(t, enr.QuizScores, 1) {
			assert.Equal(t, f.quiz.ID, enr.QuizScores[0].QuizID)
			assert.Equal(t, float64(80), enr.QuizScores[0].Score)
			assert.Equal(t, 2, enr.QuizScores[0].AttemptNumber)
		}
		// quizzes do not count towards module progress
		assert.Zero(t, enr.OverallProgress)
	})

	t.Run("attempt limit", func(t *testing.T) {
		_, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(5))
		require.NoError(t, err)
		_, err = f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(5))
		assert.Equal(t, quiz.ErrAttemptLimitExceeded, errors.Cause(err))

		enr, err := f.env.Courses.Progress(ctx, f.course.ID, f.student.ID)
		require.NoError(t, err)
		assert.Len(t, enr.QuizScores, 2)
	})

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := f.env.Learning.SubmitQuizAttempt(ctx, "nope", f.student.ID, answers(5))
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))
	})
}

func TestService_SubmitQuizAttempt_notEnrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(5))
	require.NoError(t, err)
	assert.True(t, sub.Passed)
	assert.Equal(t, learning.SyncFailed, sub.ProgressSync)
	assert.Len(t, f.env.Logger.Entries("WARN"), 1)
	assert.Empty(t, f.env.Logger.Entries("ERROR"))

	// the attempt stands
	attempts, err := f.env.Quizzes.StudentAttempts(ctx, f.quiz.ID, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestService_QuizResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(2))
	require.NoError(t, err)
	_, err = f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, "s2", answers(5))
	require.NoError(t, err)

	attempts, err := f.env.Learning.QuizResults(ctx, f.quiz.ID, []core.DBOrdering{{Field: "score_percent"}})
	require.NoError(t, err)
	if assert.Len(t, attempts, 2) {
		assert.Equal(t, "s2", attempts[0].StudentID)
	}
}

func TestService_Reconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.CreateUser(t, f.env.Users, "Grace", "grace@academia.test", user.RoleStudent)

	// passed before enrolling: the score could not be synced
	sub, err := f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, f.student.ID, answers(5))
	require.NoError(t, err)
	require.Equal(t, learning.SyncFailed, sub.ProgressSync)
	_, err = f.env.Learning.Enroll(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)

	// completed without going through the certificate issuance
	_, err = f.env.Learning.Enroll(ctx, f.course.ID, other.ID)
	require.NoError(t, err)
	for _, mod := range f.modules {
		_, _, err = f.env.Courses.MarkModuleComplete(ctx, f.course.ID, other.ID, mod.ID)
		require.NoError(t, err)
	}

	// never enrolled
	_, err = f.env.Learning.SubmitQuizAttempt(ctx, f.quiz.ID, "stranger", answers(5))
	require.NoError(t, err)

	report, err := f.env.Learning.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, learning.ReconcileReport{
		Courses:            1,
		Quizzes:            1,
		ScoresRecorded:     1,
		CertificatesIssued: 1,
		Skipped:            1,
	}, report)

	enr, err := f.env.Courses.Progress(ctx, f.course.ID, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, enr.QuizScores, 1)

	certs, err := f.env.Users.Certificates(ctx, other.ID)
	require.NoError(t, err)
	if assert.Len(t, certs, 1) {
		assert.Equal(t, user.CertificateID(f.course.ID, other.ID), certs[0].ID)
	}
	if msgs := f.env.Mail.SentMessages(); assert.Len(t, msgs, 1) {
		assert.Equal(t, other.Email, msgs[0].To[0].Address)
	}

	t.Run("nothing left to repair", func(t *testing.T) {
		report, err := f.env.Learning.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, learning.ReconcileReport{Courses: 1, Quizzes: 1, Skipped: 1}, report)
		assert.Len(t, f.env.Mail.SentMessages(), 1)
	})
}
