package learning

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
)

// Progress sync statuses of a quiz submission.
const (
	SyncNotRequired = "not_required" // the attempt did not pass
	SyncDone        = "synced"
	SyncFailed      = "failed" // the attempt stands, the course progress record was not updated
)

type (
	// ModuleCompletion is the outcome of reporting a completed module.
	ModuleCompletion struct {
		Enrollment  course.Enrollment `json:"enrollment"`
		Certificate *user.Certificate `json:"certificate,omitempty"` // set when this report completed the course
	}

	// Submission is the outcome of a quiz submission.
	Submission struct {
		quiz.AttemptResult
		ProgressSync string `json:"progress_sync"`
	}

	Service struct {
		courses *course.Service
		quizzes *quiz.Service
		users   *user.Service
		sync    *Synchronizer
		mailSvc core.EmailService
		logger  core.Logger
	}
)

// NewService wires the course and quiz aggregates together. It is the only entry point mutating both.
func NewService(
	courses *course.Service,
	quizzes *quiz.Service,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		courses: courses,
		quizzes: quizzes,
		users:   users,
		sync:    NewSynchronizer(courses),
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *Service) Enroll(ctx context.Context, courseID, studentID string) (course.Enrollment, error) {
	enr, err := svc.courses.Enroll(ctx, courseID, studentID)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	return enr, nil
}

// ReportModuleComplete marks the module complete and issues the course certificate when this report is the
// one taking the student to 100%.
func (svc *Service) ReportModuleComplete(ctx context.Context, courseID, studentID, moduleID string) (ModuleCompletion, error) {
	before, after, err := svc.courses.MarkModuleComplete(ctx, courseID, studentID, moduleID)
	if err != nil {
		return ModuleCompletion{}, errors.Wrap(err, "marking module complete")
	}

	res := ModuleCompletion{Enrollment: after}
	if EvaluateCompletion(before, after) {
		cert, _, err := svc.issueCertificate(ctx, after)
		if err != nil {
			// progress is stored, the reconciler issues the missing certificate
			svc.logger.Error(fmt.Sprintf("issuing certificate of course %s to %s: %v", courseID, studentID, err), err)
		} else {
			res.Certificate = &cert
		}
	}
	return res, nil
}

// SubmitQuizAttempt records a graded attempt and, if it passed, propagates the score to the course progress
// record. A failed propagation does not undo the attempt: it is reported in ProgressSync and logged.
func (svc *Service) SubmitQuizAttempt(ctx context.Context, quizID, studentID string, answers []int) (Submission, error) {
	q, err := svc.quizzes.Get(ctx, quizID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "getting quiz")
	}

	res, err := svc.quizzes.RecordAttempt(ctx, quizID, studentID, answers)
	if err != nil {
		return Submission{}, errors.Wrap(err, "recording attempt")
	}

	sub := Submission{AttemptResult: res, ProgressSync: SyncNotRequired}
	if !res.Passed {
		return sub, nil
	}

	if _, err := svc.sync.OnQuizPassed(ctx, q, studentID, res.ScorePercent, res.AttemptNumber); err != nil {
		sub.ProgressSync = SyncFailed
		msg := fmt.Sprintf("recording score of quiz %s attempt %d for %s: %v", quizID, res.AttemptNumber, studentID, err)
		if core.ErrorCodeOf(err) == core.CodeNotEnrolled {
			svc.logger.Warn(msg)
		} else {
			svc.logger.Error(msg, err)
		}
		return sub, nil
	}
	sub.ProgressSync = SyncDone
	return sub, nil
}

// QuizResults returns every attempt made on the quiz.
func (svc *Service) QuizResults(ctx context.Context, quizID string, ordering []core.DBOrdering) ([]quiz.Attempt, error) {
	attempts, err := svc.quizzes.Results(ctx, quizID, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz results")
	}
	return attempts, nil
}
