package learning

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

// ReconcileReport sums up a reconciliation run.
type ReconcileReport struct {
	Courses            int      `json:"courses" yaml:"courses"`
	Quizzes            int      `json:"quizzes" yaml:"quizzes"`
	ScoresRecorded     int      `json:"scores_recorded" yaml:"scores_recorded"`
	CertificatesIssued int      `json:"certificates_issued" yaml:"certificates_issued"`
	Skipped            int      `json:"skipped" yaml:"skipped"` // passing attempts of students not enrolled
	Failures           []string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Reconcile repairs the gaps left by failed cross-aggregate writes:
//  - passing attempts missing from the score history of the course progress record are recorded again;
//  - completed progress records without a certificate get one.
// Both repairs are idempotent, a run over a consistent store changes nothing.
func (svc *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	courses, err := svc.courses.Query(ctx, course.QueryFilter{})
	if err != nil {
		return report, errors.Wrap(err, "querying courses")
	}

	for _, crs := range courses {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Courses++
		if err := svc.reconcileCourse(ctx, crs, &report); err != nil {
			return report, errors.Wrapf(err, "reconciling course %s", crs.ID)
		}
	}

	if len(report.Failures) > 0 {
		svc.logger.Warn(fmt.Sprintf("reconciliation finished with %d failures", len(report.Failures)), report.Failures)
	}
	return report, nil
}

func (svc *Service) reconcileCourse(ctx context.Context, crs course.Course, report *ReconcileReport) error {
	enrollments, err := svc.courses.Enrollments(ctx, course.EnrollmentFilter{CourseID: crs.ID})
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	byStudent := make(map[string]course.Enrollment, len(enrollments))
	for _, enr := range enrollments {
		byStudent[enr.StudentID] = enr
	}

	quizzes, err := svc.quizzes.QueryByCourse(ctx, crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	for _, q := range quizzes {
		report.Quizzes++
		attempts, err := svc.quizzes.PassingAttempts(ctx, q.ID)
		if err != nil {
			return errors.Wrapf(err, "querying passing attempts of quiz %s", q.ID)
		}
		for _, a := range attempts {
			enr, ok := byStudent[a.StudentID]
			if !ok {
				report.Skipped++
				continue
			}
			if enr.HasQuizScore(a.QuizID, a.AttemptNumber) {
				continue
			}
			if _, err := svc.sync.OnQuizPassed(ctx, q, a.StudentID, a.ScorePercent, a.AttemptNumber); err != nil {
				if core.ErrorCodeOf(err) == core.CodeNotEnrolled {
					report.Skipped++
					continue
				}
				report.Failures = append(report.Failures, fmt.Sprintf("quiz %s attempt %d of %s: %v", q.ID, a.AttemptNumber, a.StudentID, err))
				continue
			}
			report.ScoresRecorded++
		}
	}

	for _, enr := range enrollments {
		if enr.OverallProgress < 100 {
			continue
		}
		_, issued, err := svc.issueCertificate(ctx, enr)
		if err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("certificate of %s: %v", enr.StudentID, err))
			continue
		}
		if issued {
			report.CertificatesIssued++
		}
	}
	return nil
}
