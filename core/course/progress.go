package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// computeProgress returns the share of the course modules completed in enr, as a percentage.
// It never returns less than the stored progress, so progress cannot go backwards.
func computeProgress(crs Course, enr Enrollment) (float64, error) {
	total := len(crs.ModuleIDs)
	if total == 0 {
		return 0, ErrNoModules
	}
	var done int
	for _, cm := range enr.CompletedModules {
		if crs.HasModule(cm.ModuleID) {
			done++
		}
	}
	progress := float64(done*100) / float64(total)
	if progress > 100 {
		progress = 100
	}
	if progress < enr.OverallProgress {
		progress = enr.OverallProgress
	}
	return progress, nil
}

// updateEnrollment applies mutate to the current enrollment and stores it with a compare-and-swap, retrying
// up to core.MaxWriteAttempts times. mutate returns false when there is nothing to write.
func (svc *Service) updateEnrollment(
	ctx context.Context,
	courseID, studentID string,
	mutate func(enr *Enrollment) (bool, error),
) (before, after Enrollment, err error) {
	for try := 1; ; try++ {
		before, err = svc.repo.GetEnrollment(ctx, courseID, studentID)
		if err != nil {
			return Enrollment{}, Enrollment{}, errors.Wrap(err, "getting enrollment")
		}

		after = before.clone()
		var changed bool
		if changed, err = mutate(&after); err != nil {
			return Enrollment{}, Enrollment{}, err
		}
		if !changed {
			return before, before, nil
		}

		after, err = svc.repo.UpdateEnrollment(ctx, after)
		if err == nil {
			return before, after, nil
		}
		if errors.Cause(err) != core.ErrConcurrentUpdate || try >= core.MaxWriteAttempts {
			return Enrollment{}, Enrollment{}, errors.Wrap(err, "updating enrollment")
		}
	}
}

// MarkModuleComplete records the completion of a module and recomputes the overall progress.
// Completing a module twice is a no-op. The progress record before the change is returned along with the
// updated one, so that callers can detect the completion edge.
func (svc *Service) MarkModuleComplete(ctx context.Context, courseID, studentID, moduleID string) (before, after Enrollment, err error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, Enrollment{}, errors.Wrap(err, "getting course")
	}

	return svc.updateEnrollment(ctx, courseID, studentID, func(enr *Enrollment) (bool, error) {
		if len(crs.ModuleIDs) == 0 {
			return false, ErrNoModules
		}
		if !crs.HasModule(moduleID) {
			return false, ErrModuleNotFound
		}
		if enr.HasCompleted(moduleID) {
			return false, nil
		}

		now := nowFunc().UTC()
		enr.CompletedModules = append(enr.CompletedModules, CompletedModule{ModuleID: moduleID, CompletedAt: now})
		progress, err := computeProgress(crs, *enr)
		if err != nil {
			return false, err
		}
		enr.OverallProgress = progress
		if enr.OverallProgress >= 100 && enr.CompletedAt == nil {
			enr.CompletedAt = &now
		}
		return true, nil
	})
}

// RecordQuizScore appends a passing score to the quiz history of the student.
// A score already recorded for the same (quiz, attempt number) is ignored.
func (svc *Service) RecordQuizScore(ctx context.Context, courseID, studentID string, score QuizScore) (Enrollment, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}

	_, after, err := svc.updateEnrollment(ctx, courseID, studentID, func(enr *Enrollment) (bool, error) {
		if enr.HasQuizScore(score.QuizID, score.AttemptNumber) {
			return false, nil
		}
		if score.RecordedAt.IsZero() {
			score.RecordedAt = nowFunc().UTC()
		}
		enr.QuizScores = append(enr.QuizScores, score)
		return true, nil
	})
	return after, err
}
