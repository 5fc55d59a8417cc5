package quiz

// GradeResult is the outcome of grading a set of answers.
type GradeResult struct {
	EarnedPoints int
	TotalPoints  int
	ScorePercent float64
	Passed       bool
}

// Grade scores answers against the quiz questions. answers[i] is the option chosen for question i.
// Missing, negative and out of range answers are incorrect; answers beyond the last question are ignored.
func Grade(q Quiz, answers []int) (GradeResult, error) {
	var res GradeResult
	for i, question := range q.Questions {
		res.TotalPoints += question.Points
		if i >= len(answers) {
			continue
		}
		if ans := answers[i]; ans >= 0 && ans < len(question.Options) && ans == question.CorrectOption {
			res.EarnedPoints += question.Points
		}
	}
	if res.TotalPoints <= 0 {
		return GradeResult{}, ErrNoPoints
	}

	res.ScorePercent = float64(res.EarnedPoints*100) / float64(res.TotalPoints)
	res.Passed = res.ScorePercent >= q.PassingScorePercent
	return res, nil
}
