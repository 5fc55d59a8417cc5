package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	correctOptionTag  = "correctoption"
	correctOptionText = "the correct option must be one of the options"

	totalPointsTag  = "totalpoints"
	totalPointsText = "questions must be worth more than 0 points in total"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	validate.RegisterStructValidation(quizStructValidation, NewQuiz{})
	core.RegisterCustomTranslation(validate, translator, correctOptionTag, correctOptionText)
	core.RegisterCustomTranslation(validate, translator, totalPointsTag, totalPointsText)
}

// questionStructValidation checks that the correct option indexes one of the options.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(NewQuestion)
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		sl.ReportError(q.CorrectOption, "correct_option", "CorrectOption", correctOptionTag, "")
	}
}

func quizStructValidation(sl validator.StructLevel) {
	nq := sl.Current().Interface().(NewQuiz)
	if len(nq.Questions) == 0 {
		return
	}
	var total int
	for _, q := range nq.Questions {
		if q.Points != nil {
			total += *q.Points
		}
	}
	if total <= 0 {
		sl.ReportError(nq.Questions, "questions", "Questions", totalPointsTag, "")
	}
}
