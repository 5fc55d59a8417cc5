package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	contentTypeTag  = "contenttype"
	contentTypeText = "content type must be one of video, document or quiz"

	quizIDTag  = "quizid"
	quizIDText = "quiz content must reference a quiz"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(contentTypeTag, contentTypeValidation)
	core.RegisterCustomTranslation(validate, translator, contentTypeTag, contentTypeText)

	validate.RegisterStructValidation(contentItemStructValidation, NewContentItem{})
	core.RegisterCustomTranslation(validate, translator, quizIDTag, quizIDText)
}

// Custom Validators

func contentTypeValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ContentVideo, ContentDocument, ContentQuiz:
		return true
	}
	return false
}

// contentItemStructValidation checks that quiz content, and only quiz content, references a quiz.
func contentItemStructValidation(sl validator.StructLevel) {
	item := sl.Current().Interface().(NewContentItem)
	if (item.Type == ContentQuiz) != (item.QuizID != "") {
		sl.ReportError(item.QuizID, "quiz_id", "QuizID", quizIDTag, "")
	}
}
