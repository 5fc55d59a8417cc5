package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/quiz"
	"github.com/trezcool/academia/core/user"
)

type quizApi struct {
	learningSvc *learning.Service
	svc         *quiz.Service
	courseSvc   *course.Service
	validate    *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := quizApi{
		learningSvc: opts.LearningSvc,
		svc:         opts.QuizSvc,
		courseSvc:   opts.CourseSvc,
		validate:    opts.Validate,
	}

	qg := g.Group("/quizzes/:id", jwt)
	qg.GET("", api.retrieve)
	qg.POST("/submit", api.submit, authorizeMiddleware(opts.Policy, user.ActionSubmitAttempt, nil))
	qg.GET("/results", api.results, authorizeMiddleware(opts.Policy, user.ActionViewQuizResults, api.quizOwner))
}

// quizOwner returns the instructor of the course the quiz belongs to.
func (api *quizApi) quizOwner(ctx echo.Context) (string, error) {
	q, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return "", errors.Wrap(err, "getting quiz")
	}
	crs, err := api.courseSvc.Get(ctx.Request().Context(), q.CourseID)
	if err != nil {
		return "", errors.Wrap(err, "getting course")
	}
	return crs.InstructorID, nil
}

// Handlers

func (api *quizApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return ctx.JSON(http.StatusOK, q.ForStudent())
}

func (api *quizApi) submit(ctx echo.Context) error {
	var data quiz.SubmitAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAttempt")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	sub, err := api.learningSvc.SubmitQuizAttempt(ctx.Request().Context(), ctx.Param("id"), contextActor(ctx).ID, data.Answers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *quizApi) results(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	attempts, err := api.learningSvc.QuizResults(ctx.Request().Context(), ctx.Param("id"), ord.Orderings)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, attempts)
}
