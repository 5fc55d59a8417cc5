package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/learning"
	"github.com/trezcool/academia/core/user"
)

type courseApi struct {
	learningSvc *learning.Service
	svc         *course.Service
}

type progressResponse struct {
	course.Enrollment
	Status string `json:"status"`
}

func newProgressResponse(enr course.Enrollment) progressResponse {
	return progressResponse{Enrollment: enr, Status: enr.Status()}
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := courseApi{
		learningSvc: opts.LearningSvc,
		svc:         opts.CourseSvc,
	}

	cg := g.Group("/courses/:id", jwt)
	cg.POST("/enroll", api.enroll, authorizeMiddleware(opts.Policy, user.ActionEnroll, nil))
	cg.POST("/modules/:moduleId/complete", api.completeModule,
		authorizeMiddleware(opts.Policy, user.ActionReportProgress, nil))
	cg.GET("/progress", api.progress, authorizeMiddleware(opts.Policy, user.ActionReportProgress, nil))
	cg.GET("/enrollments", api.roster, authorizeMiddleware(opts.Policy, user.ActionViewRoster, api.courseOwner))
}

func (api *courseApi) courseOwner(ctx echo.Context) (string, error) {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return "", errors.Wrap(err, "getting course")
	}
	return crs.InstructorID, nil
}

// Handlers

func (api *courseApi) enroll(ctx echo.Context) error {
	enr, err := api.learningSvc.Enroll(ctx.Request().Context(), ctx.Param("id"), contextActor(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newProgressResponse(enr))
}

func (api *courseApi) completeModule(ctx echo.Context) error {
	res, err := api.learningSvc.ReportModuleComplete(
		ctx.Request().Context(), ctx.Param("id"), contextActor(ctx).ID, ctx.Param("moduleId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) progress(ctx echo.Context) error {
	enr, err := api.svc.Progress(ctx.Request().Context(), ctx.Param("id"), contextActor(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, newProgressResponse(enr))
}

func (api *courseApi) roster(ctx echo.Context) error {
	enrollments, err := api.svc.Enrollments(ctx.Request().Context(), course.EnrollmentFilter{CourseID: ctx.Param("id")})
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	res := make([]progressResponse, 0, len(enrollments))
	for _, enr := range enrollments {
		res = append(res, newProgressResponse(enr))
	}
	return ctx.JSON(http.StatusOK, res)
}
