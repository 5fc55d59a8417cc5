package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

type userApi struct {
	svc       *user.Service
	courseSvc *course.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts Options) {
	api := userApi{
		svc:       opts.UserSvc,
		courseSvc: opts.CourseSvc,
	}

	mg := g.Group("/users/me", jwt)
	mg.GET("/enrollments", api.enrollments)
	mg.GET("/certificates", api.certificates)
	mg.GET("/certificates/:certificateId", api.certificate)
}

// Handlers

func (api *userApi) enrollments(ctx echo.Context) error {
	actor := contextActor(ctx)
	if actor.ID == "" {
		return errUnauthorized
	}
	enrollments, err := api.courseSvc.Enrollments(ctx.Request().Context(), course.EnrollmentFilter{StudentID: actor.ID})
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	res := make([]progressResponse, 0, len(enrollments))
	for _, enr := range enrollments {
		res = append(res, newProgressResponse(enr))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) certificates(ctx echo.Context) error {
	actor := contextActor(ctx)
	if actor.ID == "" {
		return errUnauthorized
	}
	certs, err := api.svc.Certificates(ctx.Request().Context(), actor.ID)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *userApi) certificate(ctx echo.Context) error {
	actor := contextActor(ctx)
	if actor.ID == "" {
		return errUnauthorized
	}
	cert, err := api.svc.Certificate(ctx.Request().Context(), actor.ID, ctx.Param("certificateId"))
	if err != nil {
		return errors.Wrap(err, "getting certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}
