package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

// ownerFunc returns the id of the user owning the resource targeted by the request.
type ownerFunc func(ctx echo.Context) (string, error)

// authorizeMiddleware asks the policy whether the caller may perform action before the handler runs.
func authorizeMiddleware(policy user.Authorizer, action user.Action, owner ownerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor := contextActor(ctx)
			if actor.ID == "" {
				return errUnauthorized
			}

			var ownerID string
			if owner != nil {
				var err error
				if ownerID, err = owner(ctx); err != nil {
					return errors.Wrap(err, "getting resource owner")
				}
			}

			if err := policy.Authorize(actor, action, ownerID); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
