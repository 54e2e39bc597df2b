package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classoptima/backend/core/user"
)

// roleMiddleware allows only the named roles through. The user is re-fetched
// from storage on every request so deactivations and role changes take effect
// immediately regardless of what the token says. An empty list admits any
// active authenticated user.
func (sec *security) roleMiddleware(roles ...user.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			usr, err := sec.getContextUser(ctx, claims)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}

			if len(roles) == 0 {
				return next(ctx)
			}
			for _, r := range roles {
				if usr.RoleName == r {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}
