package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lichsu/core"
)

// adminMiddleware lets through editors whose token is flagged admin and who are still on the allow-list.
func adminMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && conf.IsAdmin(claims.Email) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
