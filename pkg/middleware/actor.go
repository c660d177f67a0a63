package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderUserID is set by the gateway after it has validated the caller's token.
const HeaderUserID = "X-User-ID"

const actorKey = "actor_id"

// RequireActor rejects requests that arrive without an authenticated user.
func RequireActor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(HeaderUserID)
		if id == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
		}
		c.Set(actorKey, id)
		return next(c)
	}
}

// ActorID returns the caller set by RequireActor, falling back to the raw header.
func ActorID(c echo.Context) string {
	if id, ok := c.Get(actorKey).(string); ok {
		return id
	}
	return c.Request().Header.Get(HeaderUserID)
}
