package handler

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/middleware"
)

// dbCtx bounds the duration of database calls made on behalf of a request.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// getUserID extracts the authenticated user's id placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || uid == 0 {
		return 0, errors.New("no authenticated user")
	}
	return uid, nil
}

// getJTI extracts the bearer token's unique id from the context.
func getJTI(c echo.Context) string {
	jti, _ := c.Get(middleware.CtxJTI).(string)
	return jti
}
