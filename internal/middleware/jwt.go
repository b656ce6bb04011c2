package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/repository"
)

// Context keys populated by JWTAuth for downstream middleware and handlers.
const (
	CtxUserID  = "user_id"
	CtxRoles   = "roles"
	CtxDomains = "domains"
	CtxJTI     = "jti"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the authenticated principal into the request context. The
// verifier handles signature, issuer, audience, key-id lookup and clock
// skew; on top of that the middleware rejects tokens whose jti has been
// revoked, so signing out kills the access token and not just the refresh
// token. Every failure surfaces as the same 401.
func JWTAuth(verifier *auth.TokenVerifier, jtis *repository.RevokedJtiRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := verifier.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			revoked, err := jtis.IsRevoked(ctx, claims.ID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token check failed"})
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			uid, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, uid)
			c.Set(CtxRoles, claims.Roles)
			c.Set(CtxDomains, claims.Domains)
			c.Set(CtxJTI, claims.ID)
			return next(c)
		}
	}
}
