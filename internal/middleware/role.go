package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user carries at least one of
// the given platform roles (the "roles" claim: USER, ADMIN, STAFF). It
// assumes JWTAuth ran earlier in the chain; a missing or foreign role set
// is rejected with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := toSet(roles)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !anyIn(c.Get(CtxRoles), allowed) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireRoleOrDomain passes when the user holds one of the platform roles
// OR one of the business domain roles (the "domains" claim: CLIENT,
// MANAGER, MARKETING, LAWYER). Used for endpoints like the dashboard that
// admit admins and lawyers alike.
func RequireRoleOrDomain(roles, domains []string) echo.MiddlewareFunc {
	allowedRoles := toSet(roles)
	allowedDomains := toSet(domains)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if anyIn(c.Get(CtxRoles), allowedRoles) || anyIn(c.Get(CtxDomains), allowedDomains) {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}

func toSet(vals []string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func anyIn(v any, allowed map[string]bool) bool {
	claims, ok := v.([]string)
	if !ok {
		return false
	}
	for _, c := range claims {
		if allowed[c] {
			return true
		}
	}
	return false
}
