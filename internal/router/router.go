// Package router wires handlers, auth middleware and the response cache
// into the Echo route table.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/handler"
	"github.com/avialex/api/internal/middleware"
	"github.com/avialex/api/internal/repository"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	OAuth     *handler.OAuthHandler
	Users     *handler.UserHandler
	Processes *handler.ProcessHandler
	Reviews   *handler.ReviewHandler

	Verifier *auth.TokenVerifier
	Jtis     *repository.RevokedJtiRepo

	Cache config.CacheConfig
	Redis *redis.Client
}

// Register mounts all routes. Mutating admin operations require the ADMIN
// role; the dashboard additionally admits lawyers via their domain claim.
func Register(e *echo.Echo, d Deps) {
	cache := middleware.ResponseCache(d.Cache, d.Redis)

	e.GET("/healthz", handler.Health)

	// Public auth surface.
	pub := e.Group("/v1/auth")
	pub.POST("/signup", d.Auth.Signup)
	pub.POST("/signin", d.Auth.Signin)
	pub.POST("/refresh", d.Auth.Refresh)
	pub.POST("/forgot-password", d.Auth.ForgotPassword)
	pub.POST("/reset-password", d.Auth.ResetPassword)
	pub.GET("/oauth/github", d.OAuth.Login)
	pub.GET("/oauth/github/callback", d.OAuth.Callback)

	// Clients can check a case by number without an account.
	e.GET("/v1/processes/number/:number", d.Processes.GetByNumber, cache)

	v1 := e.Group("/v1", middleware.JWTAuth(d.Verifier, d.Jtis))

	v1.POST("/auth/signout", d.Auth.Signout)
	v1.POST("/auth/signout-all", d.Auth.SignoutAll)
	v1.GET("/auth/me", d.Auth.Me)
	v1.GET("/auth/sessions", d.Auth.Sessions)

	admin := middleware.RequireRole("ADMIN")
	staff := middleware.RequireRole("STAFF", "ADMIN")
	user := middleware.RequireRole("USER")
	dashboard := middleware.RequireRoleOrDomain([]string{"ADMIN"}, []string{"LAWYER"})

	v1.GET("/users", d.Users.List, admin)
	v1.GET("/users/:id", d.Users.GetByID, user)
	v1.PUT("/users/:id", d.Users.Update, admin)
	v1.DELETE("/users/:id", d.Users.Delete, admin)

	v1.GET("/processes", d.Processes.List, staff)
	v1.POST("/processes", d.Processes.Create, admin)
	v1.GET("/processes/search", d.Processes.Search, staff)
	v1.GET("/processes/dashboard", d.Processes.Dashboard, dashboard, cache)
	v1.GET("/processes/dashboard/export", d.Processes.ExportDashboard, dashboard)
	v1.GET("/processes/:id", d.Processes.GetByID, user)
	v1.PUT("/processes/:id", d.Processes.Update, admin)
	v1.PATCH("/processes/:id/status", d.Processes.UpdateStatus, dashboard)
	v1.DELETE("/processes/:id", d.Processes.Delete, admin)

	v1.POST("/reviews", d.Reviews.Create, user)
	v1.GET("/reviews", d.Reviews.List, user)
	v1.GET("/reviews/stats", d.Reviews.Stats, staff)
	v1.GET("/reviews/user/:id", d.Reviews.ListByUser, user)
	v1.GET("/reviews/:id", d.Reviews.GetByID, user)
	v1.PUT("/reviews/:id", d.Reviews.Update, user)
	v1.DELETE("/reviews/:id", d.Reviews.Delete, staff)
}
