package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/kronos/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/kronos/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// with register and login behind the rate limiter; the account endpoint
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, limiter)
	g.POST("/login", a.Login, limiter)
	// Refresh rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout needs no JWT: a refresh token in the body revokes that session,
	// a bearer token without a body revokes all of the user's sessions.
	g.POST("/logout", a.Logout)

	e.GET("/v1/account", a.Account, middleware.JWTAuth(jwtSecret))
}

// RegisterStats registers the public read-only user endpoints behind the
// response cache.
func RegisterStats(e *echo.Echo, s *handler.StatsHandler, cache echo.MiddlewareFunc) {
	e.GET("/user/id=:id", s.User, cache)
	e.GET("/user/board/id=:id", s.Boards, cache)
}

// RegisterAdmin registers the CRUD browser.  Every route requires an
// access token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("", a.Entities)
	g.GET("/:entity", a.List)
	g.POST("/:entity", a.Create)
	g.GET("/:entity/:id", a.Get)
	g.PUT("/:entity/:id", a.Update)
	g.DELETE("/:entity/:id", a.Delete)
}
