package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/section-scheduler/internal/handler"
	"github.com/iliyamo/section-scheduler/internal/middleware"
	"github.com/iliyamo/section-scheduler/internal/model"
)

// Middlewares groups the Redis-backed middleware shared by the role groups.
type Middlewares struct {
	Limiter echo.MiddlewareFunc // token bucket
	Cache   echo.MiddlewareFunc // response cache for GETs
	Purge   echo.MiddlewareFunc // cache purge after writes
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.  GET
// listings are cached; every successful write purges the cache.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, s *handler.SectionHandler, jwtSecret string, mw Middlewares) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		mw.Limiter,
		mw.Purge,
	)

	// ---- Catalogue ----
	g.POST("/courses", a.UpsertCourse)
	g.GET("/courses", a.ListCourses, mw.Cache)
	g.POST("/rooms", a.UpsertRoom)
	g.GET("/rooms", a.ListRooms, mw.Cache)
	g.POST("/faculty", a.CreateFaculty)
	g.GET("/faculty", a.ListFaculty, mw.Cache)

	// ---- Sections (guarded) ----
	g.POST("/sections", s.Upsert)
	g.POST("/sections/check", s.Check)
	g.GET("/sections", s.List, mw.Cache)
	g.DELETE("/sections/:id", s.Delete)
}

// RegisterFaculty registers FACULTY-scoped endpoints under /v1/faculty.
func RegisterFaculty(e *echo.Echo, s *handler.SectionHandler, jwtSecret string, mw Middlewares) {
	g := e.Group(
		"/v1/faculty",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleFaculty),
		mw.Limiter,
	)
	g.GET("/sections", s.ListMine)
}
