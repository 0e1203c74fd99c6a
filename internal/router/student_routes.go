package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/section-scheduler/internal/handler"
	"github.com/iliyamo/section-scheduler/internal/middleware"
	"github.com/iliyamo/section-scheduler/internal/model"
)

// RegisterStudent registers STUDENT-scoped endpoints under /v1/student.
// Responses depend on the caller's timetable and are never cached.
func RegisterStudent(e *echo.Echo, h *handler.StudentHandler, jwtSecret string, mw Middlewares) {
	g := e.Group(
		"/v1/student",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
		mw.Limiter,
	)
	g.GET("/sections", h.ListSections)
	g.GET("/schedules", h.ListSchedules)
	g.POST("/schedules", h.Enroll)
	g.DELETE("/schedules/:id", h.Drop)
}
