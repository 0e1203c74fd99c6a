package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/section-scheduler/internal/model"
	"github.com/iliyamo/section-scheduler/internal/repository"
)

// AdminHandler serves the ADMIN catalogue: courses, rooms and faculty
// accounts.
type AdminHandler struct {
	Courses    *repository.CourseRepo
	Rooms      *repository.RoomRepo
	Users      *repository.UserRepo
	BcryptCost int
	Log        *zap.Logger
}

// NewAdminHandler panics if any repository is nil.
func NewAdminHandler(courses *repository.CourseRepo, rooms *repository.RoomRepo, users *repository.UserRepo, bcryptCost int, log *zap.Logger) *AdminHandler {
	if courses == nil || rooms == nil || users == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Courses: courses, Rooms: rooms, Users: users, BcryptCost: bcryptCost, Log: log}
}

type courseReq struct {
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
}

// UpsertCourse handles POST /v1/admin/courses.  A body with course_id
// updates that course; without one a course is created.
func (h *AdminHandler) UpsertCourse(c echo.Context) error {
	var req courseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	course := model.Course{ID: strings.TrimSpace(req.CourseID), Name: strings.TrimSpace(req.Name), Code: strings.TrimSpace(req.Code)}
	if course.Name == "" || course.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and code are required"})
	}
	created := course.ID == ""

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Courses.Upsert(ctx, &course); err != nil {
		return writeError(c, h.Log, err, "save course failed")
	}
	if created {
		return c.JSON(http.StatusCreated, course)
	}
	return c.JSON(http.StatusOK, course)
}

// ListCourses handles GET /v1/admin/courses.
func (h *AdminHandler) ListCourses(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Courses.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err, "list courses failed")
	}
	return c.JSON(http.StatusOK, list)
}

type roomReq struct {
	RoomID      string `json:"room_id"`
	No          string `json:"no"`
	MaxCapacity *int   `json:"max_capacity"`
}

// UpsertRoom handles POST /v1/admin/rooms.
func (h *AdminHandler) UpsertRoom(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	room := model.Room{ID: strings.TrimSpace(req.RoomID), No: strings.TrimSpace(req.No)}
	if room.No == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no is required"})
	}
	if req.MaxCapacity != nil {
		if *req.MaxCapacity < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity must not be negative"})
		}
		room.MaxCapacity = uint32(*req.MaxCapacity)
	}
	created := room.ID == ""

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rooms.Upsert(ctx, &room); err != nil {
		return writeError(c, h.Log, err, "save room failed")
	}
	if created {
		return c.JSON(http.StatusCreated, room)
	}
	return c.JSON(http.StatusOK, room)
}

// ListRooms handles GET /v1/admin/rooms.
func (h *AdminHandler) ListRooms(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Rooms.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err, "list rooms failed")
	}
	return c.JSON(http.StatusOK, list)
}

type facultyReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateFaculty handles POST /v1/admin/faculty.
func (h *AdminHandler) CreateFaculty(c echo.Context) error {
	var req facultyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, model.RoleFaculty, h.BcryptCost)
	if err != nil {
		return writeError(c, h.Log, err, "create faculty failed")
	}
	return c.JSON(http.StatusCreated, userPart{ID: id, Name: req.Name, Email: req.Email, Role: model.RoleFaculty})
}

// ListFaculty handles GET /v1/admin/faculty.
func (h *AdminHandler) ListFaculty(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Users.ListByRole(ctx, model.RoleFaculty)
	if err != nil {
		return writeError(c, h.Log, err, "list faculty failed")
	}
	return c.JSON(http.StatusOK, list)
}
