package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/section-scheduler/internal/middleware"
	"github.com/iliyamo/section-scheduler/internal/model"
	q "github.com/iliyamo/section-scheduler/internal/queue"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// dbTimeout bounds every request's database work.
const dbTimeout = 5 * time.Second

// SectionGuard is the guarded write path for sections and enrollments,
// implemented by *schedule.Guard.
type SectionGuard interface {
	CreateOrUpdateSection(ctx context.Context, s schedule.Section) (string, error)
	CheckSection(ctx context.Context, s schedule.Section) (schedule.ResourceVerdict, error)
	Enroll(ctx context.Context, studentID, sectionID string) (string, error)
}

// EventPublisher is implemented by *service.Publisher.
type EventPublisher interface {
	SectionScheduled(ctx context.Context, ev q.SectionScheduledEvent) error
	EnrollmentChanged(ctx context.Context, ev q.EnrollmentChangedEvent) error
}

type nopPublisher struct{}

func (nopPublisher) SectionScheduled(context.Context, q.SectionScheduledEvent) error   { return nil }
func (nopPublisher) EnrollmentChanged(context.Context, q.EnrollmentChangedEvent) error { return nil }

// getUserID returns the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if id := middleware.UserID(c); id != "" {
		return id, nil
	}
	return "", errors.New("invalid user_id in context")
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// conflictBody is the 409 payload for scheduling conflicts.
type conflictBody struct {
	Error     string              `json:"error"`
	Conflicts []schedule.Conflict `json:"conflicts"`
}

// writeError maps domain and repository errors onto HTTP responses.
// Anything unrecognised is logged and answered with 500 and fallback.
func writeError(c echo.Context, log *zap.Logger, err error, fallback string) error {
	if ce, ok := schedule.AsConflict(err); ok {
		return c.JSON(http.StatusConflict, conflictBody{Error: "schedule conflict", Conflicts: ce.Conflicts})
	}
	switch {
	case errors.Is(err, schedule.ErrInvalidRange), errors.Is(err, schedule.ErrInvalidDay):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, schedule.ErrUnknownReference):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSectionNotFound),
		errors.Is(err, repository.ErrCourseNotFound),
		errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrScheduleNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": fallback})
	}
	return internalError(c, log, fallback, err)
}

// internalError logs err with the request route and answers 500 with msg.
func internalError(c echo.Context, log *zap.Logger, msg string, err error) error {
	if log == nil {
		log = zap.NewNop()
	}
	log.Error(msg,
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// sectionView renders a section with clock-only times.
type sectionView struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	CourseID    string       `json:"course_id"`
	CourseName  string       `json:"course_name,omitempty"`
	CourseCode  string       `json:"course_code,omitempty"`
	RoomID      string       `json:"room_id"`
	RoomNo      string       `json:"room_no,omitempty"`
	FacultyID   string       `json:"faculty_id"`
	FacultyName string       `json:"faculty_name,omitempty"`
	Day         schedule.Day `json:"day"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
}

const clock = "15:04"

func viewOf(d model.SectionDetail) sectionView {
	return sectionView{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		CourseID:    d.CourseID,
		CourseName:  d.CourseName,
		CourseCode:  d.CourseCode,
		RoomID:      d.RoomID,
		RoomNo:      d.RoomNo,
		FacultyID:   d.FacultyID,
		FacultyName: d.FacultyName,
		Day:         d.Day,
		StartTime:   d.StartTime.Format(clock),
		EndTime:     d.EndTime.Format(clock),
	}
}

func viewsOf(ds []model.SectionDetail) []sectionView {
	out := make([]sectionView, 0, len(ds))
	for _, d := range ds {
		out = append(out, viewOf(d))
	}
	return out
}
