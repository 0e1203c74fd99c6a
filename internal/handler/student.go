package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	q "github.com/iliyamo/section-scheduler/internal/queue"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// StudentHandler serves the STUDENT timetable: browsing sections with a
// per-student verdict, enrolling through the guard and dropping.
type StudentHandler struct {
	Sections  *repository.SectionRepo
	Schedules *repository.StudentScheduleRepo
	Guard     SectionGuard
	Events    EventPublisher
	Log       *zap.Logger
}

// NewStudentHandler panics on nil repositories or guard.
func NewStudentHandler(sections *repository.SectionRepo, schedules *repository.StudentScheduleRepo, guard SectionGuard, events EventPublisher, log *zap.Logger) *StudentHandler {
	if sections == nil || schedules == nil || guard == nil {
		panic("nil dependency passed to NewStudentHandler")
	}
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StudentHandler{Sections: sections, Schedules: schedules, Guard: guard, Events: events, Log: log}
}

// joinableSection is one row of the "join classes" listing.
type joinableSection struct {
	sectionView
	Verdict   schedule.StudentVerdict `json:"verdict"`
	CanEnroll bool                    `json:"can_enroll"`
}

// ListSections handles GET /v1/student/sections.  Each section carries the
// verdict CheckStudentEnrollment gives for the caller so clients know which
// Enroll actions to offer.
func (h *StudentHandler) ListSections(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	sections, err := h.Sections.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err, "list sections failed")
	}
	mine, err := h.Schedules.ListByStudent(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err, "list schedules failed")
	}
	enrollments := make([]schedule.Enrollment, 0, len(mine))
	for _, sd := range mine {
		enrollments = append(enrollments, schedule.Enrollment{ScheduleID: sd.ID, Section: sd.Section.Slot()})
	}

	out := make([]joinableSection, 0, len(sections))
	for _, d := range sections {
		v, err := schedule.CheckStudentEnrollment(d.Slot(), enrollments)
		if err != nil {
			return writeError(c, h.Log, err, "check enrollment failed")
		}
		out = append(out, joinableSection{sectionView: viewOf(d), Verdict: v, CanEnroll: v.CanEnroll()})
	}
	return c.JSON(http.StatusOK, out)
}

type enrollReq struct {
	SectionID string `json:"section_id"`
}

// Enroll handles POST /v1/student/schedules.
func (h *StudentHandler) Enroll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req enrollReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.SectionID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "section_id required"})
	}
	sectionID := strings.TrimSpace(req.SectionID)

	ctx, cancel := dbCtx(c)
	defer cancel()
	scheduleID, err := h.Guard.Enroll(ctx, uid, sectionID)
	if err != nil {
		return writeError(c, h.Log, err, "enroll failed")
	}
	h.publishEnrollment(q.EnrollmentChangedEvent{ScheduleID: scheduleID, StudentID: uid, SectionID: sectionID, Action: q.ActionEnrolled})
	return c.JSON(http.StatusCreated, echo.Map{"id": scheduleID, "section_id": sectionID})
}

// ListSchedules handles GET /v1/student/schedules.
func (h *StudentHandler) ListSchedules(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	mine, err := h.Schedules.ListByStudent(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err, "list schedules failed")
	}
	type row struct {
		ID        string      `json:"id"`
		CreatedAt time.Time   `json:"created_at"`
		Section   sectionView `json:"section"`
	}
	out := make([]row, 0, len(mine))
	for _, sd := range mine {
		out = append(out, row{ID: sd.ID, CreatedAt: sd.CreatedAt, Section: viewOf(sd.Section)})
	}
	return c.JSON(http.StatusOK, out)
}

// Drop handles DELETE /v1/student/schedules/:id.  Another student's
// enrollment is reported as not found.
func (h *StudentHandler) Drop(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	ss, err := h.Schedules.GetByIDAndStudent(ctx, id, uid)
	if err != nil {
		return writeError(c, h.Log, err, "load schedule failed")
	}
	if err := h.Schedules.DeleteByIDAndStudent(ctx, id, uid); err != nil {
		return writeError(c, h.Log, err, "drop failed")
	}
	h.publishEnrollment(q.EnrollmentChangedEvent{ScheduleID: id, StudentID: uid, SectionID: ss.SectionID, Action: q.ActionDropped})
	return c.NoContent(http.StatusNoContent)
}

func (h *StudentHandler) publishEnrollment(ev q.EnrollmentChangedEvent) {
	ev.ChangedAt = time.Now().UTC().Format(time.RFC3339)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := h.Events.EnrollmentChanged(ctx, ev); err != nil {
			h.Log.Debug("enrollment event dropped", zap.String("schedule_id", ev.ScheduleID), zap.Error(err))
		}
	}()
}
