package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	q "github.com/iliyamo/section-scheduler/internal/queue"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// publishTimeout bounds a background event publish.
const publishTimeout = 5 * time.Second

// SectionHandler serves section administration and the faculty timetable.
// Every section write goes through Guard.
type SectionHandler struct {
	Sections *repository.SectionRepo
	Guard    SectionGuard
	Events   EventPublisher
	Log      *zap.Logger
}

// NewSectionHandler panics on a nil repository or guard.  A nil publisher
// disables events.
func NewSectionHandler(sections *repository.SectionRepo, guard SectionGuard, events EventPublisher, log *zap.Logger) *SectionHandler {
	if sections == nil || guard == nil {
		panic("nil dependency passed to NewSectionHandler")
	}
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SectionHandler{Sections: sections, Guard: guard, Events: events, Log: log}
}

type sectionReq struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	CourseID  string `json:"course_id"`
	RoomID    string `json:"room_id"`
	FacultyID string `json:"faculty_id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// toSection validates the body shape.  Range ordering is left to the
// guard so that it reports ErrInvalidRange itself.
func (r sectionReq) toSection() (schedule.Section, string) {
	s := schedule.Section{
		ID:        strings.TrimSpace(r.SectionID),
		Name:      strings.TrimSpace(r.Name),
		Code:      strings.TrimSpace(r.Code),
		CourseID:  strings.TrimSpace(r.CourseID),
		RoomID:    strings.TrimSpace(r.RoomID),
		FacultyID: strings.TrimSpace(r.FacultyID),
	}
	if s.RoomID == "" || s.FacultyID == "" {
		return s, "room_id and faculty_id are required"
	}
	day, err := schedule.ParseDay(r.Day)
	if err != nil {
		return s, "day must be a weekday name"
	}
	s.Day = day
	if s.Range.Start, err = schedule.ParseTimeOfDay(r.StartTime); err != nil {
		return s, "invalid start_time"
	}
	if s.Range.End, err = schedule.ParseTimeOfDay(r.EndTime); err != nil {
		return s, "invalid end_time"
	}
	return s, ""
}

// Upsert handles POST /v1/admin/sections.  Without section_id a section
// is created (201); with one that section is moved or renamed (200).
// Conflicts answer 409 listing every blocking section.
func (h *SectionHandler) Upsert(c echo.Context) error {
	var req sectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sec, msg := req.toSection()
	if msg == "" && (sec.Name == "" || sec.Code == "" || sec.CourseID == "") {
		msg = "name, code and course_id are required"
	}
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	created := sec.ID == ""

	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Guard.CreateOrUpdateSection(ctx, sec)
	if err != nil {
		return writeError(c, h.Log, err, "save section failed")
	}
	sec.ID = id
	h.publishSection(sec, created)

	detail, err := h.Sections.GetByID(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err, "load section failed")
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, viewOf(*detail))
}

// checkResp is the verdict for a prospective section.
type checkResp struct {
	Available bool                     `json:"available"`
	Verdict   schedule.ResourceVerdict `json:"verdict"`
	Conflicts []schedule.Conflict      `json:"conflicts"`
}

// Check handles POST /v1/admin/sections/check.  It evaluates the body like
// Upsert would and writes nothing.
func (h *SectionHandler) Check(c echo.Context) error {
	var req sectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sec, msg := req.toSection()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err := h.Guard.CheckSection(ctx, sec)
	if err != nil {
		return writeError(c, h.Log, err, "check section failed")
	}
	resp := checkResp{Available: v.Available(), Verdict: v, Conflicts: []schedule.Conflict{}}
	if ce, ok := schedule.AsConflict(v.Err()); ok {
		resp.Conflicts = ce.Conflicts
	}
	return c.JSON(http.StatusOK, resp)
}

// List handles GET /v1/admin/sections.
func (h *SectionHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Sections.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err, "list sections failed")
	}
	return c.JSON(http.StatusOK, viewsOf(list))
}

// Delete handles DELETE /v1/admin/sections/:id.  Sections with enrolled
// students are kept and answer 409.
func (h *SectionHandler) Delete(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Sections.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "section has enrolled students"})
		}
		return writeError(c, h.Log, err, "delete section failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/faculty/sections: the sections the caller teaches.
func (h *SectionHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Sections.ListByFaculty(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err, "list sections failed")
	}
	return c.JSON(http.StatusOK, viewsOf(list))
}

func (h *SectionHandler) publishSection(s schedule.Section, created bool) {
	ev := q.SectionScheduledEvent{
		SectionID:   s.ID,
		Code:        s.Code,
		CourseID:    s.CourseID,
		RoomID:      s.RoomID,
		FacultyID:   s.FacultyID,
		Day:         s.Day.String(),
		StartTime:   s.Range.Start.Format(clock),
		EndTime:     s.Range.End.Format(clock),
		Created:     created,
		ScheduledAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := h.Events.SectionScheduled(ctx, ev); err != nil {
			h.Log.Debug("section event dropped", zap.String("section_id", ev.SectionID), zap.Error(err))
		}
	}()
}
