package model

import (
	"time"

	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// Section is a scheduled offering of a course: one weekly slot (Day,
// StartTime, EndTime) held in one room and taught by one faculty member.
// StartTime and EndTime are TIME columns; only their clock reading is
// meaningful and the date part is the fixed reference date.
//
// Fields:
//  ID        – primary key identifier (UUID string).
//  Code      – section code (e.g. "A1").
//  Name      – section display name.
//  CourseID  – referenced course.
//  RoomID    – referenced room.
//  FacultyID – referenced user with the FACULTY role.
//  Day       – weekday of the slot.
//  StartTime – slot start (inclusive).
//  EndTime   – slot end (exclusive).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Section struct {
	ID        string       `json:"id"`         // sections.id
	Code      string       `json:"code"`       // sections.code
	Name      string       `json:"name"`       // sections.name
	CourseID  string       `json:"course_id"`  // sections.course_id
	RoomID    string       `json:"room_id"`    // sections.room_id
	FacultyID string       `json:"faculty_id"` // sections.faculty_id
	Day       schedule.Day `json:"day"`        // sections.day
	StartTime time.Time    `json:"start_time"` // sections.start_time
	EndTime   time.Time    `json:"end_time"`   // sections.end_time
	CreatedAt time.Time    `json:"created_at"` // sections.created_at
	UpdatedAt time.Time    `json:"updated_at"` // sections.updated_at
}

// Slot converts the row into the conflict engine's representation.
func (s Section) Slot() schedule.Section {
	return schedule.Section{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		CourseID:  s.CourseID,
		RoomID:    s.RoomID,
		FacultyID: s.FacultyID,
		Day:       s.Day,
		Range:     schedule.TimeRange{Start: schedule.Normalize(s.StartTime), End: schedule.Normalize(s.EndTime)},
	}
}

// SectionFromSlot is the inverse of Section.Slot for the fields the
// engine carries.
func SectionFromSlot(s schedule.Section) Section {
	return Section{
		ID:        s.ID,
		Code:      s.Code,
		Name:      s.Name,
		CourseID:  s.CourseID,
		RoomID:    s.RoomID,
		FacultyID: s.FacultyID,
		Day:       s.Day,
		StartTime: s.Range.Start,
		EndTime:   s.Range.End,
	}
}

// SectionDetail joins a section with the course, room and faculty labels
// needed for listings.
type SectionDetail struct {
	Section
	CourseName  string `json:"course_name"`
	CourseCode  string `json:"course_code"`
	RoomNo      string `json:"room_no"`
	FacultyName string `json:"faculty_name"`
}
