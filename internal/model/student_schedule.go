package model

import "time"

// StudentSchedule records one student's enrollment in one section.  At
// most one row exists per (student, section) pair.  Rows are created on
// enroll and deleted on drop; they are never edited.
//
// Fields:
//  ID        – primary key identifier (UUID string).
//  StudentID – enrolled user (STUDENT role).
//  SectionID – section the student joined.
//  CreatedAt – enrollment timestamp.
type StudentSchedule struct {
	ID        string    `json:"id"`         // student_schedules.id
	StudentID string    `json:"student_id"` // student_schedules.student_id
	SectionID string    `json:"section_id"` // student_schedules.section_id
	CreatedAt time.Time `json:"created_at"` // student_schedules.created_at
}

// ScheduleDetail is an enrollment together with the section it refers to.
type ScheduleDetail struct {
	ID        string        `json:"id"`
	StudentID string        `json:"student_id"`
	CreatedAt time.Time     `json:"created_at"`
	Section   SectionDetail `json:"section"`
}
