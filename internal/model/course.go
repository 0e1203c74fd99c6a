package model

import "time"

// Course is a catalogue entry that sections are offered for.  Courses
// are managed by administrators and referenced, not owned, by sections.
//
// Fields:
//  ID        – primary key identifier (UUID string).
//  Name      – human readable course title.
//  Code      – short unique course code (e.g. CS101).
//  CreatedAt – timestamp when the course was created.
//  UpdatedAt – timestamp of last update.
type Course struct {
	ID        string    `json:"id"`         // courses.id
	Name      string    `json:"name"`       // courses.name
	Code      string    `json:"code"`       // courses.code
	CreatedAt time.Time `json:"created_at"` // courses.created_at
	UpdatedAt time.Time `json:"updated_at"` // courses.updated_at
}
