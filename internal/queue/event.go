// Package queue defines the scheduling events exchanged over RabbitMQ and
// the consumer that records them.
package queue

// Queue names.  Both queues are durable.
const (
	SectionScheduledQueue  = "section.scheduled"
	EnrollmentChangedQueue = "enrollment.changed"
)

// Enrollment actions carried by EnrollmentChangedEvent.
const (
	ActionEnrolled = "ENROLLED"
	ActionDropped  = "DROPPED"
)

// SectionScheduledEvent is published after a section is created or moved.
type SectionScheduledEvent struct {
	SectionID   string `json:"section_id"`
	Code        string `json:"code"`
	CourseID    string `json:"course_id"`
	RoomID      string `json:"room_id"`
	FacultyID   string `json:"faculty_id"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Created     bool   `json:"created"`
	ScheduledAt string `json:"scheduled_at"`
}

// EnrollmentChangedEvent is published when a student enrolls in or drops
// a section.
type EnrollmentChangedEvent struct {
	ScheduleID string `json:"schedule_id"`
	StudentID  string `json:"student_id"`
	SectionID  string `json:"section_id"`
	Action     string `json:"action"`
	ChangedAt  string `json:"changed_at"`
}
