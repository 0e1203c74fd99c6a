package model

import "time"

// Room is a physical classroom.  At most one section may occupy a room
// at any instant of a given weekday.  MaxCapacity is informational and
// is not used for conflict checks.
//
// Fields:
//  ID          – primary key identifier (UUID string).
//  No          – room label shown to users (e.g. "B-204").
//  MaxCapacity – number of seats in the room.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Room struct {
	ID          string    `json:"id"`           // rooms.id
	No          string    `json:"no"`           // rooms.no
	MaxCapacity uint32    `json:"max_capacity"` // rooms.max_capacity
	CreatedAt   time.Time `json:"created_at"`   // rooms.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // rooms.updated_at
}
