package models

import "time"

// RoomStatus tracks whether a room can be used.
type RoomStatus string

const (
	RoomStatusActive      RoomStatus = "active"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room is a treatment room. A nil CategoryID accepts every service category.
type Room struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	CategoryID *int64     `db:"category_id" json:"category_id,omitempty"`
	Gender     string     `db:"gender" json:"gender"`
	Status     RoomStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Accepts reports whether the room may host a booking of the given category.
func (r Room) Accepts(categoryID *int64) bool {
	if r.Status != RoomStatusActive {
		return false
	}
	if r.CategoryID == nil {
		return true
	}
	return categoryID != nil && *r.CategoryID == *categoryID
}
