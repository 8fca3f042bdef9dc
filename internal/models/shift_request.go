package models

import (
	"time"

	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

// ShiftStatus captures the approval workflow of an availability window.
type ShiftStatus string

const (
	ShiftStatusPending  ShiftStatus = "pending"
	ShiftStatusApproved ShiftStatus = "approved"
	ShiftStatusRejected ShiftStatus = "rejected"
)

// ShiftRequest is a submitted or admin-created availability window for one date.
type ShiftRequest struct {
	ID           int64       `db:"id" json:"id"`
	StaffID      int64       `db:"staff_id" json:"staff_id"`
	ScheduleDate clock.Date  `db:"schedule_date" json:"schedule_date"`
	StartTime    clock.Time  `db:"start_time" json:"start_time"`
	EndTime      clock.Time  `db:"end_time" json:"end_time"`
	Status       ShiftStatus `db:"status" json:"status"`
	CreatedBy    string      `db:"created_by" json:"created_by"`
	Notes        *string     `db:"notes" json:"notes,omitempty"`
	ReviewedBy   *string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// ShiftRequestFilter constrains listing queries.
type ShiftRequestFilter struct {
	Status       []ShiftStatus
	StaffID      *int64
	ScheduleDate clock.Date
	Limit        int
	Offset       int
}
