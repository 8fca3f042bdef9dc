package models

import (
	"time"

	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

// BookingStatus captures the lifecycle of a paid booking.
type BookingStatus string

const (
	BookingStatusDraft          BookingStatus = "draft"
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusPendingReview  BookingStatus = "pending_review"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// Assignable reports whether staff and rooms may be (re)assigned in this status.
func (s BookingStatus) Assignable() bool {
	return s == BookingStatusPendingReview || s == BookingStatusConfirmed
}

// Booking is a customer appointment created at checkout.
type Booking struct {
	ID                int64         `db:"id" json:"id"`
	ServiceID         int64         `db:"service_id" json:"service_id"`
	ServiceCategoryID *int64        `db:"service_category_id" json:"service_category_id,omitempty"`
	SlotDate          clock.Date    `db:"slot_date" json:"slot_date"`
	StartTime         clock.Time    `db:"start_time" json:"start_time"`
	EndTime           clock.Time    `db:"end_time" json:"end_time"`
	Status            BookingStatus `db:"status" json:"status"`
	AssignedStaffID   *int64        `db:"assigned_staff_id" json:"assigned_staff_id,omitempty"`
	AssignedRoomID    *int64        `db:"assigned_room_id" json:"assigned_room_id,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	SlotDate     clock.Date
	AssignedOnly bool
	StaffID      *int64
	RoomID       *int64
}
