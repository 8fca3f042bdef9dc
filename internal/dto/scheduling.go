package dto

import (
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/scheduling"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

// Review actions accepted by the availability review endpoint.
const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

// MaxReviewNotes bounds reviewer notes, counted in characters.
const MaxReviewNotes = 500

// CandidatesResponse lists staff and rooms a booking may be assigned to.
type CandidatesResponse struct {
	BookingID     int64                       `json:"booking_id"`
	SlotDate      clock.Date                  `json:"slot_date"`
	StartTime     clock.Time                  `json:"start_time"`
	EndTime       clock.Time                  `json:"end_time"`
	Staff         []scheduling.StaffCandidate `json:"staff"`
	Rooms         []models.Room               `json:"rooms"`
	RejectedStaff []scheduling.Rejection      `json:"rejected_staff,omitempty"`
	RejectedRooms []scheduling.Rejection      `json:"rejected_rooms,omitempty"`

	// FromCache is set when the list was served from the candidate cache.
	FromCache bool `json:"-"`
}

// CommitAssignmentRequest chooses the staff member and optional room for a booking.
type CommitAssignmentRequest struct {
	StaffID int64  `json:"staff_id" validate:"required,gt=0"`
	RoomID  *int64 `json:"room_id,omitempty" validate:"omitempty,gt=0"`
}

// AssignmentResult reports a committed assignment.
type AssignmentResult struct {
	Booking    models.Booking `json:"booking"`
	Reassigned bool           `json:"reassigned"`
}

// CancelResult reports a cancellation. AlreadyCancelled marks an idempotent repeat.
type CancelResult struct {
	Booking          models.Booking `json:"booking"`
	AlreadyCancelled bool           `json:"already_cancelled"`
}

// ConflictDetail identifies the resource and bookings blocking a commit.
type ConflictDetail struct {
	Resource   scheduling.ResourceKind `json:"resource"`
	ResourceID int64                   `json:"resource_id"`
	BookingIDs []int64                 `json:"booking_ids"`
}

// EligibilityDetail explains why a resource failed the availability or room policy.
type EligibilityDetail struct {
	Resource   scheduling.ResourceKind `json:"resource"`
	ResourceID int64                   `json:"resource_id"`
	Reason     scheduling.Reason       `json:"reason"`
}

// ShiftRequestPayload declares an availability window for one date.
type ShiftRequestPayload struct {
	StaffID      int64  `json:"staff_id" validate:"required,gt=0"`
	ScheduleDate string `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	Notes        string `json:"notes" validate:"max=500"`
}

// ReviewAvailabilityRequest approves or rejects a batch of pending shift requests.
type ReviewAvailabilityRequest struct {
	ScheduleIDs []int64 `json:"schedule_ids" validate:"required,min=1,max=200,dive,gt=0"`
	Action      string  `json:"action" validate:"required,oneof=approve reject"`
	Notes       string  `json:"notes"`
}

// ReviewAvailabilityResult reports the outcome per id. Skipped ids were no
// longer pending; NotFound ids do not exist.
type ReviewAvailabilityResult struct {
	Approved []int64 `json:"approved"`
	Rejected []int64 `json:"rejected"`
	Skipped  []int64 `json:"skipped"`
	NotFound []int64 `json:"not_found"`
}

// ShiftRequestQuery mirrors supported listing filters.
type ShiftRequestQuery struct {
	Status       []models.ShiftStatus
	StaffID      *int64
	ScheduleDate string
	Limit        int
	Offset       int
}

// RebuildResult summarises a conflict index rebuild.
type RebuildResult struct {
	Bookings   int   `json:"bookings"`
	Intervals  int   `json:"intervals"`
	DurationMs int64 `json:"duration_ms"`
}

// RosterEntry is one committed booking on the daily roster.
type RosterEntry struct {
	BookingID int64                `json:"booking_id"`
	ServiceID int64                `json:"service_id"`
	StartTime clock.Time           `json:"start_time"`
	EndTime   clock.Time           `json:"end_time"`
	Status    models.BookingStatus `json:"status"`
	StaffID   *int64               `json:"staff_id,omitempty"`
	StaffName string               `json:"staff_name,omitempty"`
	RoomID    *int64               `json:"room_id,omitempty"`
	RoomName  string               `json:"room_name,omitempty"`
}

// Roster is the committed schedule of one day.
type Roster struct {
	Date    clock.Date    `json:"date"`
	Entries []RosterEntry `json:"entries"`
}
