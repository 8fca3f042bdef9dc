// Package scheduling holds the pure resource-assignment rules: availability
// policy, the per-resource conflict index, candidate resolution and the
// locking primitives used by the assignment transaction.
package scheduling

import (
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

// Reason explains why a staff member or room was not eligible.
type Reason string

const (
	ReasonNoAvailability      Reason = "NoAvailability"
	ReasonOutsideDefaultHours Reason = "OutsideDefaultHours"
	ReasonInactive            Reason = "Inactive"
	ReasonBusy                Reason = "Busy"
	ReasonMaintenance         Reason = "Maintenance"
	ReasonCategoryMismatch    Reason = "CategoryMismatch"
)

// Eligibility is the outcome of an availability check.
type Eligibility struct {
	Eligible bool
	Reason   Reason
	// ShiftID is the approved shift that contains the window, nil when the
	// default-hours fallback applied.
	ShiftID      *int64
	DefaultHours bool
}

// Policy carries the fixed default hours granted to general staff.
type Policy struct {
	DefaultStart clock.Time
	DefaultEnd   clock.Time
}

// DefaultPolicy returns the 10:00-17:00 default window.
func DefaultPolicy() Policy {
	return Policy{DefaultStart: clock.New(10, 0), DefaultEnd: clock.New(17, 0)}
}

// Resolve decides whether staff may work [start,end) on date.
//
// An approved shift containing the window always qualifies. General staff
// with no shift rows at all for the date (in any status) fall back to the
// default hours; once any row exists they must match an approved one like
// everybody else. Students never fall back.
func (p Policy) Resolve(staff models.Staff, date clock.Date, start, end clock.Time, shifts []models.ShiftRequest) Eligibility {
	rowsForDate := 0
	for i := range shifts {
		shift := shifts[i]
		if shift.StaffID != staff.ID || shift.ScheduleDate != date {
			continue
		}
		rowsForDate++
		if shift.Status != models.ShiftStatusApproved {
			continue
		}
		if clock.Contains(shift.StartTime, shift.EndTime, start, end) {
			id := shift.ID
			return Eligibility{Eligible: true, ShiftID: &id}
		}
	}

	if staff.StaffType == models.StaffTypeGeneral && rowsForDate == 0 {
		if clock.Contains(p.DefaultStart, p.DefaultEnd, start, end) {
			return Eligibility{Eligible: true, DefaultHours: true}
		}
		return Eligibility{Reason: ReasonOutsideDefaultHours}
	}
	return Eligibility{Reason: ReasonNoAvailability}
}
