package scheduling

import (
	"sort"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
)

// StaffCandidate is a staff member provisionally eligible for a booking.
type StaffCandidate struct {
	Staff        models.Staff `json:"staff"`
	ShiftID      *int64       `json:"shift_id,omitempty"`
	DefaultHours bool         `json:"default_hours"`
}

// Rejection records why a resource was left out of a candidate list.
type Rejection struct {
	ID     int64  `json:"id"`
	Reason Reason `json:"reason"`
}

// Resolver combines availability policy, room policy and the conflict index.
// It never mutates state and is safe for concurrent use.
type Resolver struct {
	policy Policy
	index  *ConflictIndex
}

// NewResolver constructs a Resolver.
func NewResolver(policy Policy, index *ConflictIndex) *Resolver {
	return &Resolver{policy: policy, index: index}
}

// Policy exposes the availability policy in use.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// CheckStaff applies work status and availability rules, ignoring conflicts.
func (r *Resolver) CheckStaff(b models.Booking, staff models.Staff, shifts []models.ShiftRequest) Eligibility {
	if !staff.Active() {
		return Eligibility{Reason: ReasonInactive}
	}
	return r.policy.Resolve(staff, b.SlotDate, b.StartTime, b.EndTime, shifts)
}

// CheckRoom applies the maintenance and category rules.
func CheckRoom(b models.Booking, room models.Room) (Reason, bool) {
	if room.Status != models.RoomStatusActive {
		return ReasonMaintenance, false
	}
	if !room.Accepts(b.ServiceCategoryID) {
		return ReasonCategoryMismatch, false
	}
	return "", true
}

// StaffBusy reports whether the staff member already holds an overlapping booking.
func (r *Resolver) StaffBusy(b models.Booking, staffID int64) bool {
	return r.index.HasConflict(StaffKey(staffID, b.SlotDate), b.StartTime, b.EndTime, b.ID)
}

// RoomBusy reports whether the room already holds an overlapping booking.
func (r *Resolver) RoomBusy(b models.Booking, roomID int64) bool {
	return r.index.HasConflict(RoomKey(roomID, b.SlotDate), b.StartTime, b.EndTime, b.ID)
}

// StaffCandidates returns eligible, conflict-free staff ordered by id
// ascending, plus the reason every other staff member was skipped.
// shiftsByStaff holds all shift rows of the booking date keyed by staff id.
func (r *Resolver) StaffCandidates(b models.Booking, staff []models.Staff, shiftsByStaff map[int64][]models.ShiftRequest) ([]StaffCandidate, []Rejection) {
	ordered := append([]models.Staff(nil), staff...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	candidates := make([]StaffCandidate, 0, len(ordered))
	var rejected []Rejection
	for _, s := range ordered {
		elig := r.CheckStaff(b, s, shiftsByStaff[s.ID])
		if !elig.Eligible {
			rejected = append(rejected, Rejection{ID: s.ID, Reason: elig.Reason})
			continue
		}
		if r.StaffBusy(b, s.ID) {
			rejected = append(rejected, Rejection{ID: s.ID, Reason: ReasonBusy})
			continue
		}
		candidates = append(candidates, StaffCandidate{Staff: s, ShiftID: elig.ShiftID, DefaultHours: elig.DefaultHours})
	}
	return candidates, rejected
}

// RoomCandidates returns usable, conflict-free rooms ordered by id ascending.
func (r *Resolver) RoomCandidates(b models.Booking, rooms []models.Room) ([]models.Room, []Rejection) {
	ordered := append([]models.Room(nil), rooms...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	candidates := make([]models.Room, 0, len(ordered))
	var rejected []Rejection
	for _, room := range ordered {
		if reason, ok := CheckRoom(b, room); !ok {
			rejected = append(rejected, Rejection{ID: room.ID, Reason: reason})
			continue
		}
		if r.RoomBusy(b, room.ID) {
			rejected = append(rejected, Rejection{ID: room.ID, Reason: ReasonBusy})
			continue
		}
		candidates = append(candidates, room)
	}
	return candidates, rejected
}
