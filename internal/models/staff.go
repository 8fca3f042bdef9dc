package models

import "time"

// StaffType distinguishes permanent staff from students.
type StaffType string

const (
	StaffTypeGeneral StaffType = "general"
	StaffTypeStudent StaffType = "student"
)

// WorkStatus marks whether staff can take assignments.
type WorkStatus string

const (
	WorkStatusActive   WorkStatus = "active"
	WorkStatusInactive WorkStatus = "inactive"
)

// Staff is a therapist that can be assigned to bookings.
type Staff struct {
	ID         int64      `db:"id" json:"id"`
	FullName   string     `db:"full_name" json:"full_name"`
	StaffType  StaffType  `db:"staff_type" json:"staff_type"`
	WorkStatus WorkStatus `db:"work_status" json:"work_status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the staff member is an assignment candidate.
func (s Staff) Active() bool {
	return s.WorkStatus == WorkStatusActive
}
