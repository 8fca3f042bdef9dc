package models

import "time"

// Audit actions emitted by the scheduling engine.
const (
	AuditActionAssignmentCommit = "ASSIGNMENT_COMMIT"
	AuditActionBookingCancel    = "BOOKING_CANCEL"
	AuditActionShiftSubmit      = "SHIFT_SUBMIT"
	AuditActionShiftReview      = "SHIFT_REVIEW"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Actor      string    `db:"actor" json:"actor"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
