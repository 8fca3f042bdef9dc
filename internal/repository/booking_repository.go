package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

const bookingColumns = `id, service_id, service_category_id, slot_date, start_time, end_time, status,
       assigned_staff_id, assigned_room_id, created_at, updated_at`

// BookingRepository reads bookings and persists assignment outcomes.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByID fetches a booking. Missing rows surface as sql.ErrNoRows.
func (r *BookingRepository) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings matching the filter ordered by day, start time and id.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status <> 'cancelled'`
	args := make([]interface{}, 0, 3)
	if filter.SlotDate != "" {
		args = append(args, filter.SlotDate)
		query += fmt.Sprintf(" AND slot_date = $%d", len(args))
	}
	if filter.AssignedOnly {
		query += " AND assigned_staff_id IS NOT NULL"
	}
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		query += fmt.Sprintf(" AND assigned_staff_id = $%d", len(args))
	}
	if filter.RoomID != nil {
		args = append(args, *filter.RoomID)
		query += fmt.Sprintf(" AND assigned_room_id = $%d", len(args))
	}
	query += " ORDER BY slot_date, start_time, id"

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// ListAssigned returns every non-cancelled booking holding a staff member or
// room on or after since. An empty since returns all days.
func (r *BookingRepository) ListAssigned(ctx context.Context, since clock.Date) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	WHERE status <> 'cancelled' AND (assigned_staff_id IS NOT NULL OR assigned_room_id IS NOT NULL)`
	args := []interface{}{}
	if since != "" {
		query += " AND slot_date >= $1"
		args = append(args, since)
	}
	query += " ORDER BY slot_date, start_time, id"

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list assigned bookings: %w", err)
	}
	return bookings, nil
}

// ListAssignedToStaff returns the live bookings held by a staff member on date.
func (r *BookingRepository) ListAssignedToStaff(ctx context.Context, staffID int64, date clock.Date) ([]models.Booking, error) {
	return r.listAssignedTo(ctx, "assigned_staff_id", staffID, date)
}

// ListAssignedToRoom returns the live bookings held by a room on date.
func (r *BookingRepository) ListAssignedToRoom(ctx context.Context, roomID int64, date clock.Date) ([]models.Booking, error) {
	return r.listAssignedTo(ctx, "assigned_room_id", roomID, date)
}

func (r *BookingRepository) listAssignedTo(ctx context.Context, column string, id int64, date clock.Date) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings
	WHERE %s = $1 AND slot_date = $2 AND status <> 'cancelled' ORDER BY start_time, id`, bookingColumns, column)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, id, date); err != nil {
		return nil, fmt.Errorf("list bookings by %s: %w", column, err)
	}
	return bookings, nil
}

// AssignParams carries the resources to write onto a booking.
type AssignParams struct {
	BookingID int64
	StaffID   int64
	RoomID    *int64
}

// Assign writes the staff/room pair and confirms the booking. The update only
// applies to assignable statuses; otherwise sql.ErrNoRows is returned.
func (r *BookingRepository) Assign(ctx context.Context, params AssignParams) (*models.Booking, error) {
	query := fmt.Sprintf(`UPDATE bookings
	SET assigned_staff_id = $2, assigned_room_id = $3, status = '%s', updated_at = NOW()
	WHERE id = $1 AND status IN ('%s', '%s')
	RETURNING %s`,
		models.BookingStatusConfirmed,
		models.BookingStatusPendingReview, models.BookingStatusConfirmed,
		bookingColumns,
	)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, params.BookingID, params.StaffID, params.RoomID); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Cancel marks a booking cancelled and clears its resources. Bookings that are
// already cancelled or completed are left untouched and yield sql.ErrNoRows.
func (r *BookingRepository) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	query := fmt.Sprintf(`UPDATE bookings
	SET status = '%s', assigned_staff_id = NULL, assigned_room_id = NULL, updated_at = NOW()
	WHERE id = $1 AND status NOT IN ('%s', '%s')
	RETURNING %s`,
		models.BookingStatusCancelled,
		models.BookingStatusCancelled, models.BookingStatusCompleted,
		bookingColumns,
	)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}
