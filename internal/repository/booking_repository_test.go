package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var bookingCols = []string{"id", "service_id", "service_category_id", "slot_date", "start_time", "end_time", "status",
	"assigned_staff_id", "assigned_room_id", "created_at", "updated_at"}

func TestBookingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(5, 1, 4, day, "10:00:00", "11:30:00", "pending_review", nil, nil, now, now))

	booking, err := NewBookingRepository(db).FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, clock.Date("2025-01-10"), booking.SlotDate)
	assert.Equal(t, clock.MustParse("10:00"), booking.StartTime)
	assert.Equal(t, clock.MustParse("11:30"), booking.EndTime)
	require.NotNil(t, booking.ServiceCategoryID)
	assert.EqualValues(t, 4, *booking.ServiceCategoryID)
	assert.Nil(t, booking.AssignedStaffID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAssign(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	roomID := int64(2)
	mock.ExpectQuery(`UPDATE bookings\s+SET assigned_staff_id = \$2, assigned_room_id = \$3, status = 'confirmed'.*WHERE id = \$1 AND status IN \('pending_review', 'confirmed'\)`).
		WithArgs(int64(5), int64(7), &roomID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(5, 1, nil, "2025-01-10", "10:00:00", "11:00:00", "confirmed", 7, 2, now, now))

	booking, err := NewBookingRepository(db).Assign(context.Background(), AssignParams{BookingID: 5, StaffID: 7, RoomID: &roomID})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.EqualValues(t, 7, *booking.AssignedStaffID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAssignWrongStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("UPDATE bookings").
		WithArgs(int64(5), int64(7), nil).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepository(db).Assign(context.Background(), AssignParams{BookingID: 5, StaffID: 7})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SET status = 'cancelled', assigned_staff_id = NULL, assigned_room_id = NULL.*status NOT IN \('cancelled', 'completed'\)`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(9, 1, nil, "2025-01-10", "10:00:00", "11:00:00", "cancelled", nil, nil, now, now))

	booking, err := NewBookingRepository(db).Cancel(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListAssigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`status <> 'cancelled' AND \(assigned_staff_id IS NOT NULL OR assigned_room_id IS NOT NULL\) AND slot_date >= \$1`).
		WithArgs(clock.Date("2025-01-01")).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(1, 1, nil, "2025-01-10", "10:00:00", "11:00:00", "confirmed", 7, nil, now, now).
			AddRow(2, 1, nil, "2025-01-10", "11:00:00", "12:00:00", "confirmed", 7, 3, now, now))

	bookings, err := NewBookingRepository(db).ListAssigned(context.Background(), "2025-01-01")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.EqualValues(t, 3, *bookings[1].AssignedRoomID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListAssignedToRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`WHERE assigned_room_id = \$1 AND slot_date = \$2`).
		WithArgs(int64(3), clock.Date("2025-01-10")).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	bookings, err := NewBookingRepository(db).ListAssignedToRoom(context.Background(), 3, "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, bookings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	staffID := int64(7)
	mock.ExpectQuery(`AND slot_date = \$1 AND assigned_staff_id IS NOT NULL AND assigned_staff_id = \$2 ORDER BY slot_date, start_time, id`).
		WithArgs(clock.Date("2025-01-10"), staffID).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepository(db).List(context.Background(), models.BookingFilter{
		SlotDate:     "2025-01-10",
		AssignedOnly: true,
		StaffID:      &staffID,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
