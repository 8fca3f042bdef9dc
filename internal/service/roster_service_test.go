package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

func rosterFixture() *RosterService {
	morning := pendingBooking(1, "10:00", "11:00")
	morning.Status = models.BookingStatusConfirmed
	morning.AssignedStaffID = int64Ptr(1)
	morning.AssignedRoomID = int64Ptr(2)
	early := pendingBooking(2, "09:00", "09:30")
	early.Status = models.BookingStatusConfirmed
	early.AssignedStaffID = int64Ptr(8)
	unassigned := pendingBooking(3, "12:00", "13:00")
	cancelled := pendingBooking(4, "14:00", "15:00")
	cancelled.Status = models.BookingStatusCancelled
	otherDay := pendingBooking(5, "10:00", "11:00")
	otherDay.SlotDate = "2025-01-11"
	otherDay.AssignedStaffID = int64Ptr(1)

	staff := generalStaff(1)
	staff.FullName = "Ayu"
	room := activeRoom(2, nil)
	room.Name = "Lotus"
	return NewRosterService(
		newFakeBookings(morning, early, unassigned, cancelled, otherDay),
		newFakeStaff(staff),
		newFakeRooms(room),
		nil,
	)
}

func TestRosterBuild(t *testing.T) {
	roster, err := rosterFixture().Build(context.Background(), "2025-01-10")
	require.NoError(t, err)
	require.Len(t, roster.Entries, 2)

	assert.Equal(t, int64(2), roster.Entries[0].BookingID)
	assert.Empty(t, roster.Entries[0].StaffName)
	assert.Equal(t, int64(1), roster.Entries[1].BookingID)
	assert.Equal(t, "Ayu", roster.Entries[1].StaffName)
	assert.Equal(t, "Lotus", roster.Entries[1].RoomName)
}

func TestRosterExportCSV(t *testing.T) {
	file, err := rosterFixture().Export(context.Background(), "2025-01-10", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "roster-2025-01-10.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Booking,Service,Start,End,Status,Staff,Room", lines[0])
	assert.Equal(t, "2,1,09:00,09:30,confirmed,#8,", lines[1])
	assert.Equal(t, "1,1,10:00,11:00,confirmed,Ayu,Lotus", lines[2])
}

func TestRosterExportBinaryFormats(t *testing.T) {
	svc := rosterFixture()
	for _, format := range []string{"pdf", "xlsx"} {
		file, err := svc.Export(context.Background(), "2025-01-10", format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Body, format)
		assert.True(t, strings.HasSuffix(file.Filename, "."+format))
	}
}

func TestRosterRejectsBadInput(t *testing.T) {
	svc := rosterFixture()

	_, err := svc.Build(context.Background(), "tomorrow")
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), "2025-01-10", "docx")
	requireCode(t, err, appErrors.ErrValidation)
}
