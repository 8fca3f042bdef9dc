package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
	"github.com/noah-isme/spa-scheduler-api/pkg/export"
)

var rosterHeaders = []string{"Booking", "Service", "Start", "End", "Status", "Staff", "Room"}

// ExportFile is a rendered roster document.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// RosterService builds the daily roster of committed assignments.
type RosterService struct {
	bookings bookingStore
	staff    staffDirectory
	rooms    roomDirectory
	logger   *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(bookings bookingStore, staff staffDirectory, rooms roomDirectory, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{bookings: bookings, staff: staff, rooms: rooms, logger: logger}
}

// Build returns the assigned bookings of a day ordered by start time.
func (s *RosterService) Build(ctx context.Context, rawDate string) (*dto.Roster, error) {
	date, err := clock.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	bookings, err := s.bookings.List(ctx, models.BookingFilter{SlotDate: date, AssignedOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	staffIDs := make([]int64, 0, len(bookings))
	seen := make(map[int64]struct{})
	for _, b := range bookings {
		if b.AssignedStaffID == nil {
			continue
		}
		if _, ok := seen[*b.AssignedStaffID]; !ok {
			seen[*b.AssignedStaffID] = struct{}{}
			staffIDs = append(staffIDs, *b.AssignedStaffID)
		}
	}
	staff, err := s.staff.ListByIDs(ctx, staffIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	staffNames := make(map[int64]string, len(staff))
	for _, st := range staff {
		staffNames[st.ID] = st.FullName
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	roomNames := make(map[int64]string, len(rooms))
	for _, room := range rooms {
		roomNames[room.ID] = room.Name
	}

	roster := &dto.Roster{Date: date, Entries: make([]dto.RosterEntry, 0, len(bookings))}
	for _, b := range bookings {
		entry := dto.RosterEntry{
			BookingID: b.ID,
			ServiceID: b.ServiceID,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    b.Status,
			StaffID:   b.AssignedStaffID,
			RoomID:    b.AssignedRoomID,
		}
		if b.AssignedStaffID != nil {
			entry.StaffName = staffNames[*b.AssignedStaffID]
		}
		if b.AssignedRoomID != nil {
			entry.RoomName = roomNames[*b.AssignedRoomID]
		}
		roster.Entries = append(roster.Entries, entry)
	}
	return roster, nil
}

// Export renders the roster of a day as csv, pdf or xlsx.
func (s *RosterService) Export(ctx context.Context, rawDate, format string) (*ExportFile, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported format")
	}
	roster, err := s.Build(ctx, rawDate)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Roster %s", roster.Date),
		Headers: rosterHeaders,
		Rows:    make([][]string, 0, len(roster.Entries)),
	}
	for _, e := range roster.Entries {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(e.BookingID, 10),
			strconv.FormatInt(e.ServiceID, 10),
			e.StartTime.String(),
			e.EndTime.String(),
			string(e.Status),
			displayName(e.StaffID, e.StaffName),
			displayName(e.RoomID, e.RoomName),
		})
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Debug("roster exported", zap.String("date", roster.Date.String()), zap.String("format", renderer.Extension()), zap.Int("rows", len(data.Rows)))

	return &ExportFile{
		Filename:    fmt.Sprintf("roster-%s.%s", roster.Date, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func displayName(id *int64, name string) string {
	switch {
	case id == nil:
		return ""
	case name == "":
		return fmt.Sprintf("#%d", *id)
	default:
		return name
	}
}
