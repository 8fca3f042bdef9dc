package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/repository"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

const testDay = clock.Date("2025-01-10")

func int64Ptr(v int64) *int64 { return &v }

type fakeBookings struct {
	mu    sync.Mutex
	rows  map[int64]models.Booking
	fail  error
	calls int
}

func newFakeBookings(bookings ...models.Booking) *fakeBookings {
	f := &fakeBookings{rows: make(map[int64]models.Booking)}
	for _, b := range bookings {
		f.rows[b.ID] = b
	}
	return f
}

func (f *fakeBookings) get(id int64) models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func (f *fakeBookings) put(b models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[b.ID] = b
}

func (f *fakeBookings) FindByID(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (f *fakeBookings) sorted(keep func(models.Booking) bool) []models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.rows {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeBookings) List(_ context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	return f.sorted(func(b models.Booking) bool {
		if b.Status == models.BookingStatusCancelled {
			return false
		}
		if filter.SlotDate != "" && b.SlotDate != filter.SlotDate {
			return false
		}
		if filter.AssignedOnly && b.AssignedStaffID == nil {
			return false
		}
		return true
	}), nil
}

func (f *fakeBookings) ListAssigned(_ context.Context, since clock.Date) ([]models.Booking, error) {
	return f.sorted(func(b models.Booking) bool {
		return b.Status != models.BookingStatusCancelled && (b.AssignedStaffID != nil || b.AssignedRoomID != nil) &&
			(since == "" || b.SlotDate >= since)
	}), nil
}

func (f *fakeBookings) ListAssignedToStaff(_ context.Context, staffID int64, date clock.Date) ([]models.Booking, error) {
	return f.sorted(func(b models.Booking) bool {
		return b.Status != models.BookingStatusCancelled && b.SlotDate == date && b.AssignedStaffID != nil && *b.AssignedStaffID == staffID
	}), nil
}

func (f *fakeBookings) ListAssignedToRoom(_ context.Context, roomID int64, date clock.Date) ([]models.Booking, error) {
	return f.sorted(func(b models.Booking) bool {
		return b.Status != models.BookingStatusCancelled && b.SlotDate == date && b.AssignedRoomID != nil && *b.AssignedRoomID == roomID
	}), nil
}

func (f *fakeBookings) Assign(_ context.Context, params repository.AssignParams) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	b, ok := f.rows[params.BookingID]
	if !ok || !b.Status.Assignable() {
		return nil, sql.ErrNoRows
	}
	b.AssignedStaffID = int64Ptr(params.StaffID)
	b.AssignedRoomID = nil
	if params.RoomID != nil {
		b.AssignedRoomID = int64Ptr(*params.RoomID)
	}
	b.Status = models.BookingStatusConfirmed
	b.UpdatedAt = time.Now()
	f.rows[b.ID] = b
	return &b, nil
}

func (f *fakeBookings) Cancel(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok || b.Status == models.BookingStatusCancelled || b.Status == models.BookingStatusCompleted {
		return nil, sql.ErrNoRows
	}
	b.Status = models.BookingStatusCancelled
	b.AssignedStaffID = nil
	b.AssignedRoomID = nil
	f.rows[id] = b
	return &b, nil
}

type fakeStaff struct {
	rows map[int64]models.Staff
}

func newFakeStaff(staff ...models.Staff) *fakeStaff {
	f := &fakeStaff{rows: make(map[int64]models.Staff)}
	for _, s := range staff {
		f.rows[s.ID] = s
	}
	return f
}

func (f *fakeStaff) FindByID(_ context.Context, id int64) (*models.Staff, error) {
	s, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeStaff) ListActive(_ context.Context) ([]models.Staff, error) {
	out := []models.Staff{}
	for _, s := range f.rows {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStaff) ListByIDs(_ context.Context, ids []int64) ([]models.Staff, error) {
	out := []models.Staff{}
	for _, id := range ids {
		if s, ok := f.rows[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeRooms struct {
	rows map[int64]models.Room
}

func newFakeRooms(rooms ...models.Room) *fakeRooms {
	f := &fakeRooms{rows: make(map[int64]models.Room)}
	for _, r := range rooms {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeRooms) FindByID(_ context.Context, id int64) (*models.Room, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (f *fakeRooms) List(_ context.Context) ([]models.Room, error) {
	out := []models.Room{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

type fakeShifts struct {
	mu      sync.Mutex
	rows    map[int64]models.ShiftRequest
	nextID  int64
	reviews int
	fail    map[int64]error
}

func newFakeShifts(shifts ...models.ShiftRequest) *fakeShifts {
	f := &fakeShifts{rows: make(map[int64]models.ShiftRequest), fail: make(map[int64]error)}
	for _, s := range shifts {
		f.rows[s.ID] = s
		if s.ID > f.nextID {
			f.nextID = s.ID
		}
	}
	return f
}

func (f *fakeShifts) get(id int64) models.ShiftRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func (f *fakeShifts) Create(_ context.Context, shift *models.ShiftRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	shift.ID = f.nextID
	f.rows[shift.ID] = *shift
	return nil
}

func (f *fakeShifts) FindByIDs(_ context.Context, ids []int64) ([]models.ShiftRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ShiftRequest{}
	for _, id := range ids {
		if s, ok := f.rows[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeShifts) filter(keep func(models.ShiftRequest) bool) []models.ShiftRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ShiftRequest{}
	for _, s := range f.rows {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeShifts) ListByDate(_ context.Context, date clock.Date) ([]models.ShiftRequest, error) {
	return f.filter(func(s models.ShiftRequest) bool { return s.ScheduleDate == date }), nil
}

func (f *fakeShifts) ListByStaffDate(_ context.Context, staffID int64, date clock.Date) ([]models.ShiftRequest, error) {
	return f.filter(func(s models.ShiftRequest) bool { return s.StaffID == staffID && s.ScheduleDate == date }), nil
}

func (f *fakeShifts) List(_ context.Context, filter models.ShiftRequestFilter) ([]models.ShiftRequest, error) {
	return f.filter(func(s models.ShiftRequest) bool {
		if filter.ScheduleDate != "" && s.ScheduleDate != filter.ScheduleDate {
			return false
		}
		if filter.StaffID != nil && s.StaffID != *filter.StaffID {
			return false
		}
		if len(filter.Status) == 0 {
			return true
		}
		for _, st := range filter.Status {
			if s.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeShifts) Review(_ context.Context, params repository.ReviewParams) (*models.ShiftRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews++
	if err := f.fail[params.ID]; err != nil {
		return nil, err
	}
	s, ok := f.rows[params.ID]
	if !ok || s.Status != models.ShiftStatusPending {
		return nil, sql.ErrNoRows
	}
	s.Status = params.Status
	s.ReviewedBy = &params.ReviewedBy
	reviewedAt := params.ReviewedAt
	s.ReviewedAt = &reviewedAt
	if params.Notes != nil {
		s.Notes = params.Notes
	}
	f.rows[s.ID] = s
	return &s, nil
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

type emittedEvent struct {
	Type        string
	AggregateID string
	Actor       string
	Payload     interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) Emit(eventType, aggregateID, actor string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{Type: eventType, AggregateID: aggregateID, Actor: actor, Payload: payload})
}

func (f *fakeEmitter) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func pendingBooking(id int64, start, end string) models.Booking {
	return models.Booking{
		ID:                id,
		ServiceID:         1,
		ServiceCategoryID: int64Ptr(4),
		SlotDate:          testDay,
		StartTime:         clock.MustParse(start),
		EndTime:           clock.MustParse(end),
		Status:            models.BookingStatusPendingReview,
	}
}

func generalStaff(id int64) models.Staff {
	return models.Staff{ID: id, FullName: "General", StaffType: models.StaffTypeGeneral, WorkStatus: models.WorkStatusActive}
}

func studentStaff(id int64) models.Staff {
	return models.Staff{ID: id, FullName: "Student", StaffType: models.StaffTypeStudent, WorkStatus: models.WorkStatusActive}
}

func activeRoom(id int64, category *int64) models.Room {
	return models.Room{ID: id, Name: "Room", CategoryID: category, Gender: "any", Status: models.RoomStatusActive}
}

func approvedShift(id, staffID int64, start, end string) models.ShiftRequest {
	return models.ShiftRequest{
		ID:           id,
		StaffID:      staffID,
		ScheduleDate: testDay,
		StartTime:    clock.MustParse(start),
		EndTime:      clock.MustParse(end),
		Status:       models.ShiftStatusApproved,
		CreatedBy:    "admin",
	}
}
