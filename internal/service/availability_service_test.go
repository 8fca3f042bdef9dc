package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/events"
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

var reviewClock = time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC)

func pendingShift(id, staffID int64, start, end string) models.ShiftRequest {
	s := approvedShift(id, staffID, start, end)
	s.Status = models.ShiftStatusPending
	s.CreatedBy = "staff"
	return s
}

func newAvailabilityFixture(shifts *fakeShifts) (*AvailabilityService, *fakeAudit, *fakeEmitter) {
	audit := &fakeAudit{}
	emitter := &fakeEmitter{}
	svc := NewAvailabilityService(shifts, newFakeStaff(generalStaff(1), studentStaff(3)), nil, nil,
		WithAvailabilityAudit(audit),
		WithAvailabilityEvents(emitter),
	)
	svc.now = func() time.Time { return reviewClock }
	return svc, audit, emitter
}

func TestReviewRejectRequiresNotes(t *testing.T) {
	shifts := newFakeShifts(pendingShift(1, 3, "10:00", "12:00"), pendingShift(2, 3, "13:00", "15:00"))
	svc, audit, emitter := newAvailabilityFixture(shifts)

	for _, notes := range []string{"", "   \t "} {
		_, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
			ScheduleIDs: []int64{1, 2},
			Action:      dto.ReviewActionReject,
			Notes:       notes,
		}, "admin")
		requireCode(t, err, appErrors.ErrValidation)
	}

	assert.Zero(t, shifts.reviews)
	assert.Equal(t, models.ShiftStatusPending, shifts.get(1).Status)
	assert.Equal(t, models.ShiftStatusPending, shifts.get(2).Status)
	assert.Empty(t, audit.logs)
	assert.Empty(t, emitter.types())
}

func TestReviewRejectWithNotes(t *testing.T) {
	shifts := newFakeShifts(pendingShift(1, 3, "10:00", "12:00"), pendingShift(2, 3, "13:00", "15:00"))
	svc, audit, emitter := newAvailabilityFixture(shifts)

	res, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
		ScheduleIDs: []int64{1, 2},
		Action:      dto.ReviewActionReject,
		Notes:       "  Fully staffed  ",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.Rejected)
	assert.Empty(t, res.Approved)

	row := shifts.get(1)
	assert.Equal(t, models.ShiftStatusRejected, row.Status)
	require.NotNil(t, row.Notes)
	assert.Equal(t, "Fully staffed", *row.Notes)
	require.NotNil(t, row.ReviewedBy)
	assert.Equal(t, "admin", *row.ReviewedBy)
	assert.True(t, reviewClock.Equal(*row.ReviewedAt))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionShiftReview, audit.logs[0].Action)
	require.Len(t, emitter.events, 1)
	assert.Equal(t, events.TypeAvailabilityReview, emitter.events[0].Type)
	assert.Equal(t, "2025-01-10", emitter.events[0].AggregateID)
}

func TestReviewApproveReportsSkippedAndNotFound(t *testing.T) {
	already := approvedShift(2, 3, "13:00", "15:00")
	shifts := newFakeShifts(pendingShift(1, 3, "10:00", "12:00"), already, pendingShift(4, 1, "10:00", "12:00"))
	svc, _, _ := newAvailabilityFixture(shifts)

	res, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
		ScheduleIDs: []int64{4, 1, 2, 9, 1, 4},
		Action:      dto.ReviewActionApprove,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, res.Approved)
	assert.Equal(t, []int64{2}, res.Skipped)
	assert.Equal(t, []int64{9}, res.NotFound)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 2, shifts.reviews)
	assert.Nil(t, shifts.get(1).Notes)
}

func TestReviewNotesLengthLimit(t *testing.T) {
	shifts := newFakeShifts(pendingShift(1, 3, "10:00", "12:00"))
	svc, _, _ := newAvailabilityFixture(shifts)

	_, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
		ScheduleIDs: []int64{1},
		Action:      dto.ReviewActionApprove,
		Notes:       strings.Repeat("ü", dto.MaxReviewNotes+1),
	}, "admin")
	requireCode(t, err, appErrors.ErrValidation)
	assert.Zero(t, shifts.reviews)

	res, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
		ScheduleIDs: []int64{1},
		Action:      dto.ReviewActionApprove,
		Notes:       strings.Repeat("ü", dto.MaxReviewNotes),
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Approved)
}

func TestReviewValidatesPayload(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(newFakeShifts())

	cases := []dto.ReviewAvailabilityRequest{
		{Action: dto.ReviewActionApprove},
		{ScheduleIDs: []int64{1}, Action: "archive"},
		{ScheduleIDs: []int64{0}, Action: dto.ReviewActionApprove},
	}
	for _, req := range cases {
		_, err := svc.Review(context.Background(), req, "admin")
		requireCode(t, err, appErrors.ErrValidation)
	}
}

func TestReviewStopsOnStoreFailureWithPartialResult(t *testing.T) {
	shifts := newFakeShifts(pendingShift(1, 3, "10:00", "12:00"), pendingShift(2, 3, "13:00", "15:00"), pendingShift(3, 3, "16:00", "17:00"))
	shifts.fail[2] = errors.New("deadlock detected")
	svc, _, _ := newAvailabilityFixture(shifts)

	_, err := svc.Review(context.Background(), dto.ReviewAvailabilityRequest{
		ScheduleIDs: []int64{1, 2, 3},
		Action:      dto.ReviewActionApprove,
	}, "admin")
	appErr := requireCode(t, err, appErrors.ErrInternal)
	partial, ok := appErr.Details.(*dto.ReviewAvailabilityResult)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, partial.Approved)
	assert.Equal(t, models.ShiftStatusPending, shifts.get(3).Status)
}

func TestSubmitAndCreateShift(t *testing.T) {
	shifts := newFakeShifts()
	svc, audit, _ := newAvailabilityFixture(shifts)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, dto.ShiftRequestPayload{
		StaffID:      3,
		ScheduleDate: "2025-01-10",
		StartTime:    "12:00",
		EndTime:      "15:00",
	}, "student-3")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusPending, submitted.Status)
	assert.Nil(t, submitted.ReviewedBy)
	assert.Equal(t, "student-3", submitted.CreatedBy)

	created, err := svc.CreateShift(ctx, dto.ShiftRequestPayload{
		StaffID:      1,
		ScheduleDate: "2025-01-10",
		StartTime:    "08:00",
		EndTime:      "12:00",
		Notes:        "opening shift",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusApproved, created.Status)
	require.NotNil(t, created.ReviewedBy)
	assert.Equal(t, "admin", *created.ReviewedBy)
	assert.NotEqual(t, submitted.ID, created.ID)
	assert.Len(t, audit.logs, 2)

	listed, err := svc.List(ctx, dto.ShiftRequestQuery{ScheduleDate: "2025-01-10", Status: []models.ShiftStatus{models.ShiftStatusPending}})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, submitted.ID, listed[0].ID)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newAvailabilityFixture(newFakeShifts())
	ctx := context.Background()

	cases := []dto.ShiftRequestPayload{
		{StaffID: 1, ScheduleDate: "10/01/2025", StartTime: "10:00", EndTime: "11:00"},
		{StaffID: 1, ScheduleDate: "2025-01-10", StartTime: "11:00", EndTime: "10:00"},
		{StaffID: 1, ScheduleDate: "2025-01-10", StartTime: "25:00", EndTime: "26:00"},
		{StaffID: 0, ScheduleDate: "2025-01-10", StartTime: "10:00", EndTime: "11:00"},
	}
	for _, payload := range cases {
		_, err := svc.Submit(ctx, payload, "staff")
		requireCode(t, err, appErrors.ErrValidation)
	}

	_, err := svc.Submit(ctx, dto.ShiftRequestPayload{StaffID: 77, ScheduleDate: "2025-01-10", StartTime: "10:00", EndTime: "11:00"}, "staff")
	requireCode(t, err, appErrors.ErrNotFound)

	_, err = svc.List(ctx, dto.ShiftRequestQuery{Status: []models.ShiftStatus{"archived"}})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestApprovalMakesStudentAssignable(t *testing.T) {
	shifts := newFakeShifts(pendingShift(5, 3, "12:00", "15:00"))
	availability, _, _ := newAvailabilityFixture(shifts)
	f := newAssignmentFixture(t, []models.Booking{pendingBooking(1, "13:00", "14:00")})
	f.svc.shifts = shifts
	ctx := context.Background()

	_, err := f.svc.CommitAssignment(ctx, 1, commitReq(3, nil), "admin")
	appErr := requireCode(t, err, appErrors.ErrNotEligible)
	assert.Equal(t, scheduling.ReasonNoAvailability, appErr.Details.(dto.EligibilityDetail).Reason)

	_, err = availability.Review(ctx, dto.ReviewAvailabilityRequest{ScheduleIDs: []int64{5}, Action: dto.ReviewActionApprove}, "admin")
	require.NoError(t, err)

	_, err = f.svc.CommitAssignment(ctx, 1, commitReq(3, nil), "admin")
	require.NoError(t, err)
}

func TestPendingShiftRemovesDefaultHoursFallback(t *testing.T) {
	shifts := newFakeShifts()
	availability, _, _ := newAvailabilityFixture(shifts)
	f := newAssignmentFixture(t, []models.Booking{pendingBooking(1, "10:00", "11:00")})
	f.svc.shifts = shifts
	ctx := context.Background()

	_, err := availability.Submit(ctx, dto.ShiftRequestPayload{StaffID: 1, ScheduleDate: "2025-01-10", StartTime: "14:00", EndTime: "16:00"}, "staff")
	require.NoError(t, err)

	_, err = f.svc.CommitAssignment(ctx, 1, commitReq(1, nil), "admin")
	requireCode(t, err, appErrors.ErrNotEligible)
}
