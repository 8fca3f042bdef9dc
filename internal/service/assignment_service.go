package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/events"
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/repository"
	"github.com/noah-isme/spa-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

// maxCommitAttempts bounds retries when a booking changes between the
// unlocked read and the locked re-read.
const maxCommitAttempts = 3

// AssignmentService resolves candidates for bookings and commits or releases
// staff/room assignments against the conflict index.
type AssignmentService struct {
	bookings bookingStore
	staff    staffDirectory
	rooms    roomDirectory
	shifts   shiftStore
	index    *scheduling.ConflictIndex
	policy   scheduling.Policy
	resolver *scheduling.Resolver
	locker   scheduling.Locker
	validate *validator.Validate
	logger   *zap.Logger

	lockWait time.Duration
	reload   bool
	cache    *CacheService
	cacheTTL time.Duration
	metrics  *MetricsService
	audit    auditLogger
	events   EventEmitter

	// gate lets commits and cancellations run concurrently while a full
	// index rebuild runs alone.
	gate sync.RWMutex
}

// AssignmentServiceOption configures the service.
type AssignmentServiceOption func(*AssignmentService)

// WithAvailabilityPolicy overrides the default-hours policy.
func WithAvailabilityPolicy(policy scheduling.Policy) AssignmentServiceOption {
	return func(s *AssignmentService) { s.policy = policy }
}

// WithLocker sets the resource-day locker and how long a commit may wait for it.
func WithLocker(locker scheduling.Locker, wait time.Duration) AssignmentServiceOption {
	return func(s *AssignmentService) {
		if locker != nil {
			s.locker = locker
		}
		if wait > 0 {
			s.lockWait = wait
		}
	}
}

// WithReloadOnCommit re-reads locked resource-days from the database before
// validating. Needed when several instances commit against the same data.
func WithReloadOnCommit(enabled bool) AssignmentServiceOption {
	return func(s *AssignmentService) { s.reload = enabled }
}

// WithCandidateCache caches candidate lists per booking.
func WithCandidateCache(cache *CacheService, ttl time.Duration) AssignmentServiceOption {
	return func(s *AssignmentService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithAssignmentMetrics attaches Prometheus instrumentation.
func WithAssignmentMetrics(metrics *MetricsService) AssignmentServiceOption {
	return func(s *AssignmentService) { s.metrics = metrics }
}

// WithAssignmentAudit records commits and cancellations in the audit trail.
func WithAssignmentAudit(audit auditLogger) AssignmentServiceOption {
	return func(s *AssignmentService) { s.audit = audit }
}

// WithAssignmentEvents publishes assignment and cancellation events.
func WithAssignmentEvents(emitter EventEmitter) AssignmentServiceOption {
	return func(s *AssignmentService) { s.events = emitter }
}

// NewAssignmentService constructs the service. The index is shared with the
// rebuild job and must outlive the service.
func NewAssignmentService(bookings bookingStore, staff staffDirectory, rooms roomDirectory, shifts shiftStore, index *scheduling.ConflictIndex, validate *validator.Validate, logger *zap.Logger, opts ...AssignmentServiceOption) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if index == nil {
		index = scheduling.NewConflictIndex()
	}
	svc := &AssignmentService{
		bookings: bookings,
		staff:    staff,
		rooms:    rooms,
		shifts:   shifts,
		index:    index,
		policy:   scheduling.DefaultPolicy(),
		locker:   scheduling.NewMemoryLocker(),
		validate: validate,
		logger:   logger,
		lockWait: 3 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.resolver = scheduling.NewResolver(svc.policy, svc.index)
	return svc
}

// GetCandidates lists eligible, conflict-free staff and rooms for a booking,
// ordered by id. The result is a hint: CommitAssignment re-validates.
func (s *AssignmentService) GetCandidates(ctx context.Context, bookingID int64) (*dto.CandidatesResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.Assignable() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("booking in status %s does not accept assignments", booking.Status))
	}

	cacheKey := candidateCacheKey(booking.SlotDate, booking.ID)
	var cached dto.CandidatesResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.FromCache = true
		return &cached, nil
	}
	stamp := s.cache.Stamp(booking.SlotDate.String())

	staff, err := s.staff.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	shifts, err := s.shifts.ListByDate(ctx, booking.SlotDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift requests")
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	byStaff := make(map[int64][]models.ShiftRequest)
	for _, shift := range shifts {
		byStaff[shift.StaffID] = append(byStaff[shift.StaffID], shift)
	}

	staffCandidates, rejectedStaff := s.resolver.StaffCandidates(*booking, staff, byStaff)
	roomCandidates, rejectedRooms := s.resolver.RoomCandidates(*booking, rooms)
	resp := &dto.CandidatesResponse{
		BookingID:     booking.ID,
		SlotDate:      booking.SlotDate,
		StartTime:     booking.StartTime,
		EndTime:       booking.EndTime,
		Staff:         staffCandidates,
		Rooms:         roomCandidates,
		RejectedStaff: rejectedStaff,
		RejectedRooms: rejectedRooms,
	}
	s.cache.SetIfCurrent(ctx, booking.SlotDate.String(), stamp, cacheKey, resp, s.cacheTTL)
	return resp, nil
}

// CommitAssignment assigns the chosen staff member and optional room to a
// booking and confirms it. Eligibility and conflicts are re-checked while
// every affected resource-day is locked.
func (s *AssignmentService) CommitAssignment(ctx context.Context, bookingID int64, req dto.CommitAssignmentRequest, actor string) (*dto.AssignmentResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	staff, err := s.staff.FindByID(ctx, req.StaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	var room *models.Room
	if req.RoomID != nil {
		room, err = s.rooms.FindByID(ctx, *req.RoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		snapshot, err := s.loadBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if !snapshot.Status.Assignable() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("booking in status %s does not accept assignments", snapshot.Status))
		}

		release, err := s.lock(ctx, assignmentKeys(*snapshot, staff.ID, req.RoomID))
		if err != nil {
			return nil, err
		}
		current, err := s.loadBooking(ctx, bookingID)
		if err != nil {
			release()
			return nil, err
		}
		if !sameFootprint(*snapshot, *current) {
			release()
			s.logger.Debug("booking changed before lock, retrying", zap.Int64("booking_id", bookingID), zap.Int("attempt", attempt))
			continue
		}

		result, err := s.commitLocked(ctx, current, staff, room)
		release()
		if err != nil {
			return nil, err
		}
		s.afterCommit(ctx, current, result, actor)
		return result, nil
	}
	return nil, appErrors.Clone(appErrors.ErrAssignmentConflict, "booking changed concurrently, refresh candidates and retry")
}

func (s *AssignmentService) commitLocked(ctx context.Context, booking *models.Booking, staff *models.Staff, room *models.Room) (*dto.AssignmentResult, error) {
	staffKey := scheduling.StaffKey(staff.ID, booking.SlotDate)
	var roomKey scheduling.ResourceKey
	if room != nil {
		roomKey = scheduling.RoomKey(room.ID, booking.SlotDate)
	}
	if s.reload {
		if err := s.reloadKey(ctx, staffKey); err != nil {
			return nil, err
		}
		if room != nil {
			if err := s.reloadKey(ctx, roomKey); err != nil {
				return nil, err
			}
		}
	}

	shifts, err := s.shifts.ListByStaffDate(ctx, staff.ID, booking.SlotDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift requests")
	}
	if elig := s.resolver.CheckStaff(*booking, *staff, shifts); !elig.Eligible {
		s.metrics.RecordAssignmentRejected(string(elig.Reason))
		return nil, appErrors.WithDetails(appErrors.ErrNotEligible,
			fmt.Sprintf("staff %d is not available for this booking", staff.ID),
			dto.EligibilityDetail{Resource: scheduling.ResourceStaff, ResourceID: staff.ID, Reason: elig.Reason})
	}
	if room != nil {
		if reason, ok := scheduling.CheckRoom(*booking, *room); !ok {
			s.metrics.RecordAssignmentRejected(string(reason))
			return nil, appErrors.WithDetails(appErrors.ErrNotEligible,
				fmt.Sprintf("room %d cannot host this booking", room.ID),
				dto.EligibilityDetail{Resource: scheduling.ResourceRoom, ResourceID: room.ID, Reason: reason})
		}
	}

	if conflicts := s.index.Conflicts(staffKey, booking.StartTime, booking.EndTime, booking.ID); len(conflicts) > 0 {
		return nil, s.conflictError(scheduling.ResourceStaff, staff.ID, conflicts)
	}
	if room != nil {
		if conflicts := s.index.Conflicts(roomKey, booking.StartTime, booking.EndTime, booking.ID); len(conflicts) > 0 {
			return nil, s.conflictError(scheduling.ResourceRoom, room.ID, conflicts)
		}
	}

	params := repository.AssignParams{BookingID: booking.ID, StaffID: staff.ID}
	if room != nil {
		params.RoomID = &room.ID
	}
	updated, err := s.bookings.Assign(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "booking no longer accepts assignments")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignment")
	}

	s.releaseIndex(*booking)
	s.index.Insert(staffKey, booking.ID, booking.StartTime, booking.EndTime)
	if room != nil {
		s.index.Insert(roomKey, booking.ID, booking.StartTime, booking.EndTime)
	}
	s.metrics.SetIndexSize(s.index.Size())

	return &dto.AssignmentResult{
		Booking:    *updated,
		Reassigned: booking.AssignedStaffID != nil || booking.AssignedRoomID != nil,
	}, nil
}

func (s *AssignmentService) afterCommit(ctx context.Context, previous *models.Booking, result *dto.AssignmentResult, actor string) {
	s.metrics.RecordAssignment(result.Reassigned)
	invalidateCandidates(ctx, s.cache, previous.SlotDate)

	payload := map[string]interface{}{
		"booking_id":        result.Booking.ID,
		"slot_date":         result.Booking.SlotDate,
		"start_time":        result.Booking.StartTime,
		"end_time":          result.Booking.EndTime,
		"staff_id":          result.Booking.AssignedStaffID,
		"room_id":           result.Booking.AssignedRoomID,
		"reassigned":        result.Reassigned,
		"previous_staff_id": previous.AssignedStaffID,
		"previous_room_id":  previous.AssignedRoomID,
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Actor:      actor,
		Action:     models.AuditActionAssignmentCommit,
		Resource:   "booking",
		ResourceID: int64String(result.Booking.ID),
	}, previous, result.Booking)
	if s.events != nil {
		s.events.Emit(events.TypeAssignmentConfirmed, strconv.FormatInt(result.Booking.ID, 10), actor, payload)
	}
	s.logger.Info("assignment committed",
		zap.Int64("booking_id", result.Booking.ID),
		zap.Int64p("staff_id", result.Booking.AssignedStaffID),
		zap.Int64p("room_id", result.Booking.AssignedRoomID),
		zap.Bool("reassigned", result.Reassigned),
		zap.String("actor", actor),
	)
}

// CancelBooking cancels a booking and frees its staff and room in the same
// critical section as the status write. Cancelling twice is not an error.
func (s *AssignmentService) CancelBooking(ctx context.Context, bookingID int64, actor string) (*dto.CancelResult, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		snapshot, err := s.loadBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		switch snapshot.Status {
		case models.BookingStatusCancelled:
			s.metrics.RecordCancellation("already_cancelled")
			return &dto.CancelResult{Booking: *snapshot, AlreadyCancelled: true}, nil
		case models.BookingStatusCompleted:
			return nil, appErrors.Clone(appErrors.ErrValidation, "completed bookings cannot be cancelled")
		}

		keys := append(heldKeys(*snapshot), scheduling.BookingKey(snapshot.ID, snapshot.SlotDate))
		release, err := s.lock(ctx, keys)
		if err != nil {
			return nil, err
		}
		current, err := s.loadBooking(ctx, bookingID)
		if err != nil {
			release()
			return nil, err
		}
		if !sameFootprint(*snapshot, *current) {
			release()
			continue
		}

		cancelled, err := s.bookings.Cancel(ctx, bookingID)
		if err != nil {
			release()
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
		}
		s.releaseIndex(*current)
		s.metrics.SetIndexSize(s.index.Size())
		release()

		s.afterCancel(ctx, current, actor)
		return &dto.CancelResult{Booking: *cancelled}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrAssignmentConflict, "booking changed concurrently, retry")
}

func (s *AssignmentService) afterCancel(ctx context.Context, previous *models.Booking, actor string) {
	s.metrics.RecordCancellation("cancelled")
	invalidateCandidates(ctx, s.cache, previous.SlotDate)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Actor:      actor,
		Action:     models.AuditActionBookingCancel,
		Resource:   "booking",
		ResourceID: int64String(previous.ID),
	}, previous, map[string]interface{}{"status": models.BookingStatusCancelled})
	if s.events != nil {
		s.events.Emit(events.TypeBookingCancelled, strconv.FormatInt(previous.ID, 10), actor, map[string]interface{}{
			"booking_id":        previous.ID,
			"slot_date":         previous.SlotDate,
			"start_time":        previous.StartTime,
			"end_time":          previous.EndTime,
			"released_staff_id": previous.AssignedStaffID,
			"released_room_id":  previous.AssignedRoomID,
		})
	}
	s.logger.Info("booking cancelled", zap.Int64("booking_id", previous.ID), zap.String("actor", actor))
}

// RebuildIndex reloads the conflict index from persisted bookings. Commits
// and cancellations wait until it finishes.
func (s *AssignmentService) RebuildIndex(ctx context.Context) (*dto.RebuildResult, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	start := time.Now()
	bookings, err := s.bookings.ListAssigned(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned bookings")
	}
	s.index.Reset(scheduling.IntervalsFromBookings(bookings))
	elapsed := time.Since(start)

	s.metrics.SetIndexSize(s.index.Size())
	s.metrics.ObserveRebuild(elapsed)
	s.cache.Invalidate(ctx, "candidates:*")
	s.logger.Info("conflict index rebuilt", zap.Int("bookings", len(bookings)), zap.Int("intervals", s.index.Size()), zap.Duration("took", elapsed))

	return &dto.RebuildResult{Bookings: len(bookings), Intervals: s.index.Size(), DurationMs: elapsed.Milliseconds()}, nil
}

func (s *AssignmentService) loadBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *AssignmentService) lock(ctx context.Context, keys []scheduling.ResourceKey) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	start := time.Now()
	release, err := s.locker.Acquire(lockCtx, keys)
	s.metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request cancelled while waiting for resources")
		}
		s.metrics.RecordAssignmentRejected("lock_timeout")
		return nil, appErrors.Wrap(err, appErrors.ErrAssignmentConflict.Code, appErrors.ErrAssignmentConflict.Status, "resources are being updated by another request, retry")
	}
	return release, nil
}

func (s *AssignmentService) reloadKey(ctx context.Context, key scheduling.ResourceKey) error {
	var (
		bookings []models.Booking
		err      error
	)
	switch key.Kind {
	case scheduling.ResourceStaff:
		bookings, err = s.bookings.ListAssignedToStaff(ctx, key.ID, key.Date)
	case scheduling.ResourceRoom:
		bookings, err = s.bookings.ListAssignedToRoom(ctx, key.ID, key.Date)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload resource schedule")
	}
	intervals := make([]scheduling.Interval, 0, len(bookings))
	for _, b := range bookings {
		intervals = append(intervals, scheduling.Interval{BookingID: b.ID, Start: b.StartTime, End: b.EndTime})
	}
	s.index.Replace(key, intervals)
	return nil
}

func (s *AssignmentService) releaseIndex(b models.Booking) {
	for _, key := range heldKeys(b) {
		s.index.Remove(key, b.ID)
	}
}

func (s *AssignmentService) conflictError(kind scheduling.ResourceKind, id int64, conflicts []scheduling.Interval) error {
	s.metrics.RecordAssignmentRejected("conflict")
	ids := make([]int64, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.BookingID
	}
	return appErrors.WithDetails(appErrors.ErrAssignmentConflict,
		fmt.Sprintf("%s %d is already booked in this window", kind, id),
		dto.ConflictDetail{Resource: kind, ResourceID: id, BookingIDs: ids})
}

// heldKeys returns the resource-days a booking currently occupies.
func heldKeys(b models.Booking) []scheduling.ResourceKey {
	keys := make([]scheduling.ResourceKey, 0, 2)
	if b.AssignedStaffID != nil {
		keys = append(keys, scheduling.StaffKey(*b.AssignedStaffID, b.SlotDate))
	}
	if b.AssignedRoomID != nil {
		keys = append(keys, scheduling.RoomKey(*b.AssignedRoomID, b.SlotDate))
	}
	return keys
}

// assignmentKeys covers the booking itself, the chosen resources and those
// being released.
func assignmentKeys(b models.Booking, staffID int64, roomID *int64) []scheduling.ResourceKey {
	keys := append(heldKeys(b), scheduling.BookingKey(b.ID, b.SlotDate), scheduling.StaffKey(staffID, b.SlotDate))
	if roomID != nil {
		keys = append(keys, scheduling.RoomKey(*roomID, b.SlotDate))
	}
	return keys
}

func sameFootprint(a, b models.Booking) bool {
	return a.Status == b.Status &&
		a.SlotDate == b.SlotDate &&
		a.StartTime == b.StartTime &&
		a.EndTime == b.EndTime &&
		equalID(a.AssignedStaffID, b.AssignedStaffID) &&
		equalID(a.AssignedRoomID, b.AssignedRoomID)
}

func equalID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
