package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/events"
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/repository"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

// AvailabilityService manages submitted and admin-entered shift windows and
// the pending -> approved/rejected review workflow.
type AvailabilityService struct {
	shifts   shiftStore
	staff    staffDirectory
	validate *validator.Validate
	logger   *zap.Logger
	cache    *CacheService
	metrics  *MetricsService
	audit    auditLogger
	events   EventEmitter
	now      func() time.Time
}

// AvailabilityServiceOption configures the service.
type AvailabilityServiceOption func(*AvailabilityService)

// WithAvailabilityCache invalidates cached candidates when availability changes.
func WithAvailabilityCache(cache *CacheService) AvailabilityServiceOption {
	return func(s *AvailabilityService) { s.cache = cache }
}

// WithAvailabilityMetrics attaches Prometheus instrumentation.
func WithAvailabilityMetrics(metrics *MetricsService) AvailabilityServiceOption {
	return func(s *AvailabilityService) { s.metrics = metrics }
}

// WithAvailabilityAudit records submissions and reviews in the audit trail.
func WithAvailabilityAudit(audit auditLogger) AvailabilityServiceOption {
	return func(s *AvailabilityService) { s.audit = audit }
}

// WithAvailabilityEvents publishes review outcomes.
func WithAvailabilityEvents(emitter EventEmitter) AvailabilityServiceOption {
	return func(s *AvailabilityService) { s.events = emitter }
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(shifts shiftStore, staff staffDirectory, validate *validator.Validate, logger *zap.Logger, opts ...AvailabilityServiceOption) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AvailabilityService{
		shifts:   shifts,
		staff:    staff,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit stores a self-submitted availability window awaiting review.
func (s *AvailabilityService) Submit(ctx context.Context, req dto.ShiftRequestPayload, actor string) (*models.ShiftRequest, error) {
	return s.create(ctx, req, actor, models.ShiftStatusPending)
}

// CreateShift stores an admin-entered shift, approved on creation.
func (s *AvailabilityService) CreateShift(ctx context.Context, req dto.ShiftRequestPayload, actor string) (*models.ShiftRequest, error) {
	return s.create(ctx, req, actor, models.ShiftStatusApproved)
}

func (s *AvailabilityService) create(ctx context.Context, req dto.ShiftRequestPayload, actor string, status models.ShiftStatus) (*models.ShiftRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	date, err := clock.ParseDate(req.ScheduleDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule_date")
	}
	start, err := clock.Parse(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := clock.Parse(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if _, err := s.staff.FindByID(ctx, req.StaffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}

	shift := &models.ShiftRequest{
		StaffID:      req.StaffID,
		ScheduleDate: date,
		StartTime:    start,
		EndTime:      end,
		Status:       status,
		CreatedBy:    actor,
		Notes:        optionalString(req.Notes),
	}
	if status == models.ShiftStatusApproved {
		now := s.now().UTC()
		shift.ReviewedBy = &actor
		shift.ReviewedAt = &now
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift request")
	}

	// Any row on the date changes eligibility, pending ones included.
	invalidateCandidates(ctx, s.cache, date)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Actor:      actor,
		Action:     models.AuditActionShiftSubmit,
		Resource:   "shift_request",
		ResourceID: int64String(shift.ID),
	}, nil, shift)
	return shift, nil
}

// List returns shift requests matching the query.
func (s *AvailabilityService) List(ctx context.Context, query dto.ShiftRequestQuery) ([]models.ShiftRequest, error) {
	filter := models.ShiftRequestFilter{
		Status:  query.Status,
		StaffID: query.StaffID,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}
	for _, status := range query.Status {
		switch status {
		case models.ShiftStatusPending, models.ShiftStatusApproved, models.ShiftStatusRejected:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported status %q", status))
		}
	}
	if query.ScheduleDate != "" {
		date, err := clock.ParseDate(query.ScheduleDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
		}
		filter.ScheduleDate = date
	}
	shifts, err := s.shifts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shift requests")
	}
	return shifts, nil
}

// Review approves or rejects a batch of shift requests. Notes are validated
// for the whole batch before any row changes; after that each id is resolved
// on its own and reported as approved, rejected, skipped or not found.
func (s *AvailabilityService) Review(ctx context.Context, req dto.ReviewAvailabilityRequest, actor string) (*dto.ReviewAvailabilityResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > dto.MaxReviewNotes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("notes must be at most %d characters", dto.MaxReviewNotes))
	}
	target := models.ShiftStatusApproved
	if req.Action == dto.ReviewActionReject {
		if notes == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "notes are required when rejecting")
		}
		target = models.ShiftStatusRejected
	}

	ids := uniqueIDs(req.ScheduleIDs)
	rows, err := s.shifts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift requests")
	}
	byID := make(map[int64]models.ShiftRequest, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	result := &dto.ReviewAvailabilityResult{
		Approved: []int64{},
		Rejected: []int64{},
		Skipped:  []int64{},
		NotFound: []int64{},
	}
	dates := make(map[clock.Date]struct{})
	reviewedAt := s.now().UTC()

	var failure error
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		if row.Status != models.ShiftStatusPending {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		_, err := s.shifts.Review(ctx, repository.ReviewParams{
			ID:         id,
			Status:     target,
			ReviewedBy: actor,
			ReviewedAt: reviewedAt,
			Notes:      optionalString(notes),
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			failure = err
			break
		}
		dates[row.ScheduleDate] = struct{}{}
		if target == models.ShiftStatusApproved {
			result.Approved = append(result.Approved, id)
		} else {
			result.Rejected = append(result.Rejected, id)
		}
	}

	s.afterReview(ctx, req.Action, result, dates, actor)
	if failure != nil {
		wrapped := appErrors.Wrap(failure, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review shift requests")
		wrapped.Details = result
		return nil, wrapped
	}
	return result, nil
}

func (s *AvailabilityService) afterReview(ctx context.Context, action string, result *dto.ReviewAvailabilityResult, dates map[clock.Date]struct{}, actor string) {
	ordered := make([]string, 0, len(dates))
	for date := range dates {
		ordered = append(ordered, date.String())
		invalidateCandidates(ctx, s.cache, date)
	}
	sort.Strings(ordered)

	s.metrics.RecordReview("approved", len(result.Approved))
	s.metrics.RecordReview("rejected", len(result.Rejected))
	s.metrics.RecordReview("skipped", len(result.Skipped))
	s.metrics.RecordReview("not_found", len(result.NotFound))

	if len(result.Approved)+len(result.Rejected) == 0 {
		return
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		Actor:    actor,
		Action:   models.AuditActionShiftReview,
		Resource: "shift_request",
	}, nil, map[string]interface{}{"action": action, "result": result})
	if s.events != nil {
		s.events.Emit(events.TypeAvailabilityReview, strings.Join(ordered, ","), actor, map[string]interface{}{
			"action":   action,
			"approved": result.Approved,
			"rejected": result.Rejected,
			"dates":    ordered,
		})
	}
	s.logger.Info("shift requests reviewed",
		zap.String("action", action),
		zap.Int("approved", len(result.Approved)),
		zap.Int("rejected", len(result.Rejected)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("not_found", len(result.NotFound)),
		zap.String("actor", actor),
	)
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
