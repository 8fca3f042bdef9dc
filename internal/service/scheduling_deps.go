package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/internal/repository"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

type bookingStore interface {
	FindByID(ctx context.Context, id int64) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	ListAssigned(ctx context.Context, since clock.Date) ([]models.Booking, error)
	ListAssignedToStaff(ctx context.Context, staffID int64, date clock.Date) ([]models.Booking, error)
	ListAssignedToRoom(ctx context.Context, roomID int64, date clock.Date) ([]models.Booking, error)
	Assign(ctx context.Context, params repository.AssignParams) (*models.Booking, error)
	Cancel(ctx context.Context, id int64) (*models.Booking, error)
}

type staffDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Staff, error)
	ListActive(ctx context.Context) ([]models.Staff, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Staff, error)
}

type roomDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
}

type shiftStore interface {
	Create(ctx context.Context, shift *models.ShiftRequest) error
	FindByIDs(ctx context.Context, ids []int64) ([]models.ShiftRequest, error)
	ListByDate(ctx context.Context, date clock.Date) ([]models.ShiftRequest, error)
	ListByStaffDate(ctx context.Context, staffID int64, date clock.Date) ([]models.ShiftRequest, error)
	List(ctx context.Context, filter models.ShiftRequestFilter) ([]models.ShiftRequest, error)
	Review(ctx context.Context, params repository.ReviewParams) (*models.ShiftRequest, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventEmitter hands domain events to the asynchronous publisher.
type EventEmitter interface {
	Emit(eventType, aggregateID, actor string, payload interface{})
}

func candidateCacheKey(date clock.Date, bookingID int64) string {
	return fmt.Sprintf("candidates:%s:%d", date, bookingID)
}

func candidateCachePattern(date clock.Date) string {
	return fmt.Sprintf("candidates:%s:*", date)
}

func invalidateCandidates(ctx context.Context, cache *CacheService, date clock.Date) {
	cache.InvalidateScope(ctx, date.String(), candidateCachePattern(date))
}

func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, log *models.AuditLog, oldValues, newValues interface{}) {
	if audit == nil || log == nil {
		return
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			log.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			log.NewValues = raw
		}
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "scheduling-engine"
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func int64String(id int64) *string {
	s := fmt.Sprintf("%d", id)
	return &s
}
