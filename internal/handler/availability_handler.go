package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/middleware"
	"github.com/noah-isme/spa-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
	"github.com/noah-isme/spa-scheduler-api/pkg/response"
)

type availabilityService interface {
	Submit(ctx context.Context, req dto.ShiftRequestPayload, actor string) (*models.ShiftRequest, error)
	CreateShift(ctx context.Context, req dto.ShiftRequestPayload, actor string) (*models.ShiftRequest, error)
	List(ctx context.Context, query dto.ShiftRequestQuery) ([]models.ShiftRequest, error)
	Review(ctx context.Context, req dto.ReviewAvailabilityRequest, actor string) (*dto.ReviewAvailabilityResult, error)
}

// AvailabilityHandler manages shift submissions and reviews.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Submit godoc
// @Summary Submit an availability window for review
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.ShiftRequestPayload true "Shift window"
// @Success 201 {object} response.Envelope
// @Router /availability [post]
func (h *AvailabilityHandler) Submit(c *gin.Context) {
	h.create(c, h.service.Submit)
}

// CreateShift godoc
// @Summary Create an approved shift on behalf of a staff member
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.ShiftRequestPayload true "Shift window"
// @Success 201 {object} response.Envelope
// @Router /shifts [post]
func (h *AvailabilityHandler) CreateShift(c *gin.Context) {
	h.create(c, h.service.CreateShift)
}

func (h *AvailabilityHandler) create(c *gin.Context, fn func(context.Context, dto.ShiftRequestPayload, string) (*models.ShiftRequest, error)) {
	var req dto.ShiftRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid shift payload"))
		return
	}
	shift, err := fn(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shift)
}

// List godoc
// @Summary List shift requests
// @Tags Availability
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param date query string false "Schedule date (YYYY-MM-DD)"
// @Param staff_id query int false "Staff ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	query := dto.ShiftRequestQuery{ScheduleDate: strings.TrimSpace(c.Query("date"))}
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Status = append(query.Status, models.ShiftStatus(part))
			}
		}
	}
	staffRaw := c.Query("staff_id")
	if staffRaw == "" {
		staffRaw = c.Query("staffId")
	}
	if staffRaw != "" {
		staffID, err := strconv.ParseInt(staffRaw, 10, 64)
		if err != nil || staffID <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "staff_id must be a positive integer"))
			return
		}
		query.StaffID = &staffID
	}
	var ok bool
	if query.Limit, ok = intQuery(c, "limit"); !ok {
		return
	}
	if query.Offset, ok = intQuery(c, "offset"); !ok {
		return
	}

	shifts, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ResponseMeta(c)
	meta["count"] = len(shifts)
	response.JSON(c, http.StatusOK, shifts, meta)
}

// Review godoc
// @Summary Approve or reject pending shift requests
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.ReviewAvailabilityRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability/review [post]
func (h *AvailabilityHandler) Review(c *gin.Context) {
	var req dto.ReviewAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	result, err := h.service.Review(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a non-negative integer"))
		return 0, false
	}
	return v, true
}
