package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/middleware"
	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
	"github.com/noah-isme/spa-scheduler-api/pkg/response"
)

type assignmentService interface {
	GetCandidates(ctx context.Context, bookingID int64) (*dto.CandidatesResponse, error)
	CommitAssignment(ctx context.Context, bookingID int64, req dto.CommitAssignmentRequest, actor string) (*dto.AssignmentResult, error)
	CancelBooking(ctx context.Context, bookingID int64, actor string) (*dto.CancelResult, error)
}

// AssignmentHandler exposes candidate lookup, assignment commit and cancellation.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Candidates godoc
// @Summary List assignable staff and rooms for a booking
// @Tags Assignments
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/candidates [get]
func (h *AssignmentHandler) Candidates(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.service.GetCandidates(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.FromCache)
	response.JSON(c, http.StatusOK, result, middleware.ResponseMeta(c))
}

// Commit godoc
// @Summary Assign staff and an optional room to a booking
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param payload body dto.CommitAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings/{id}/assignment [post]
func (h *AssignmentHandler) Commit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dto.CommitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.CommitAssignment(c.Request.Context(), id, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Cancel godoc
// @Summary Cancel a booking and release its staff and room
// @Tags Assignments
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *AssignmentHandler) Cancel(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.service.CancelBooking(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
