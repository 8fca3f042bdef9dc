package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/middleware"
	"github.com/noah-isme/spa-scheduler-api/internal/service"
	"github.com/noah-isme/spa-scheduler-api/pkg/response"
)

type rosterService interface {
	Build(ctx context.Context, date string) (*dto.Roster, error)
	Export(ctx context.Context, date, format string) (*service.ExportFile, error)
}

// RosterHandler serves the daily roster as JSON or a downloadable file.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// Get godoc
// @Summary Daily roster of committed assignments
// @Tags Roster
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "json, csv, pdf or xlsx"
// @Success 200 {object} response.Envelope
// @Router /roster [get]
func (h *RosterHandler) Get(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format == "json" {
		roster, err := h.service.Build(c.Request.Context(), date)
		if err != nil {
			response.Error(c, err)
			return
		}
		meta := middleware.ResponseMeta(c)
		meta["count"] = len(roster.Entries)
		response.JSON(c, http.StatusOK, roster, meta)
		return
	}
	file, err := h.service.Export(c.Request.Context(), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
