package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/pkg/response"
)

type indexRebuilder interface {
	RebuildIndex(ctx context.Context) (*dto.RebuildResult, error)
}

// AdminHandler exposes maintenance operations.
type AdminHandler struct {
	rebuilder indexRebuilder
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(rebuilder indexRebuilder) *AdminHandler {
	return &AdminHandler{rebuilder: rebuilder}
}

// RebuildIndex godoc
// @Summary Rebuild the in-memory conflict index from the database
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/index/rebuild [post]
func (h *AdminHandler) RebuildIndex(c *gin.Context) {
	result, err := h.rebuilder.RebuildIndex(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
