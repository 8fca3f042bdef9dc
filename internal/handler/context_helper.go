package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
	"github.com/noah-isme/spa-scheduler-api/pkg/logger"
	"github.com/noah-isme/spa-scheduler-api/pkg/response"
)

const (
	defaultActor  = "system"
	maxActorRunes = 64
)

// actorFromContext returns the caller identity recorded on reviews, audit
// entries and events.
func actorFromContext(c *gin.Context) string {
	actor := strings.TrimSpace(c.GetHeader(logger.ActorHeader))
	if actor == "" {
		return defaultActor
	}
	if runes := []rune(actor); len(runes) > maxActorRunes {
		actor = string(runes[:maxActorRunes])
	}
	return actor
}

// idParam parses a positive int64 path parameter, writing a validation error
// and returning false when it is malformed.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
