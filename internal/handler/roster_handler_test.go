package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/spa-scheduler-api/internal/dto"
	"github.com/noah-isme/spa-scheduler-api/internal/service"
)

type rosterServiceMock struct {
	format string
}

func (m *rosterServiceMock) Build(ctx context.Context, date string) (*dto.Roster, error) {
	return &dto.Roster{Date: "2025-01-10", Entries: []dto.RosterEntry{{BookingID: 1}}}, nil
}

func (m *rosterServiceMock) Export(ctx context.Context, date, format string) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "roster-2025-01-10.csv", ContentType: "text/csv", Body: []byte("Booking\n1\n")}, nil
}

func TestRosterHandlerJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/roster?date=2025-01-10", nil)

	NewRosterHandler(&rosterServiceMock{}).Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestRosterHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/roster?date=2025-01-10&format=CSV", nil)

	NewRosterHandler(svc).Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "roster-2025-01-10.csv")
	assert.Equal(t, "Booking\n1\n", w.Body.String())
}
