package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
)

func TestAuditController_ListEvents(t *testing.T) {
	log := &fakeAudit{events: []entities.AuditEvent{
		{ID: 2, EventType: entities.AuditEventBorrow, Action: "borrow"},
		{ID: 1, EventType: entities.AuditEventBorrow, Action: "borrow"},
	}}
	ac := NewAuditController(log)
	router := gin.New()
	router.GET("/api/logs", ac.ListEvents)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/logs?page=3&limit=1&type=borrow&user_id="+memberID, nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(3), body["page"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["total_pages"])
	assert.Len(t, body["events"], 2)

	assert.Equal(t, memberID, log.lastFilter.UserID)
	assert.Equal(t, entities.AuditEventBorrow, log.lastFilter.EventType)
	assert.Equal(t, 1, log.lastFilter.Limit)
	assert.Equal(t, 2, log.lastFilter.Offset)
}

func TestAuditController_Defaults(t *testing.T) {
	log := &fakeAudit{}
	router := gin.New()
	router.GET("/api/logs", NewAuditController(log).ListEvents)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/logs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, auditDefaultLimit, log.lastFilter.Limit)
	assert.Equal(t, 0, log.lastFilter.Offset)
	assert.Equal(t, float64(1), decodeJSON(t, w)["total_pages"])
}
