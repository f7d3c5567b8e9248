package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

const (
	auditDefaultLimit = 25
	auditMaxLimit     = 100
)

type AuditController struct {
	log AuditLog
}

func NewAuditController(log AuditLog) *AuditController {
	return &AuditController{log: log}
}

// ListEvents returns paginated audit events, newest first. Admin only.
// GET /api/logs?page=&limit=&type=&user_id=
func (ac *AuditController) ListEvents(c *gin.Context) {
	page, limit := parsePage(c, auditDefaultLimit, auditMaxLimit)

	events, total, err := ac.log.ListEvents(audit.Filter{
		UserID:    c.Query("user_id"),
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
		"total":       total,
	})
}
