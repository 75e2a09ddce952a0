package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/response"
)

type auditReader interface {
	Recent(ctx context.Context, resource string, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the admin mutation trail.
type AuditHandler struct {
	logs auditReader
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(logs auditReader) *AuditHandler {
	return &AuditHandler{logs: logs}
}

// List godoc
// @Summary Recent admin mutations for a resource
// @Tags Audit
// @Produce json
// @Param resource query string true "courses, teachers, levels, subjects, registrations or students"
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.logs.Recent(c.Request.Context(), c.Query("resource"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
