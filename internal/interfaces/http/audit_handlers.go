package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// EntityHistory handles GET /api/audit/:entityType/:entityId
func (h *Handlers) EntityHistory(c *gin.Context) {
	entityID, ok := paramID(c, "entityId")
	if !ok {
		return
	}

	logs, err := h.services.Audit.EntityHistory(c.Request.Context(), c.Param("entityType"), entityID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, logs)
}

// UserActivity handles GET /api/audit/users/:user?limit=N
func (h *Handlers) UserActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	logs, err := h.services.Audit.UserActivity(c.Request.Context(), c.Param("user"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, logs)
}
