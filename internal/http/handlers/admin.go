package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// @Summary Purge lookup caches
// @Description Empties the in-process tier and, with older_than, prunes persisted lookups
// @Tags admin
// @Produce json
// @Param older_than query string false "Go duration, e.g. 72h"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/admin/cache/purge [post]
func (h *Handler) PurgeCache(c *gin.Context) {
	resp := gin.H{"purged": 0}
	if h.Cache != nil {
		resp["purged"] = h.Cache.Purge()
	}

	raw := c.Query("older_than")
	if raw == "" || h.Store == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	age, err := time.ParseDuration(raw)
	if err != nil || age < 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "older_than must be a positive duration", raw)
		return
	}
	rows, err := h.Store.PurgeLookupsBefore(c.Request.Context(), time.Now().Add(-age))
	if err != nil {
		h.Logger.Error().Err(err).Msg("purge persisted lookups")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to purge persisted lookups", err.Error())
		return
	}
	resp["persisted_purged"] = rows
	c.JSON(http.StatusOK, resp)
}
