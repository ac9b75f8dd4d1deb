package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/visitplan/backend/internal/geocode"
)

// @Summary Geocode an address
// @Tags geocode
// @Accept json
// @Produce json
// @Param body body GeocodeRequest true "address"
// @Success 200 {object} geocode.Result
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/geocode [post]
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if !h.bind(c, &req) {
		return
	}
	if h.Geocoder == nil {
		writeError(c, http.StatusServiceUnavailable, "GEOCODER_DISABLED", "No geocoder configured", nil)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.Geocoder.Geocode(ctx, req.Address)
	if err != nil {
		kind := geocode.KindOf(err)
		if kind == "" {
			kind = geocode.KindServer
		}
		writeError(c, geocodeStatus(kind), "GEOCODE_"+strings.ToUpper(string(kind)), "Geocoding failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}

func geocodeStatus(kind geocode.ErrorKind) int {
	switch kind {
	case geocode.KindZeroResults:
		return http.StatusNotFound
	case geocode.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case geocode.KindKeyMissing, geocode.KindKeyInvalid:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
