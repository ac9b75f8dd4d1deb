package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/visitplan/backend/internal/db"
	"github.com/visitplan/backend/internal/geocode"
	"github.com/visitplan/backend/internal/service"
	"github.com/visitplan/backend/internal/simulation"
)

// Purger empties the in-process lookup cache tier.
type Purger interface {
	Purge() int
}

type Handler struct {
	Store          *db.Store
	Planner        *service.PlanningService
	Geocoder       geocode.Geocoder
	Cache          Purger
	Defaults       simulation.Options
	Validator      *validator.Validate
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
}

// bind decodes and validates a JSON body, writing the error response
// itself when either step fails.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", validationDetails(err))
		return false
	}
	return true
}

// options merges request overrides onto the defaults and validates the
// merged buffer configuration.
func (h *Handler) options(c *gin.Context, o *OptionsRequest) (simulation.Options, bool) {
	opts := o.apply(h.Defaults)
	if err := h.Validator.Struct(opts.BufferConfig); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid buffer configuration", validationDetails(err))
		return simulation.Options{}, false
	}
	return opts, true
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make([]gin.H, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, gin.H{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
			"param": fe.Param(),
		})
	}
	return out
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
