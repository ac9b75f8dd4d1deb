package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/schedule"
)

// @Summary Build routes
// @Description Orders and times each date's appointments
// @Tags routes
// @Accept json
// @Produce json
// @Param body body AppointmentsRequest true "geocoded appointments"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/routes [post]
func (h *Handler) BuildRoutes(c *gin.Context) {
	var req AppointmentsRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	routes := h.Planner.Builder.BuildByDate(ctx, req.toModels())
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// @Summary Check feasibility
// @Description Lists violations among committed appointments and whether optimization can help
// @Tags schedule
// @Accept json
// @Produce json
// @Param body body AppointmentsRequest true "geocoded appointments"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/feasibility [post]
func (h *Handler) Feasibility(c *gin.Context) {
	var req AppointmentsRequest
	if !h.bind(c, &req) {
		return
	}
	appts := req.toModels()
	violations := schedule.CheckFeasibility(appts)
	if violations == nil {
		violations = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"feasible":     len(violations) == 0,
		"violations":   violations,
		"optimization": schedule.CanOptimize(appts),
	})
}

// @Summary Detect conflicts
// @Tags schedule
// @Accept json
// @Produce json
// @Param body body AppointmentsRequest true "geocoded appointments"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/conflicts [post]
func (h *Handler) Conflicts(c *gin.Context) {
	var req AppointmentsRequest
	if !h.bind(c, &req) {
		return
	}
	conflicts := schedule.FindAllConflicts(req.toModels())
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": conflicts})
}

// @Summary Resolve conflicts
// @Description Simulates reordering, buffer and rescheduling fixes for each conflict
// @Tags schedule
// @Accept json
// @Produce json
// @Param body body ResolveRequest true "appointments and options"
// @Success 200 {object} models.ResolutionReport
// @Failure 400 {object} map[string]any
// @Router /api/conflicts/resolve [post]
func (h *Handler) ResolveConflicts(c *gin.Context) {
	var req ResolveRequest
	if !h.bind(c, &req) {
		return
	}
	opts, ok := h.options(c, req.Options)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	report := h.Planner.Resolver.Resolve(ctx, req.toModels(), opts)
	c.JSON(http.StatusOK, report)
}

// @Summary Plan appointments
// @Description Geocodes, stages, routes and resolves appointments end to end
// @Tags plans
// @Accept json
// @Produce json
// @Param body body PlanRequest true "appointments, optionally without coordinates"
// @Success 200 {object} service.PlanResult
// @Failure 400 {object} map[string]any
// @Router /api/plans [post]
func (h *Handler) Plan(c *gin.Context) {
	var req PlanRequest
	if !h.bind(c, &req) {
		return
	}
	opts, ok := h.options(c, req.Options)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.Planner.Plan(ctx, req.toService(opts))
	if err != nil {
		writeError(c, http.StatusServiceUnavailable, "PLAN_CANCELLED", "Planning did not start", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
