package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/handler"
	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/schedule"
)

type Handler struct {
	service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers/:providerID")
	{
		providers.PUT("/locations/:locationID/schedule", h.PutSchedule)
		providers.GET("/locations/:locationID/schedule", h.GetSchedule)
		providers.GET("/assignments", h.ListAssignments)
		providers.POST("/assignments", h.AssignProvider)
		providers.DELETE("/assignments/:locationID", h.UnassignProvider)
		providers.PUT("/home-visit", h.SetHomeVisit)
	}
}

// PutSchedule replaces the provider's weekly rules at one location. Only
// providers and staff may edit schedules.
func (h *Handler) PutSchedule(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	providerID, locationID, ok := h.parseKeys(c)
	if !ok {
		return
	}

	var req model.PutScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	rules, err := h.service.PutSchedule(c.Request.Context(), providerID, locationID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, rules)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	providerID, locationID, ok := h.parseKeys(c)
	if !ok {
		return
	}

	rules, err := h.service.WeekSchedule(c.Request.Context(), providerID, locationID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, rules)
}

func (h *Handler) ListAssignments(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		handler.BadRequest(c, "invalid provider ID")
		return
	}

	assignments, err := h.service.ListAssignments(c.Request.Context(), providerID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, assignments)
}

func (h *Handler) AssignProvider(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		handler.BadRequest(c, "invalid provider ID")
		return
	}

	var req model.AssignProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	a, err := h.service.AssignProvider(c.Request.Context(), providerID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusCreated, a)
}

func (h *Handler) UnassignProvider(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	providerID, locationID, ok := h.parseKeys(c)
	if !ok {
		return
	}

	if err := h.service.UnassignProvider(c.Request.Context(), providerID, locationID); err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) SetHomeVisit(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		handler.BadRequest(c, "invalid provider ID")
		return
	}

	var req model.SetHomeVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	if err := h.service.SetHomeVisit(c.Request.Context(), providerID, *req.Enabled); err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, gin.H{"enabled": *req.Enabled})
}

func (h *Handler) parseKeys(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	providerID, err := uuid.Parse(c.Param("providerID"))
	if err != nil {
		handler.BadRequest(c, "invalid provider ID")
		return uuid.Nil, uuid.Nil, false
	}
	locationID, err := uuid.Parse(c.Param("locationID"))
	if err != nil {
		handler.BadRequest(c, "invalid location ID")
		return uuid.Nil, uuid.Nil, false
	}
	return providerID, locationID, true
}

func (h *Handler) requireScheduler(c *gin.Context) bool {
	actor, ok := handler.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing identity"})
		return false
	}
	if !actor.CanManageSchedules() {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "insufficient role"})
		return false
	}
	return true
}
