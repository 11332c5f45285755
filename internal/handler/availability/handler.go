package availability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/booking-engine/internal/handler"
	"github.com/jwalitptl/booking-engine/internal/service/availability"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *availability.Service
	metrics *metrics.Metrics
}

func NewHandler(service *availability.Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/availability", h.GetAvailableSlots)
	r.GET("/availability/range", h.GetAvailableSlotsRange)
}

// GetAvailableSlots returns the free slots for one provider, location and
// day. The view is advisory: a shown slot is not a reservation.
func (h *Handler) GetAvailableSlots(c *gin.Context) {
	h.metrics.AvailabilityRequests.Inc()
	timer := prometheus.NewTimer(h.metrics.AvailabilityLatency)
	defer timer.ObserveDuration()

	providerID, locationID, ok := h.parseKeys(c)
	if !ok {
		return
	}

	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		handler.BadRequest(c, "invalid date format, expected YYYY-MM-DD")
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), providerID, locationID, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, gin.H{
		"date":  date.Format(dateLayout),
		"slots": slots,
	})
}

func (h *Handler) GetAvailableSlotsRange(c *gin.Context) {
	h.metrics.AvailabilityRequests.Inc()
	timer := prometheus.NewTimer(h.metrics.AvailabilityLatency)
	defer timer.ObserveDuration()

	providerID, locationID, ok := h.parseKeys(c)
	if !ok {
		return
	}

	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		handler.BadRequest(c, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		handler.BadRequest(c, "invalid to date, expected YYYY-MM-DD")
		return
	}

	days, err := h.service.AvailableSlotsRange(c.Request.Context(), providerID, locationID, from, to)
	if err != nil {
		handler.Error(c, err)
		return
	}

	handler.Success(c, http.StatusOK, gin.H{"days": days})
}

func (h *Handler) parseKeys(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	providerID, err := uuid.Parse(c.Query("provider_id"))
	if err != nil {
		handler.BadRequest(c, "invalid provider ID")
		return uuid.Nil, uuid.Nil, false
	}
	locationID, err := uuid.Parse(c.Query("location_id"))
	if err != nil {
		handler.BadRequest(c, "invalid location ID")
		return uuid.Nil, uuid.Nil, false
	}
	return providerID, locationID, true
}
