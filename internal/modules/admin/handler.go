package admin

import (
	"time"

	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/admin", adminMW)

	g.GET("/active-devices", h.activeDevices)
	g.POST("/request-location", h.requestLocation)
}

// GET /admin/active-devices
func (h *Handler) activeDevices(c *gin.Context) {
	rows, summary, err := h.svc.ActiveDevices(time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"devices": rows, "summary": summary})
}

type requestLocationDTO struct {
	WorkerID  string `json:"workerId" binding:"required"`
	JourneyID string `json:"journeyId" binding:"required"`
}

// POST /admin/request-location
func (h *Handler) requestLocation(c *gin.Context) {
	var dto requestLocationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	sent := h.svc.RequestLocation(dto.WorkerID, dto.JourneyID)
	response.OK(c, gin.H{"sent": sent})
}
