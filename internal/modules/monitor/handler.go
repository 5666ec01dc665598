package monitor

import (
	"time"

	"github.com/fieldtrace/core/internal/middleware"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc   *Service
	sweep *Sweep
}

func NewHandler(svc *Service, sweep *Sweep) *Handler {
	return &Handler{svc: svc, sweep: sweep}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	rg.POST("/journey/heartbeat", authMW, h.heartbeat)
	// The sweep endpoint is for external schedulers; only admins may
	// trigger it by hand.
	rg.POST("/cron/journey-monitor", adminMW, h.runSweep)
}

type heartbeatDTO struct {
	Position struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	} `json:"position" binding:"required"`
	IsMoving *bool      `json:"isMoving"`
	Time     *time.Time `json:"time"`
}

// POST /journey/heartbeat
func (h *Handler) heartbeat(c *gin.Context) {
	var dto heartbeatDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	at := time.Now()
	if dto.Time != nil {
		at = *dto.Time
	}

	result, err := h.svc.Heartbeat(middleware.CurrentWorkerID(c), HeartbeatInput{
		Position: models.Position{
			Latitude:  *dto.Position.Latitude,
			Longitude: *dto.Position.Longitude,
		},
		IsMoving: dto.IsMoving,
		Time:     at,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// POST /cron/journey-monitor
func (h *Handler) runSweep(c *gin.Context) {
	result, err := h.sweep.Run(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}
