package journey

import (
	"time"

	"github.com/fieldtrace/core/internal/middleware"
	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/journey", authMW)

	g.POST("/start", h.start)
	g.POST("/end", h.end)
	g.POST("/location", h.addLocation)
	g.POST("/location-batch", h.addLocationBatch)
	g.GET("/active", h.active)
	g.GET("/:id/locations", h.listLocations)
}

// POST /journey/start
func (h *Handler) start(c *gin.Context) {
	var dto StartJourneyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	j, err := h.svc.Start(middleware.CurrentWorkerID(c), middleware.CurrentTenantID(c), &dto, time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, startResponse{JourneyID: j.ID, StartedAt: j.StartedAt})
}

// POST /journey/end
func (h *Handler) end(c *gin.Context) {
	var dto EndJourneyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	now := time.Now()
	j, samples, err := h.svc.End(middleware.CurrentWorkerID(c), dto.Position.toPosition(), dto.Notes, now)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, endResponse{
		JourneyID:       j.ID,
		DurationMinutes: DurationMinutes(j, now),
		SampleCount:     samples,
	})
}

// POST /journey/location
func (h *Handler) addLocation(c *gin.Context) {
	var dto AddLocationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	recordedAt := time.Now()
	if dto.Time != nil {
		recordedAt = *dto.Time
	}

	if _, err := h.svc.AddLocation(middleware.CurrentWorkerID(c), dto.Position.toPosition(), recordedAt); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"saved": true})
}

// POST /journey/location-batch
func (h *Handler) addLocationBatch(c *gin.Context) {
	var dto AddLocationBatchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	count, err := h.svc.AddBatch(middleware.CurrentWorkerID(c), dto.JourneyID, dto.Positions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"saved": count})
}

// GET /journey/active
func (h *Handler) active(c *gin.Context) {
	j, err := h.svc.OpenJourney(middleware.CurrentWorkerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if j == nil {
		response.OK(c, nil)
		return
	}
	samples, err := h.svc.SampleCount(j.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, activeResponse{
		JourneyID:       j.ID,
		StartedAt:       j.StartedAt,
		DurationMinutes: DurationMinutes(j, time.Now()),
		SampleCount:     samples,
	})
}

// GET /journey/:id/locations
func (h *Handler) listLocations(c *gin.Context) {
	j, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if j.WorkerID != middleware.CurrentWorkerID(c) && !middleware.IsAdmin(c) {
		response.Forbidden(c, "not your journey")
		return
	}

	rows, err := h.svc.Locations(j.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]locationResponse, len(rows))
	for i, row := range rows {
		out[i] = locationResponse{
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
			RecordedAt: row.RecordedAt,
		}
	}
	response.OK(c, out)
}
