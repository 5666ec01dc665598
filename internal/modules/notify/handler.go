package notify

import (
	"github.com/fieldtrace/core/internal/middleware"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/journey/push-token", authMW, h.registerToken)
}

type registerTokenDTO struct {
	Token    string `json:"token" binding:"required"`
	Provider string `json:"provider"`
}

// POST /journey/push-token
func (h *Handler) registerToken(c *gin.Context) {
	var dto registerTokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	provider := models.PushProvider(dto.Provider)
	if provider == "" {
		provider = models.PushProviderExpo
	}

	row, err := h.dispatcher.RegisterToken(
		middleware.CurrentWorkerID(c),
		middleware.CurrentTenantID(c),
		dto.Token,
		provider,
	)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, gin.H{"id": row.ID, "provider": row.Provider})
}
