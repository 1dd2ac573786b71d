package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/promotion/models"
	"channel-market-backend/internal/features/promotion/service"
)

type PromotionHandler struct {
	service service.PromotionService
	logger  *zap.Logger
}

func NewPromotionHandler(service service.PromotionService, logger *zap.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: service,
		logger:  logger,
	}
}

func (h *PromotionHandler) RegisterRoutes(router *gin.RouterGroup) {
	promotions := router.Group("/channels/:id/promotions")
	{
		promotions.POST("/top", h.promoteToTop)
		promotions.POST("/ultra-top", h.promoteToUltraTop)
	}
}

type ultraTopRequest struct {
	// Количество дней приходит строкой и разбирается строго, чтобы
	// не принять "010" и подобный ввод
	Days string `json:"days" binding:"required"`
}

func (h *PromotionHandler) promoteToTop(c *gin.Context) {
	channelID, err := parseChannelID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	channel, err := h.service.PromoteToTop(c.Request.Context(), middleware.CurrentUserID(c), channelID)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

func (h *PromotionHandler) promoteToUltraTop(c *gin.Context) {
	channelID, err := parseChannelID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	var req ultraTopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("days", "is required"), h.logger)
		return
	}

	days, err := models.ParseDays(req.Days)
	if err != nil {
		middleware.SendError(c, apperrors.NewValidationError("days", err.Error()), h.logger)
		return
	}

	channel, err := h.service.PromoteToUltraTop(c.Request.Context(), middleware.CurrentUserID(c), channelID, days)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

func parseChannelID(c *gin.Context) (int64, error) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
