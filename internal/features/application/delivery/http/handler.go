package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/application/service"
	channelmodels "channel-market-backend/internal/features/channel/models"
)

type ApplicationHandler struct {
	service service.ApplicationService
	logger  *zap.Logger
}

func NewApplicationHandler(service service.ApplicationService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует пользовательские маршруты заявок
func (h *ApplicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	applications := router.Group("/applications")
	{
		applications.POST("", h.submit)
		applications.GET("/me", h.listOwn)
	}
}

// RegisterModerationRoutes регистрирует маршруты очереди модерации;
// группа должна быть защищена RequireRole(admin, moderator)
func (h *ApplicationHandler) RegisterModerationRoutes(router *gin.RouterGroup) {
	moderation := router.Group("/moderation/applications")
	{
		moderation.GET("", h.listPending)
		moderation.POST("/:id/approve", h.approve)
		moderation.POST("/:id/reject", h.reject)
	}
}

type submitRequest struct {
	ChannelURL  string                    `json:"channel_url" binding:"required"`
	CategoryID  int64                     `json:"category_id" binding:"required"`
	Type        channelmodels.ChannelType `json:"type"`
	Name        string                    `json:"name" binding:"required"`
	Description string                    `json:"description" binding:"required"`
	AvatarURL   string                    `json:"avatar_url"`
}

func (h *ApplicationHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()), h.logger)
		return
	}

	app, err := h.service.Submit(c.Request.Context(), middleware.CurrentUserID(c), service.SubmitInput{
		ChannelURL:  req.ChannelURL,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (h *ApplicationHandler) listOwn(c *gin.Context) {
	apps, err := h.service.ListOwn(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *ApplicationHandler) listPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	apps, err := h.service.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *ApplicationHandler) approve(c *gin.Context) {
	id, err := parseApplicationID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	app, err := h.service.Approve(c.Request.Context(),
		middleware.CurrentUserID(c), middleware.CurrentUserRole(c), id)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": app})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *ApplicationHandler) reject(c *gin.Context) {
	id, err := parseApplicationID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("reason", "is required"), h.logger)
		return
	}

	app, err := h.service.Reject(c.Request.Context(),
		middleware.CurrentUserID(c), middleware.CurrentUserRole(c), id, req.Reason)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": app})
}

func parseApplicationID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", fmt.Sprintf("invalid application id: %q", c.Param("id")))
	}
	return id, nil
}
