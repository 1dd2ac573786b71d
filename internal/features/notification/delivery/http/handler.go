package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/notification/service"
)

type NotificationHandler struct {
	service service.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.list)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.POST("/:id/read", h.markRead)
		notifications.POST("/read-all", h.markAllRead)
	}
}

func (h *NotificationHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.service.List(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) unreadCount(c *gin.Context) {
	count, err := h.service.CountUnread(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *NotificationHandler) markRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.SendError(c,
			apperrors.NewValidationError("id", fmt.Sprintf("invalid notification id: %q", c.Param("id"))), h.logger)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *NotificationHandler) markAllRead(c *gin.Context) {
	if err := h.service.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
