package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
	logger  *zap.Logger
}

func NewUserHandler(service service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users/me", h.profile)
}

// RegisterAdminRoutes регистрирует маршруты управления пользователями;
// группа должна быть защищена RequireRole(admin)
func (h *UserHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin/users")
	{
		admin.POST("/:id/block", h.block)
		admin.POST("/:id/unblock", h.unblock)
	}
}

func (h *UserHandler) profile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *UserHandler) block(c *gin.Context) {
	id, err := parseUserID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	if err := h.service.Block(c.Request.Context(), id); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

func (h *UserHandler) unblock(c *gin.Context) {
	id, err := parseUserID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	if err := h.service.Unblock(c.Request.Context(), id); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func parseUserID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", fmt.Sprintf("invalid user id: %q", c.Param("id")))
	}
	return id, nil
}
