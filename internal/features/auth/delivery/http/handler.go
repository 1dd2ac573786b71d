package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/auth/service"
	userservice "channel-market-backend/internal/features/user/service"
)

type AuthHandler struct {
	service service.AuthService
	users   userservice.UserService
	logger  *zap.Logger
}

func NewAuthHandler(service service.AuthService, users userservice.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		logger:  logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}
}

// RegisterTelegramRoutes вешает обмен Telegram initData на обычный JWT;
// группа должна быть защищена middleware.TelegramInitData
func (h *AuthHandler) RegisterTelegramRoutes(router *gin.RouterGroup) {
	router.POST("/auth/telegram", h.telegramLogin)
}

// telegramLogin выдает JWT личности, уже проверенной по initData
func (h *AuthHandler) telegramLogin(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	tokens, err := h.service.IssueToken(user)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user.ToResponse(),
		"token": tokens,
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()), h.logger)
		return
	}

	user, tokens, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  user.ToResponse(),
		"token": tokens,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()), h.logger)
		return
	}

	user, tokens, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user.ToResponse(),
		"token": tokens,
	})
}
