package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "channel-market-backend/internal/common/errors"
	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/withdrawal/models"
	"channel-market-backend/internal/features/withdrawal/service"
)

type WithdrawalHandler struct {
	service service.WithdrawalService
	logger  *zap.Logger
}

func NewWithdrawalHandler(service service.WithdrawalService, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует пользовательские маршруты вывода средств
func (h *WithdrawalHandler) RegisterRoutes(router *gin.RouterGroup) {
	withdrawals := router.Group("/withdrawals")
	{
		withdrawals.POST("", h.create)
		withdrawals.GET("/me", h.listOwn)
	}
}

// RegisterAdminRoutes регистрирует маршруты очереди выплат;
// группа должна быть защищена RequireRole(admin)
func (h *WithdrawalHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin/withdrawals")
	{
		admin.GET("", h.listPending)
		admin.POST("/:id/approve", h.approve)
		admin.POST("/:id/reject", h.reject)
	}
}

type createRequest struct {
	// Сумма приходит строкой, чтобы не терять точность на float
	Amount  string                  `json:"amount" binding:"required"`
	Method  models.WithdrawalMethod `json:"method" binding:"required"`
	Details string                  `json:"details" binding:"required"`
}

func (h *WithdrawalHandler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.NewValidationError("body", err.Error()), h.logger)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		middleware.SendError(c, apperrors.NewValidationError("amount", "malformed decimal"), h.logger)
		return
	}

	request, err := h.service.Create(c.Request.Context(),
		middleware.CurrentUserID(c), amount, req.Method, req.Details)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"withdrawal": request})
}

func (h *WithdrawalHandler) listOwn(c *gin.Context) {
	requests, err := h.service.ListOwn(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": requests})
}

func (h *WithdrawalHandler) listPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": requests})
}

func (h *WithdrawalHandler) approve(c *gin.Context) {
	id, err := parseWithdrawalID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	request, err := h.service.Approve(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": request})
}

func (h *WithdrawalHandler) reject(c *gin.Context) {
	id, err := parseWithdrawalID(c)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	request, err := h.service.Reject(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawal": request})
}

func parseWithdrawalID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id", fmt.Sprintf("invalid withdrawal id: %q", c.Param("id")))
	}
	return id, nil
}
