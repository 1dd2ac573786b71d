package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/payment/gateway"
	"channel-market-backend/internal/features/payment/service"
)

type PaymentHandler struct {
	service   service.PaymentService
	freeKassa *gateway.FreeKassa
	cryptoPay *gateway.CryptoPay
	logger    *zap.Logger
}

func NewPaymentHandler(service service.PaymentService, freeKassa *gateway.FreeKassa, cryptoPay *gateway.CryptoPay, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		freeKassa: freeKassa,
		cryptoPay: cryptoPay,
		logger:    logger,
	}
}

// RegisterRoutes вешает аутентифицированные маршруты истории платежей
func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/payments")
	{
		payments.GET("", h.history)
	}
}

// RegisterWebhooks вешает публичные маршруты уведомлений платежных шлюзов.
// Аутентификация — подпись провайдера, а не сессия пользователя.
func (h *PaymentHandler) RegisterWebhooks(router *gin.RouterGroup) {
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/freekassa", h.freeKassaCallback)
		webhooks.POST("/cryptopay", h.cryptoPayWebhook)
	}
}

func (h *PaymentHandler) history(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	payments, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *PaymentHandler) freeKassaCallback(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "bad form")
		return
	}

	notification, err := h.freeKassa.VerifyAndParse(c.Request.PostForm)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	if err := h.service.ProcessGatewayTopup(c.Request.Context(), notification); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	// FreeKassa ожидает литерал "YES" в теле успешного ответа
	c.String(http.StatusOK, "YES")
}

func (h *PaymentHandler) cryptoPayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "bad body")
		return
	}

	notification, err := h.cryptoPay.VerifyAndParse(body, c.GetHeader(gateway.SignatureHeader))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	if err := h.service.ProcessGatewayTopup(c.Request.Context(), notification); err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
