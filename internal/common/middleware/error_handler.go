package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"channel-market-backend/internal/common/errors"
)

// ErrorHandler middleware для обработки паник
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error("Panic recovered",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.String("stack", string(debug.Stack())),
		)

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID).
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		SendError(c, appErr, logger)
	})
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse представляет ответ с ошибкой. Внутренние детали и стек
// никогда не попадают в тело ответа, только в логи.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// SendError отправляет ошибку в формате JSON и логирует её
func SendError(c *gin.Context, err error, logger *zap.Logger) {
	requestID := getRequestID(c)

	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Unexpected error")
	}
	appErr.WithRequestID(requestID)

	message := appErr.Message
	if appErr.IsInternal() {
		// Не раскрываем детали внутренних ошибок наружу
		message = "Internal server error"
	}

	response := ErrorResponse{
		Success:   false,
		Code:      string(appErr.Code),
		Message:   message,
		Timestamp: time.Now(),
		RequestID: requestID,
	}

	logError(appErr, logger, c)

	c.AbortWithStatusJSON(statusCode(appErr), response)
}

// statusCode возвращает HTTP статус код для ошибки
func statusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeUserNotFound, errors.ErrCodeChannelNotFound,
		errors.ErrCodeApplicationNotFound, errors.ErrCodeCategoryNotFound, errors.ErrCodePaymentNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized, errors.ErrCodeBadSignature:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden, errors.ErrCodeUserBlocked:
		return http.StatusForbidden
	case errors.ErrCodeConflict, errors.ErrCodeChannelClaimed, errors.ErrCodeApplicationSettled, errors.ErrCodePaymentDuplicate:
		return http.StatusConflict
	case errors.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case errors.ErrCodeDatabaseError, errors.ErrCodeTransactionFailed:
		return http.StatusInternalServerError
	case errors.ErrCodeTelegramAPI, errors.ErrCodeExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// logError логирует ошибку с контекстом запроса
func logError(appErr *errors.AppError, logger *zap.Logger, c *gin.Context) {
	fields := []zap.Field{
		zap.String("request_id", getRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_message", appErr.Message),
	}

	if userID := getUserID(c); userID != 0 {
		fields = append(fields, zap.Int64("user_id", userID))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}

	switch {
	case appErr.IsInternal():
		logger.Error("Internal error occurred", fields...)
	case appErr.IsUnauthorized():
		logger.Warn("Unauthorized access attempt", fields...)
	case appErr.IsValidation(), appErr.IsNotFound():
		logger.Info("Request rejected", fields...)
	default:
		logger.Warn("Application error occurred", fields...)
	}
}

// getRequestID получает ID запроса из контекста
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}

// getUserID получает ID пользователя из контекста
func getUserID(c *gin.Context) int64 {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(int64); ok {
			return id
		}
	}
	return 0
}
