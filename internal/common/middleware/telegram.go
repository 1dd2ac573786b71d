package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"channel-market-backend/internal/features/user/models"
	"channel-market-backend/internal/features/user/service"
)

// TelegramInitData validates Telegram Mini App init data and resolves it to a
// marketplace user, creating one on first visit. An alternative identity path
// to the JWT Auth middleware for requests coming from the Mini App.
func TelegramInitData(users service.UserService, botToken string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("init_data")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram init data required"})
			return
		}

		if botToken == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
			return
		}

		if err := initdata.Validate(raw, botToken, ttl); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse init data"})
			return
		}

		user, err := users.GetOrCreateByTelegram(c.Request.Context(), parsed.User.ID, parsed.User.Username)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
			return
		}

		if user.Status == models.UserStatusBlocked {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_role", string(user.Role))
		c.Next()
	}
}
