package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-market-backend/internal/common/middleware"
	"channel-market-backend/internal/features/channel/models"
	"channel-market-backend/internal/features/channel/repository"
	"channel-market-backend/internal/features/channel/service"
)

type ChannelHandler struct {
	service service.ChannelService
	logger  *zap.Logger
}

func NewChannelHandler(service service.ChannelService, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterPublicRoutes вешает публичные маршруты каталога
func (h *ChannelHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	channels := router.Group("/channels")
	{
		channels.GET("", h.listCatalog)
		channels.GET("/:username", h.getByUsername)
	}
	router.GET("/categories", h.listCategories)
}

// RegisterRoutes вешает маршруты кабинета владельца
func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	channels := router.Group("/channels")
	{
		channels.GET("/me", h.listOwn)
	}
}

func (h *ChannelHandler) listCatalog(c *gin.Context) {
	categoryID, _ := strconv.ParseInt(c.DefaultQuery("category_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := repository.ListFilter{
		CategoryID: categoryID,
		Type:       models.ChannelType(c.Query("type")),
		Limit:      limit,
		Offset:     offset,
	}

	channels, err := h.service.ListCatalog(c.Request.Context(), filter)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *ChannelHandler) getByUsername(c *gin.Context) {
	channel, err := h.service.GetPublicByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, channel)
}

func (h *ChannelHandler) listCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *ChannelHandler) listOwn(c *gin.Context) {
	channels, err := h.service.ListOwn(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}
