package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"channel-market-backend/internal/common/cache"
	"channel-market-backend/internal/common/config"
	"channel-market-backend/internal/common/logger"
	"channel-market-backend/internal/common/middleware"
	applicationHTTP "channel-market-backend/internal/features/application/delivery/http"
	applicationRepo "channel-market-backend/internal/features/application/repository/postgres"
	applicationService "channel-market-backend/internal/features/application/service"
	authHTTP "channel-market-backend/internal/features/auth/delivery/http"
	authService "channel-market-backend/internal/features/auth/service"
	channelHTTP "channel-market-backend/internal/features/channel/delivery/http"
	channelRepo "channel-market-backend/internal/features/channel/repository/postgres"
	channelService "channel-market-backend/internal/features/channel/service"
	notificationHTTP "channel-market-backend/internal/features/notification/delivery/http"
	notificationRepo "channel-market-backend/internal/features/notification/repository/postgres"
	notificationService "channel-market-backend/internal/features/notification/service"
	paymentHTTP "channel-market-backend/internal/features/payment/delivery/http"
	"channel-market-backend/internal/features/payment/gateway"
	paymentRepo "channel-market-backend/internal/features/payment/repository/postgres"
	paymentService "channel-market-backend/internal/features/payment/service"
	promotionHTTP "channel-market-backend/internal/features/promotion/delivery/http"
	promotionService "channel-market-backend/internal/features/promotion/service"
	userHTTP "channel-market-backend/internal/features/user/delivery/http"
	usermodels "channel-market-backend/internal/features/user/models"
	userRepo "channel-market-backend/internal/features/user/repository/postgres"
	userService "channel-market-backend/internal/features/user/service"
	withdrawalHTTP "channel-market-backend/internal/features/withdrawal/delivery/http"
	withdrawalRepo "channel-market-backend/internal/features/withdrawal/repository/postgres"
	withdrawalService "channel-market-backend/internal/features/withdrawal/service"
	"channel-market-backend/internal/platform/db"
	"channel-market-backend/internal/platform/redis"
	"channel-market-backend/internal/platform/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init("channel-market-backend", cfg.Debug)

	zapLogger, err := zap.NewProduction()
	if cfg.Debug {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to init zap: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sqlDB, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(sqlDB, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		logger.Info().Msg("Migrations applied")
	}

	redisClient, err := redis.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)
	tgClient := telegram.NewClient(cfg.Telegram.BotToken)

	// Репозитории
	users := userRepo.NewPostgresRepository(sqlDB)
	channels := channelRepo.NewPostgresRepository(sqlDB)
	applications := applicationRepo.NewPostgresRepository(sqlDB)
	payments := paymentRepo.NewPostgresRepository(sqlDB)
	notifications := notificationRepo.NewPostgresRepository(sqlDB)
	withdrawals := withdrawalRepo.NewPostgresRepository(sqlDB)

	// Сервисы
	notifSvc := notificationService.NewNotificationService(notifications)
	userSvc := userService.NewUserService(users)
	authSvc := authService.NewAuthService(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	channelSvc := channelService.NewChannelService(channels, cacheService, zapLogger)
	paymentSvc := paymentService.NewPaymentService(sqlDB, payments, users, notifSvc)
	promotionSvc := promotionService.NewPromotionService(sqlDB, channels, users, payments, notifSvc, channelSvc)
	applicationSvc := applicationService.NewApplicationService(sqlDB, applications, channels, users, payments, notifSvc, channelSvc)
	withdrawalSvc := withdrawalService.NewWithdrawalService(sqlDB, withdrawals, users, notifSvc)

	freeKassa := gateway.NewFreeKassa(cfg.FreeKassa.MerchantID, cfg.FreeKassa.Secret)
	cryptoPay := gateway.NewCryptoPay(cfg.CryptoPay.Token)

	// Обработчики
	authHandler := authHTTP.NewAuthHandler(authSvc, userSvc, zapLogger)
	userHandler := userHTTP.NewUserHandler(userSvc, zapLogger)
	channelHandler := channelHTTP.NewChannelHandler(channelSvc, zapLogger)
	applicationHandler := applicationHTTP.NewApplicationHandler(applicationSvc, zapLogger)
	promotionHandler := promotionHTTP.NewPromotionHandler(promotionSvc, zapLogger)
	paymentHandler := paymentHTTP.NewPaymentHandler(paymentSvc, freeKassa, cryptoPay, zapLogger)
	notificationHandler := notificationHTTP.NewNotificationHandler(notifSvc, zapLogger)
	withdrawalHandler := withdrawalHTTP.NewWithdrawalHandler(withdrawalSvc, zapLogger)

	// Фоновые воркеры
	expirationWorker := promotionService.NewExpirationService(channels, channelSvc, cfg.Workers.PromotionSweepInterval)
	expirationWorker.Start()
	defer expirationWorker.Stop()

	refreshWorker := channelService.NewRefreshService(channels, tgClient, cfg.Workers.SubscriberRefreshInterval)
	refreshWorker.Start()
	defer refreshWorker.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler(zapLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "init_data"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Публичные маршруты: каталог, аутентификация, вебхуки шлюзов
	authHandler.RegisterRoutes(v1)
	channelHandler.RegisterPublicRoutes(v1)
	paymentHandler.RegisterWebhooks(v1)

	// Вход из Telegram Mini App: initData обменивается на обычный JWT
	tgAuth := v1.Group("")
	tgAuth.Use(middleware.TelegramInitData(userSvc, cfg.Telegram.BotToken, 24*time.Hour))
	authHandler.RegisterTelegramRoutes(tgAuth)

	// Аутентифицированные маршруты
	authed := v1.Group("")
	authed.Use(middleware.Auth(userSvc, cfg.Auth.JWTSecret))
	{
		userHandler.RegisterRoutes(authed)
		channelHandler.RegisterRoutes(authed)
		applicationHandler.RegisterRoutes(authed)
		promotionHandler.RegisterRoutes(authed)
		paymentHandler.RegisterRoutes(authed)
		notificationHandler.RegisterRoutes(authed)
		withdrawalHandler.RegisterRoutes(authed)

		staff := authed.Group("")
		staff.Use(middleware.RequireRole(usermodels.RoleAdmin, usermodels.RoleModerator))
		{
			applicationHandler.RegisterModerationRoutes(staff)
		}

		admin := authed.Group("")
		admin.Use(middleware.RequireRole(usermodels.RoleAdmin))
		{
			userHandler.RegisterAdminRoutes(admin)
			withdrawalHandler.RegisterAdminRoutes(admin)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}
}
