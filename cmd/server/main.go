package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/CD-338080/Usdt-roller/internal/common/config"
	"github.com/CD-338080/Usdt-roller/internal/common/logger"
	"github.com/CD-338080/Usdt-roller/internal/common/middleware"
	accounthttp "github.com/CD-338080/Usdt-roller/internal/features/account/delivery/http"
	accountredis "github.com/CD-338080/Usdt-roller/internal/features/account/repository/redis"
	accountservice "github.com/CD-338080/Usdt-roller/internal/features/account/service"
	withdrawalhttp "github.com/CD-338080/Usdt-roller/internal/features/withdrawal/delivery/http"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/payout"
	withdrawalredis "github.com/CD-338080/Usdt-roller/internal/features/withdrawal/repository/redis"
	withdrawalservice "github.com/CD-338080/Usdt-roller/internal/features/withdrawal/service"
	redisplatform "github.com/CD-338080/Usdt-roller/internal/platform/redis"
	"github.com/CD-338080/Usdt-roller/internal/platform/telegram"
)

// @title           Usdt Roller API
// @version         1.0
// @description     Server-authoritative progression and accrual engine for the Usdt Roller Telegram Mini App. All game endpoints require init_data authentication.

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

func main() {
	cfg := config.Load()

	logger.Init("usdt-roller", cfg.Debug)

	logger.Info().
		Bool("debug", cfg.Debug).
		Msg("Starting Usdt Roller backend")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := redisplatform.Open(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	logger.Info().Msg("Redis connection established")

	accountRepo := accountredis.NewAccountRepository(redisClient.Client)
	withdrawalRepo := withdrawalredis.NewWithdrawalRepository(redisClient.Client)

	botClient := telegram.NewClient(cfg.Telegram.BotToken)
	payoutClient := payout.NewClient(cfg.Payout.BaseURL, cfg.Payout.APIToken, cfg.Payout.Timeout)

	accountSvc := accountservice.NewAccountService(accountRepo, botClient)
	withdrawalSvc := withdrawalservice.NewWithdrawalService(withdrawalRepo, accountRepo, payoutClient, cfg.Payout.MaxAttempts)

	logger.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL))
	v1.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	accounthttp.NewAccountHandler(accountSvc).RegisterRoutes(v1)

	withdrawalHandler := withdrawalhttp.NewWithdrawalHandler(withdrawalSvc)
	withdrawalHandler.RegisterRoutes(v1)

	// The processor callback authenticates with the payout token, not
	// init_data, so it sits outside the Telegram-authenticated group.
	withdrawalHandler.RegisterCallbackRoutes(router.Group("/api/v1/payouts"), cfg.Payout.APIToken)

	registerProbes(router, redisClient)

	logger.Info().Msg("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func registerProbes(router *gin.Engine, redisClient *redisplatform.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "usdt-roller",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "usdt-roller",
		})
	})
}
