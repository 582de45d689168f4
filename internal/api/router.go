package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"offramp-assistant/internal/api/handlers/health"
	webhookHandler "offramp-assistant/internal/api/handlers/webhook"
	"offramp-assistant/internal/api/middleware"
	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/core/ai/cache"
	"offramp-assistant/internal/core/ai/service"
	"offramp-assistant/internal/core/bot"
	"offramp-assistant/internal/core/nearby"
	"offramp-assistant/internal/core/vision"
	"offramp-assistant/internal/core/whatsapp"
	"offramp-assistant/internal/infrastructure/config"
	"offramp-assistant/internal/pkg/common"

	imagesvc "offramp-assistant/internal/core/image"
	"offramp-assistant/internal/core/swap"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 單次 webhook 處理的上限，涵蓋模型呼叫與重試
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)，webhook 載荷遠小於此
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由並組裝所有服務
func SetupRouter(cfg *config.Config, cacheManager *cache.CacheManager) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("vision_model", cfg.OpenRouter.VisionModel),
		zap.Duration("timeout", timeoutDuration),
	)

	redisCache, err := cache.NewService(cfg)
	if err != nil {
		common.LogWarn("Redis 快取初始化失敗，僅使用記憶體快取", zap.Error(err))
		redisCache = nil
	}

	aiService := service.NewService(cfg, cacheManager, redisCache)
	if aiService == nil {
		return nil, fmt.Errorf("failed to initialize AI service")
	}

	textOpts := ai.Options{Model: cfg.OpenRouter.Model, Temperature: cfg.OpenRouter.Temperature}
	visionOpts := ai.Options{Model: cfg.OpenRouter.VisionModel, Temperature: cfg.OpenRouter.Temperature}

	swapGenerator := swap.NewGenerator(aiService, textOpts)
	visionPipeline := vision.NewPipeline(aiService, textOpts, visionOpts)
	imageService := imagesvc.NewService(cfg.Image.MaxSizeBytes)
	whatsappClient := whatsapp.NewClient(cfg)

	var places nearby.Searcher
	nearbyClient := nearby.NewClient(cfg)
	if nearbyClient.Enabled() {
		places = nearbyClient
	} else {
		common.LogWarn("附近搜尋未設定 API 金鑰，將只提供保底結果")
	}

	machine := bot.NewMachine(swapGenerator, visionPipeline, places, whatsappClient, imageService)
	store := bot.NewStore()
	dedupe := bot.NewDeduper(cfg.Bot.DedupeCapacity)
	rewriter := bot.NewRewriter(aiService, textOpts, cfg.Bot.RewriteEnabled)
	stats := webhookHandler.NewStats()

	handler := webhookHandler.NewHandler(cfg, store, dedupe, machine, rewriter, whatsappClient, stats, cacheManager)

	// 全局中間件：設置超時與配置
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
		}
	})

	// 健康檢查與統計路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)
	router.GET("/", handler.ShowStats)

	// WhatsApp webhook 路由
	router.GET("/whatsapp", handler.Verify)
	router.POST("/whatsapp", handler.Receive)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("nearby_enabled", places != nil),
		zap.Bool("rewrite_enabled", cfg.Bot.RewriteEnabled),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
