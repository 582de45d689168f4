package service

import (
	"context"
	"fmt"

	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/core/ai/cache"
	"offramp-assistant/internal/core/ai/openrouter"
	"offramp-assistant/internal/infrastructure/config"
	"offramp-assistant/internal/pkg/common"
)

// Service AI 服務，在 OpenRouter 客戶端前面加一層快取。
// 只有單純的文字補全會走快取；帶圖片或帶校正回饋的請求
// 每次都要重新生成，不可快取。
type Service struct {
	config       *config.Config
	client       *openrouter.Client
	cacheManager *cache.CacheManager
	redisCache   *cache.Service
}

// NewService 創建 AI 服務
func NewService(cfg *config.Config, cacheManager *cache.CacheManager, redisCache *cache.Service) *Service {
	return &Service{
		config:       cfg,
		client:       openrouter.NewClient(cfg),
		cacheManager: cacheManager,
		redisCache:   redisCache,
	}
}

// Complete 實作 ai.Completer，不經過快取
func (s *Service) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	return s.client.Complete(ctx, messages, opts)
}

// CompleteCached 帶快取的單輪文字補全
func (s *Service) CompleteCached(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	key := cache.Key(opts.Model, prompt)

	if s.cacheManager != nil {
		if val, ok := s.cacheManager.Get(key); ok && val != "" {
			return val, nil
		}
	}
	if s.redisCache != nil {
		if val, err := s.redisCache.Get(ctx, key); err == nil && val != "" {
			// 回填進程內快取
			_ = s.cacheManager.Set(key, val)
			return val, nil
		}
	}

	content, err := s.client.Complete(ctx, []ai.Message{ai.TextMessage("user", prompt)}, opts)
	if err != nil {
		return "", fmt.Errorf("AI service error: %w", err)
	}

	if err := s.cacheManager.Set(key, content); err != nil && err != common.ErrCacheFull {
		common.LogWarn("快取寫入失敗")
	}
	_ = s.redisCache.Set(ctx, key, content)

	return content, nil
}

// Close 關閉 AI 服務
func (s *Service) Close() error {
	return s.client.Close()
}
