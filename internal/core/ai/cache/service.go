package cache

import (
	"context"
	"fmt"

	"offramp-assistant/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// Service Redis 緩存服務，作為跨進程的第二層快取。
// 沒設定 Redis 時所有操作都是 no-op。
type Service struct {
	client *redis.Client
	config *config.Config
}

// NewService 創建緩存服務
func NewService(cfg *config.Config) (*Service, error) {
	if !cfg.Redis.Enabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("cache is disabled")
	}

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("cache miss")
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return data, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if s == nil || s.client == nil {
		return nil
	}

	if err := s.client.Set(ctx, key, value, s.config.Cache.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉 Redis 連接
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
