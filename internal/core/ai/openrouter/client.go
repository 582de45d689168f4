package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/infrastructure/config"
	"offramp-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client OpenRouter API 客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// request 表示 API 請求
type request struct {
	Model       string       `json:"model"`
	Messages    []ai.Message `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	Stream      bool         `json:"stream"`
}

// response OpenRouter 響應結構。content 可能是字串或分段陣列，
// 所以先留 RawMessage，由 ai.DecodeContent 處理。
type response struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetTimeout(cfg.OpenRouter.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://offramp.chat").
		SetHeader("X-Title", "OFFRAMP Assistant")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Complete 送出一次補全請求並回傳 assistant 內容
func (c *Client) Complete(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.config.OpenRouter.Model
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.config.OpenRouter.Temperature
	}

	req := request{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.config.OpenRouter.MaxTokens,
		Temperature: temperature,
		Stream:      false,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		common.LogAICall(time.Since(start), err, "")
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), resp.String())
		common.LogAICall(time.Since(start), err, "")
		return "", err
	}

	// 解析回應
	var result response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenRouter response")
	}

	content, err := ai.DecodeContent(result.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("unexpected OpenRouter content shape: %w", err)
	}
	if content == "" {
		return "", fmt.Errorf("empty content in OpenRouter response")
	}

	common.LogInfo("OpenRouter 回應成功",
		zap.String("model", model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Duration("耗時", time.Since(start)),
	)

	return content, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
