package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// Message 與模型的對話消息。Content 可以是純文字字串，
// 也可以是多模態的 []Part（文字 + 圖片）。
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// Part 多模態內容片段
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 圖片 URL 結構
type ImageURL struct {
	URL string `json:"url"`
}

// TextMessage 建立純文字消息
func TextMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// VisionMessage 建立帶圖片的 user 消息
func VisionMessage(text, imageDataURI string) Message {
	return Message{
		Role: "user",
		Content: []Part{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageDataURI}},
		},
	}
}

// Options 單次補全的參數
type Options struct {
	Model       string  // 留空則用預設模型
	Temperature float64 // 0 表示用預設值
}

// Completer 生成服務介面，swap / vision 等管線以此注入，
// 測試時可換成假的實作。
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// CachedCompleter 帶快取的單輪文字補全。
// 只適合提示詞相同時答案可重用的場景。
type CachedCompleter interface {
	CompleteCached(ctx context.Context, prompt string, opts Options) (string, error)
}

// DecodeContent 解析模型回傳的 content 欄位。
// 可能是單一字串，也可能是分段陣列，文字片段要串接。
func DecodeContent(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []Part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}
