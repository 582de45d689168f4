package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP

	"offramp-assistant/internal/pkg/common"
)

// Service 圖片處理服務。WhatsApp 下載下來的媒體格式不一，
// 統一驗證後轉成 JPEG data URI 再餵給視覺模型。
type Service struct {
	maxSizeBytes int64
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
	}
}

// ProcessBytes 驗證圖片位元組並轉成 JPEG data URI
func (s *Service) ProcessBytes(imageBytes []byte) (string, error) {
	if len(imageBytes) == 0 {
		return "", fmt.Errorf("image data is empty")
	}

	// 檢查文件大小
	if int64(len(imageBytes)) > s.maxSizeBytes {
		return "", common.ErrInvalidImageSize
	}

	// 解碼圖片
	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// 檢查圖片格式
	if !isSupportedFormat(format) {
		return "", common.ErrInvalidImageFormat
	}

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	// 重新編碼為 base64
	encodedData := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:image/jpeg;base64,%s", encodedData), nil
}

// ValidateBytes 只驗證圖片，不轉檔
func (s *Service) ValidateBytes(imageBytes []byte) error {
	if len(imageBytes) == 0 {
		return fmt.Errorf("image data is empty")
	}
	if int64(len(imageBytes)) > s.maxSizeBytes {
		return common.ErrInvalidImageSize
	}

	_, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return common.ErrInvalidImageFormat
	}
	return nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"jpg":  true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
