package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"offramp-assistant/internal/pkg/common"
)

// BodySizeLimit 限制請求體大小的中間件。
// Meta 的 webhook 載荷很小，超大請求一律拒絕。
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			common.LogError("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(common.ErrPayloadTooLarge.Status, common.ErrorResponse{
				Code:    common.ErrPayloadTooLarge.Code,
				Message: common.ErrPayloadTooLarge.Message,
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
