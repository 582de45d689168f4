package webhook

import (
	"context"
	"net/http"
	"sync"
	"time"

	"offramp-assistant/internal/core/ai/cache"
	"offramp-assistant/internal/core/bot"
	"offramp-assistant/internal/infrastructure/config"
	"offramp-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stats 服務啟動以來的處理統計
type Stats struct {
	mu          sync.Mutex
	startTime   time.Time
	processed   int64
	activeUsers map[string]bool
}

// NewStats 創建統計器
func NewStats() *Stats {
	return &Stats{
		startTime:   time.Now().UTC(),
		activeUsers: make(map[string]bool),
	}
}

func (s *Stats) record(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.activeUsers[sender] = true
}

// Snapshot 取得統計快照
func (s *Stats) Snapshot() (startTime time.Time, processed int64, activeUsers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime, s.processed, len(s.activeUsers)
}

// Handler WhatsApp webhook 處理器
type Handler struct {
	cfg      *config.Config
	store    *bot.Store
	dedupe   *bot.Deduper
	machine  *bot.Machine
	rewriter *bot.Rewriter
	sender   bot.Sender
	stats    *Stats
	cache    *cache.CacheManager
}

// NewHandler 創建 webhook 處理器
func NewHandler(
	cfg *config.Config,
	store *bot.Store,
	dedupe *bot.Deduper,
	machine *bot.Machine,
	rewriter *bot.Rewriter,
	sender bot.Sender,
	stats *Stats,
	cacheManager *cache.CacheManager,
) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		dedupe:   dedupe,
		machine:  machine,
		rewriter: rewriter,
		sender:   sender,
		stats:    stats,
		cache:    cacheManager,
	}
}

// Verify Meta webhook 驗證握手。驗證通過時原樣回 challenge。
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.cfg.WhatsApp.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	common.LogWarn("Webhook 驗證失敗",
		zap.String("mode", mode),
		zap.String("ip", c.ClientIP()),
	)
	c.String(http.StatusForbidden, "verification failed")
}

// Receive 處理入站事件。每個事件同步處理完才回應，
// 重複訊息直接跳過，回覆一律在投遞前過 AI 潤飾。
func (h *Handler) Receive(c *gin.Context) {
	var payload bot.WebhookPayload
	if err := common.DecodeJSON(c.Request.Body, &payload); err != nil {
		// Meta 偶爾會送非訊息載荷，照樣回 200 避免重送風暴
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	ctx := c.Request.Context()
	batchID := common.GenerateUUID()
	for _, event := range bot.NormalizeEvents(&payload) {
		if h.dedupe.Seen(event.MessageID) {
			common.LogInfo("跳過重複的 webhook 訊息",
				zap.String("batch_id", batchID),
				zap.String("message_id", event.MessageID),
			)
			continue
		}

		h.stats.record(event.Sender)
		common.LogDebug("處理 webhook 訊息",
			zap.String("batch_id", batchID),
			zap.String("message_id", event.MessageID),
			zap.String("type", event.Type),
		)

		h.handleEvent(ctx, batchID, event)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// handleEvent 處理單一事件。一個事件出狀況不應拖垮同批次的其他事件
func (h *Handler) handleEvent(ctx context.Context, batchID string, event bot.IncomingEvent) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("處理 webhook 訊息時發生 panic",
				zap.String("batch_id", batchID),
				zap.String("message_id", event.MessageID),
				zap.Any("panic", r),
			)
		}
	}()

	h.store.With(event.Sender, func(sess *bot.Session) {
		responses := h.machine.Handle(ctx, sess, event)
		for _, response := range responses {
			response = h.rewriter.Rewrite(ctx, sess, response)
			bot.Deliver(ctx, h.sender, event.Sender, response)
		}
	})
}

// ShowStats 統計端點
func (h *Handler) ShowStats(c *gin.Context) {
	startTime, processed, activeUsers := h.stats.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"start_time":         startTime.Format(time.RFC3339),
		"messages_processed": processed,
		"active_users":       activeUsers,
		"cached_contexts":    h.store.Len(),
		"ai_cache":           h.cache.GetStats(),
	})
}
