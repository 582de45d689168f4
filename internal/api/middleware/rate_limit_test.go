package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	rl.Allow()
	rl.Allow()
	assert.False(t, rl.Allow())

	// 把上次補充時間撥回一秒，等同經過完整視窗
	rl.mu.Lock()
	rl.lastTime = time.Now().Add(-time.Second)
	rl.mu.Unlock()

	assert.True(t, rl.Allow())
}

// 高頻請求下零碎的補充量要累積，不能被截斷歸零
func TestRateLimiterAccumulatesFractionalTokens(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	rl.Allow()
	rl.Allow()

	// 半個令牌的補充量，單獨不夠放行
	rl.mu.Lock()
	rl.lastTime = time.Now().Add(-250 * time.Millisecond)
	rl.mu.Unlock()
	assert.False(t, rl.Allow())

	// 再補半個多，累積起來要夠一個令牌
	rl.mu.Lock()
	rl.lastTime = time.Now().Add(-300 * time.Millisecond)
	rl.mu.Unlock()
	assert.True(t, rl.Allow())
}
