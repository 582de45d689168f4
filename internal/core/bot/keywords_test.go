package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNegativePrompt(t *testing.T) {
	assert.True(t, IsNegativePrompt("how do I buy Bitcoin"))
	assert.True(t, IsNegativePrompt("write CODE FOR a scraper"))
	assert.True(t, IsNegativePrompt("any good stock tips"))
	assert.False(t, IsNegativePrompt("swap paneer for tofu"))
	assert.False(t, IsNegativePrompt(""))
}

func TestIsGreetingExactAndFirstToken(t *testing.T) {
	assert.True(t, IsGreeting("hi"))
	assert.True(t, IsGreeting("  Hello  "))
	assert.True(t, IsGreeting("menu"))
	assert.True(t, IsGreeting("hey there, food bot"))
	assert.True(t, IsGreeting("start over please"))
}

func TestIsGreetingSubstringTradeoff(t *testing.T) {
	// 子字串比對連 delhi 裡的 hi 都會命中，屬於沿用的已知取捨
	assert.True(t, IsGreeting("this is delhi"))
	assert.False(t, IsGreeting("paneer butter masala"))
	assert.False(t, IsGreeting("rajma chawal"))
}
