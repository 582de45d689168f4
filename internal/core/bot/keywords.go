package bot

import "strings"

// negativeKeywords 離題話題的關鍵詞，命中即把對話拉回主線
var negativeKeywords = []string{
	"invest", "crypto", "bitcoin", "loan", "politics", "mods",
	"telegram", "share price", "stock", "earn money", "math homework",
	"code for", "hack", "exploit", "adult",
}

// IsNegativePrompt 以子字串比對檢查離題關鍵詞
func IsNegativePrompt(text string) bool {
	normalized := strings.ToLower(text)
	for _, keyword := range negativeKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hii": true,
	"start": true, "menu": true, "help": true, "hola": true,
}

// IsGreeting 問候語啟發式判斷。
// 最後的子字串比對會把 "this is delhi" 之類誤判為問候，
// 這是沿用的已知取捨，換成更嚴格的規則會漏掉很多隨手打的招呼。
func IsGreeting(text string) bool {
	stripped := strings.ToLower(strings.TrimSpace(text))
	if greetingWords[stripped] {
		return true
	}

	tokens := strings.Fields(stripped)
	if len(tokens) > 0 && greetingWords[tokens[0]] {
		return true
	}

	for _, keyword := range []string{"hi", "hello", "hey"} {
		if strings.Contains(stripped, keyword) {
			return true
		}
	}
	return false
}
