package swap

import (
	"regexp"
	"strings"
	"sync"
)

// Target 目標飲食類別
type Target string

const (
	TargetVeg   Target = "veg"
	TargetVegan Target = "vegan"
	TargetJain  Target = "jain"
)

// AllowedSourceTypes detected_source_type 的合法值
var AllowedSourceTypes = map[string]bool{
	"non_veg":   true,
	"veg":       true,
	"vegan":     true,
	"jain":      true,
	"uncertain": true,
}

// NonVegTerms 葷食關鍵詞
var NonVegTerms = []string{
	"chicken", "mutton", "lamb", "beef", "pork", "fish", "seafood",
	"prawn", "shrimp", "crab", "egg", "eggs", "bacon", "ham",
	"turkey", "salami",
}

// DairyHoneyTerms 乳製品與蜂蜜關鍵詞（vegan 禁用）
var DairyHoneyTerms = []string{
	"milk", "cream", "butter", "ghee", "paneer", "cheese", "curd",
	"yogurt", "yoghurt", "honey", "lassi", "khoa", "khoya", "whey",
}

// JainForbiddenTerms 耆那教禁用的根莖類與蔥蒜關鍵詞
var JainForbiddenTerms = []string{
	"onion", "garlic", "potato", "potatoes", "carrot", "carrots",
	"beetroot", "beet", "radish", "sweet potato", "root vegetable",
	"roots", "yam", "turnip",
}

var (
	termPatternMu sync.Mutex
	termPatterns  = map[string]*regexp.Regexp{}
)

// termPattern 取得詞邊界匹配的正則，避免 "ham" 誤中 "chana" 這類子字串
func termPattern(term string) *regexp.Regexp {
	termPatternMu.Lock()
	defer termPatternMu.Unlock()

	if re, ok := termPatterns[term]; ok {
		return re
	}
	re := regexp.MustCompile(`(?:^|[^a-z])` + regexp.QuoteMeta(strings.ToLower(term)) + `(?:[^a-z]|$)`)
	termPatterns[term] = re
	return re
}

// ContainsAnyTerm 檢查文本是否含有任一關鍵詞（詞邊界匹配）
func ContainsAnyTerm(text string, termSets ...[]string) bool {
	normalized := strings.ToLower(text)
	for _, terms := range termSets {
		for _, term := range terms {
			if termPattern(term).MatchString(normalized) {
				return true
			}
		}
	}
	return false
}

// BlockedTermsFor 依目標與耆那規則組出禁用詞集
func BlockedTermsFor(target Target, jainRequired bool) [][]string {
	var sets [][]string
	switch target {
	case TargetVegan:
		sets = append(sets, NonVegTerms, DairyHoneyTerms)
	case TargetJain:
		sets = append(sets, NonVegTerms, JainForbiddenTerms)
	default:
		sets = append(sets, NonVegTerms)
	}
	if jainRequired && target != TargetJain {
		sets = append(sets, JainForbiddenTerms)
	}
	return sets
}

// RequiresJainRules 判斷是否需要套用耆那規則
func RequiresJainRules(restrictions []string, instruction string) bool {
	if strings.Contains(strings.ToLower(instruction), "jain") {
		return true
	}
	for _, r := range restrictions {
		if strings.EqualFold(strings.TrimSpace(r), "jain") {
			return true
		}
	}
	return false
}

// ResolveTarget 由偏好與臨時指令推出目標飲食類別。
// vegan 使用者始終是 vegan，其餘在需要耆那規則時升級為 jain。
func ResolveTarget(diet string, restrictions []string, instruction string) (Target, bool) {
	jain := RequiresJainRules(restrictions, instruction)

	target := TargetVeg
	if strings.EqualFold(strings.TrimSpace(diet), "vegan") {
		target = TargetVegan
	}
	if jain && target != TargetVegan {
		target = TargetJain
	}
	return target, jain
}
