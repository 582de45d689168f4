package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/core/swap"
	"offramp-assistant/internal/pkg/common"
)

// 菜色辨識走兩段式流程：
// 第一段從圖片或文字提示做分類，第二段依分類結果產生推薦。
// 第一段失敗時降級為 uncertain 種子，第二段才允許對外報錯。

// Classification 第一段的分類結果
type Classification struct {
	DishCandidates     []string `json:"dish_candidates"`
	Cuisine            string   `json:"cuisine"`
	VisibleIngredients []string `json:"visible_ingredients"`
	VegStatus          string   `json:"veg_status"`
	Confidence         float64  `json:"confidence"`
	Evidence           []string `json:"evidence"`
}

// DishName 最可能的菜名，候選為空時回傳提示文字
func (c *Classification) DishName() string {
	if len(c.DishCandidates) > 0 && strings.TrimSpace(c.DishCandidates[0]) != "" {
		return strings.TrimSpace(c.DishCandidates[0])
	}
	return ""
}

// LowConfidence 判斷是否落在信心門檻之下，呼叫端據此改問更清晰的輸入
func (c *Classification) LowConfidence() bool {
	return c.Confidence < 0.3 && c.VegStatus == "uncertain"
}

// Recommendation 第二段的正規化推薦結果
type Recommendation struct {
	DishName           string      `json:"dish_name"`
	VegStatus          string      `json:"veg_status"`
	Confidence         float64     `json:"confidence"`
	RecommendationType string      `json:"recommendation_type"`
	Items              []swap.Swap `json:"recommendations"`
}

var validVegStatus = map[string]bool{"veg": true, "non_veg": true, "uncertain": true}

// Pipeline 兩段式菜色辨識管線
type Pipeline struct {
	completer  ai.Completer
	textOpts   ai.Options
	visionOpts ai.Options
}

// NewPipeline 創建辨識管線，圖片請求與純文字請求可使用不同模型
func NewPipeline(completer ai.Completer, textOpts, visionOpts ai.Options) *Pipeline {
	return &Pipeline{completer: completer, textOpts: textOpts, visionOpts: visionOpts}
}

// hintSeed 第一段的降級種子，沒有圖片或解析失敗時使用
func hintSeed(hint string) *Classification {
	seed := &Classification{
		VegStatus:  "uncertain",
		Confidence: 0.5,
		Cuisine:    "unknown",
	}
	if h := strings.TrimSpace(hint); h != "" {
		seed.DishCandidates = []string{h}
	}
	return seed
}

const classifySystemPrompt = "You are a food recognition assistant. " +
	"You respond with a single JSON object and nothing else."

// Classify 第一段：從圖片資料 URI 或文字提示分類菜色。
// 永不報錯，任何失敗都回傳 uncertain 種子。
func (p *Pipeline) Classify(ctx context.Context, imageDataURI, hint string) *Classification {
	prompt := "Identify the dish. Return a JSON object of exactly this shape:\n" +
		`{"dish_candidates": ["..."], "cuisine": "...", "visible_ingredients": ["..."], "veg_status": "veg|non_veg|uncertain", "confidence": 0.0, "evidence": ["..."]}` +
		"\nconfidence is between 0 and 1. Do not add any other keys."

	var messages []ai.Message
	opts := p.textOpts
	switch {
	case imageDataURI != "":
		opts = p.visionOpts
		text := prompt
		if strings.TrimSpace(hint) != "" {
			text = "The user says this might be: " + strings.TrimSpace(hint) + "\n\n" + prompt
		}
		messages = []ai.Message{
			ai.TextMessage("system", classifySystemPrompt),
			ai.VisionMessage(text, imageDataURI),
		}
	case strings.TrimSpace(hint) != "":
		messages = []ai.Message{
			ai.TextMessage("system", classifySystemPrompt),
			ai.TextMessage("user", fmt.Sprintf("The dish is called %q. There is no photo.\n\n%s", strings.TrimSpace(hint), prompt)),
		}
	default:
		return hintSeed(hint)
	}

	raw, err := p.completer.Complete(ctx, messages, opts)
	if err != nil {
		common.LogError(fmt.Sprintf("菜色分類失敗，改用降級種子: %v", err))
		return hintSeed(hint)
	}

	cls, err := parseClassification(raw)
	if err != nil {
		common.LogInfo(fmt.Sprintf("菜色分類輸出無法解析，改用降級種子: %v", err))
		return hintSeed(hint)
	}
	if cls.DishName() == "" && strings.TrimSpace(hint) != "" {
		cls.DishCandidates = append([]string{strings.TrimSpace(hint)}, cls.DishCandidates...)
	}
	return cls
}

func parseClassification(raw string) (*Classification, error) {
	body, err := common.ExtractJSONObjectString(raw)
	if err != nil {
		return nil, err
	}
	var cls Classification
	if err := json.Unmarshal([]byte(body), &cls); err != nil {
		return nil, err
	}
	if !validVegStatus[cls.VegStatus] {
		cls.VegStatus = "uncertain"
	}
	cls.Confidence = clamp01(cls.Confidence)
	if strings.TrimSpace(cls.Cuisine) == "" {
		cls.Cuisine = "unknown"
	}
	return &cls, nil
}

// Recommend 第二段：依分類結果產生三個推薦。
// 推薦名稱含葷食詞時重試一次，仍失敗就剔除後用保底表補齊，
// 連補齊都湊不滿三個才回傳錯誤。
func (p *Pipeline) Recommend(ctx context.Context, cls *Classification) (*Recommendation, error) {
	first, firstErr := p.requestRecommendation(ctx, cls, "")

	var offending []string
	if firstErr == nil {
		offending = offendingNames(first.Items)
		if len(offending) == 0 {
			return first, nil
		}
	}

	feedback := "Your previous answer was rejected."
	if len(offending) > 0 {
		feedback = fmt.Sprintf("Your previous answer included non-vegetarian dishes (%s). Every recommendation must be fully plant-based.",
			strings.Join(offending, ", "))
	}
	retry, retryErr := p.requestRecommendation(ctx, cls, feedback)
	if retryErr == nil && len(offendingNames(retry.Items)) == 0 {
		return retry, nil
	}

	// 以第一次結果為基底剔除違規項，不足處由保底表補齊
	base := first
	if base == nil {
		base = retry
	}
	if base == nil {
		return nil, common.ErrAIServiceError
	}

	kept := base.Items[:0:0]
	for _, item := range base.Items {
		if !swap.ContainsAnyTerm(item.Name, swap.NonVegTerms) {
			kept = append(kept, item)
		}
	}
	kept = padFromFallback(kept, cls.Cuisine)
	if len(kept) < 3 {
		return nil, common.ErrAIServiceError
	}
	base.Items = kept[:3]
	return base, nil
}

func offendingNames(items []swap.Swap) []string {
	var out []string
	for _, item := range items {
		if swap.ContainsAnyTerm(item.Name, swap.NonVegTerms) {
			out = append(out, item.Name)
		}
	}
	return out
}

func (p *Pipeline) requestRecommendation(ctx context.Context, cls *Classification, feedback string) (*Recommendation, error) {
	recType := "similar_veg"
	if cls.VegStatus == "non_veg" {
		recType = "replacement"
	}

	seed, _ := json.Marshal(cls)
	var b strings.Builder
	b.WriteString("A dish was classified as follows:\n")
	b.Write(seed)
	if recType == "replacement" {
		b.WriteString("\n\nSuggest exactly 3 fully plant-based replacements for this dish.")
	} else {
		b.WriteString("\n\nSuggest exactly 3 similar fully plant-based dishes the user might enjoy.")
	}
	b.WriteString(" No meat, poultry, fish, seafood or eggs.")
	if feedback != "" {
		b.WriteString("\n\n" + feedback)
	}
	b.WriteString("\n\nRespond with a JSON object of exactly this shape:\n")
	fmt.Fprintf(&b, `{"dish_name": "...", "veg_status": %q, "confidence": %.2f, "recommendation_type": %q, "recommendations": [{"name": "...", "why": "..."}, {"name": "...", "why": "..."}, {"name": "...", "why": "..."}]}`,
		cls.VegStatus, cls.Confidence, recType)
	b.WriteString("\nDo not add any other keys.")

	raw, err := p.completer.Complete(ctx, []ai.Message{
		ai.TextMessage("system", classifySystemPrompt),
		ai.TextMessage("user", b.String()),
	}, p.textOpts)
	if err != nil {
		common.LogError(fmt.Sprintf("菜色推薦生成失敗: %v", err))
		return nil, err
	}

	rec, err := parseRecommendation(raw)
	if err != nil {
		common.LogInfo(fmt.Sprintf("菜色推薦輸出無法解析: %v", err))
		return nil, err
	}
	normalizeRecommendation(rec, cls, recType)
	return rec, nil
}

func parseRecommendation(raw string) (*Recommendation, error) {
	body, err := common.ExtractJSONObjectString(raw)
	if err != nil {
		return nil, err
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// normalizeRecommendation 把不合法的欄位拉回第一段的值或安全預設，
// 推薦列表截斷或用保底表補到恰好三個
func normalizeRecommendation(rec *Recommendation, cls *Classification, recType string) {
	rec.Confidence = clamp01(rec.Confidence)
	if !validVegStatus[rec.VegStatus] {
		rec.VegStatus = cls.VegStatus
	}
	if rec.RecommendationType != "replacement" && rec.RecommendationType != "similar_veg" {
		rec.RecommendationType = recType
	}
	if strings.TrimSpace(rec.DishName) == "" {
		rec.DishName = cls.DishName()
	}

	var cleaned []swap.Swap
	for _, item := range rec.Items {
		name := strings.TrimSpace(item.Name)
		why := strings.TrimSpace(item.Why)
		if name == "" {
			continue
		}
		if why == "" {
			why = "A plant-based dish in a similar style."
		}
		cleaned = append(cleaned, swap.Swap{Name: name, Why: why})
	}
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	rec.Items = padFromFallback(cleaned, cls.Cuisine)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
