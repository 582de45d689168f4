package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/pkg/common"
)

const maxAttempts = 2

// Hints 包含影響推薦口味的使用者偏好與臨時指令
type Hints struct {
	Taste        string
	Budget       string
	Allergies    []string
	Restrictions []string
	Instruction  string
	Feedback     string
}

// Swap 單一替代菜色
type Swap struct {
	Name string `json:"name"`
	Why  string `json:"why"`
}

// Result 替代方案結果，結構與鍵名受嚴格驗證
type Result struct {
	InputDish          string `json:"input_dish"`
	DetectedSourceType string `json:"detected_source_type"`
	Target             string `json:"target"`
	Swaps              []Swap `json:"swaps"`

	// Fallback 標記此結果來自保底表而非模型
	Fallback bool `json:"-"`
}

// Generator 產生經驗證的植物性替代方案
type Generator struct {
	completer ai.Completer
	opts      ai.Options
}

// NewGenerator 創建替代方案生成器
func NewGenerator(completer ai.Completer, opts ai.Options) *Generator {
	return &Generator{completer: completer, opts: opts}
}

// Generate 為指定菜色產生三個替代方案。
// 模型輸出必須通過結構與禁用詞驗證，兩次嘗試皆失敗時回傳保底結果，
// 呼叫端永遠拿到合法的 Result。
func (g *Generator) Generate(ctx context.Context, dish string, target Target, jainRequired bool, hints Hints) *Result {
	start := time.Now()
	feedback := hints.Feedback

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := g.buildPrompt(dish, target, jainRequired, hints, feedback)

		raw, err := g.completer.Complete(ctx, []ai.Message{
			ai.TextMessage("system", swapSystemPrompt),
			ai.TextMessage("user", prompt),
		}, g.opts)
		if err != nil {
			common.LogError(fmt.Sprintf("替代方案生成失敗 (第 %d 次): %v", attempt, err))
			feedback = "Your previous response could not be parsed. Return only the JSON object."
			continue
		}

		result, verr := parseAndValidate(raw, dish, target, jainRequired)
		if verr != nil {
			common.LogInfo(fmt.Sprintf("替代方案驗證失敗 (第 %d 次): %v", attempt, verr))
			feedback = fmt.Sprintf("Your previous response was rejected: %s. Fix the issue and return only the JSON object.", verr.Error())
			continue
		}

		common.LogInfo(fmt.Sprintf("替代方案生成成功: dish=%s target=%s 耗時=%v", dish, target, time.Since(start)))
		return result
	}

	common.LogError(fmt.Sprintf("替代方案重試耗盡，使用保底方案: dish=%s target=%s", dish, target))
	return fallbackResult(dish, target, jainRequired)
}

const swapSystemPrompt = "You are a culinary assistant that suggests plant-based alternatives for dishes. " +
	"You respond with a single JSON object and nothing else. No markdown, no commentary."

func (g *Generator) buildPrompt(dish string, target Target, jainRequired bool, hints Hints, feedback string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest exactly 3 %s alternatives for the dish %q.\n\n", targetLabel(target), dish)

	b.WriteString("Rules:\n")
	b.WriteString("- No meat, poultry, fish, seafood or eggs in any suggestion.\n")
	if target == TargetVegan {
		b.WriteString("- No dairy products and no honey.\n")
	}
	if target == TargetJain || jainRequired {
		b.WriteString("- Follow Jain rules: no onion, no garlic, no potato, no carrot, no root vegetables.\n")
	}
	b.WriteString("- Each alternative must have a distinct name different from the input dish.\n")

	if hint := preferenceHint(hints); hint != "" {
		b.WriteString("\nUser preferences: " + hint + "\n")
	}
	if strings.TrimSpace(hints.Instruction) != "" {
		b.WriteString("\nExtra instruction from the user: " + strings.TrimSpace(hints.Instruction) + "\n")
	}
	if feedback != "" {
		b.WriteString("\nFeedback on your previous attempt: " + feedback + "\n")
	}

	b.WriteString("\nRespond with a JSON object of exactly this shape:\n")
	fmt.Fprintf(&b, `{"input_dish": %q, "detected_source_type": "non_veg|veg|vegan|jain|uncertain", "target": %q, "swaps": [{"name": "...", "why": "..."}, {"name": "...", "why": "..."}, {"name": "...", "why": "..."}]}`, dish, string(target))
	b.WriteString("\nDo not add any other keys.")

	return b.String()
}

func targetLabel(target Target) string {
	switch target {
	case TargetVegan:
		return "vegan"
	case TargetJain:
		return "Jain vegetarian"
	default:
		return "vegetarian"
	}
}

func preferenceHint(hints Hints) string {
	var parts []string
	if hints.Taste != "" {
		parts = append(parts, "taste: "+hints.Taste)
	}
	if hints.Budget != "" {
		parts = append(parts, "budget: "+hints.Budget)
	}
	if len(hints.Allergies) > 0 {
		parts = append(parts, "avoid allergens: "+strings.Join(hints.Allergies, ", "))
	}
	if len(hints.Restrictions) > 0 {
		parts = append(parts, "dietary restrictions: "+strings.Join(hints.Restrictions, ", "))
	}
	return strings.Join(parts, "; ")
}

// parseAndValidate 解析模型輸出並做嚴格驗證。
// 頂層與每個 swap 項目的鍵名必須完全吻合，多鍵少鍵都拒絕。
func parseAndValidate(raw string, dish string, target Target, jainRequired bool) (*Result, error) {
	obj, err := common.ExtractJSONObject(raw)
	if err != nil {
		return nil, common.NewValidationError("response is not a JSON object")
	}

	if len(obj) != 4 {
		return nil, common.NewValidationError("top-level keys must be exactly input_dish, detected_source_type, target, swaps")
	}
	for _, key := range []string{"input_dish", "detected_source_type", "target", "swaps"} {
		if _, ok := obj[key]; !ok {
			return nil, common.NewValidationError("missing top-level key " + key)
		}
	}

	var result Result
	if err := json.Unmarshal(obj["input_dish"], &result.InputDish); err != nil {
		return nil, common.NewValidationError("input_dish must be a string")
	}
	if err := json.Unmarshal(obj["detected_source_type"], &result.DetectedSourceType); err != nil {
		return nil, common.NewValidationError("detected_source_type must be a string")
	}
	if err := json.Unmarshal(obj["target"], &result.Target); err != nil {
		return nil, common.NewValidationError("target must be a string")
	}

	var rawSwaps []json.RawMessage
	if err := json.Unmarshal(obj["swaps"], &rawSwaps); err != nil {
		return nil, common.NewValidationError("swaps must be an array")
	}
	if len(rawSwaps) != 3 {
		return nil, common.NewValidationError("swaps must contain exactly 3 items")
	}

	if !AllowedSourceTypes[result.DetectedSourceType] {
		return nil, common.NewValidationError("detected_source_type has an unknown value " + result.DetectedSourceType)
	}
	if result.Target != string(target) {
		return nil, common.NewValidationError("target does not match the requested diet")
	}

	blocked := BlockedTermsFor(target, jainRequired)
	seen := map[string]bool{}
	inputLower := strings.ToLower(strings.TrimSpace(dish))

	for i, rawSwap := range rawSwaps {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(rawSwap, &item); err != nil {
			return nil, common.NewValidationError("swap item is not an object")
		}
		if len(item) != 2 {
			return nil, common.NewValidationError("swap item keys must be exactly name and why")
		}

		var s Swap
		if err := json.Unmarshal(item["name"], &s.Name); err != nil {
			return nil, common.NewValidationError("swap name must be a string")
		}
		if err := json.Unmarshal(item["why"], &s.Why); err != nil {
			return nil, common.NewValidationError("swap why must be a string")
		}

		name := strings.TrimSpace(s.Name)
		why := strings.TrimSpace(s.Why)
		if name == "" || why == "" {
			return nil, common.NewValidationError("swap name and why must be non-empty")
		}

		nameLower := strings.ToLower(name)
		if nameLower == inputLower {
			return nil, common.NewValidationError("swap name repeats the input dish")
		}
		if seen[nameLower] {
			return nil, common.NewValidationError("swap names must be unique")
		}
		seen[nameLower] = true

		// 只掃名稱。why 說明本來就會提到被換掉的食材
		if ContainsAnyTerm(name, blocked...) {
			return nil, common.NewValidationError(fmt.Sprintf("swap %d name contains a forbidden ingredient term", i+1))
		}

		result.Swaps = append(result.Swaps, Swap{Name: name, Why: why})
	}

	// input_dish 以呼叫端提供的為準，模型偶爾會改寫
	result.InputDish = dish
	return &result, nil
}
