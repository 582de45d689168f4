package bot

import (
	"context"
	"fmt"
	"strings"

	"offramp-assistant/internal/core/swap"
	"offramp-assistant/internal/core/vision"
	"offramp-assistant/internal/pkg/common"
)

// 菜色精靈：收照片或菜名，跑兩段式辨識，
// 依照素食判定與信心值分支到不同的回覆。

func startDishWizard(sess *Session) []OutgoingMessage {
	sess.Flow = FlowWizardWaitImage
	sess.Step = 1
	sess.ClearPending()
	sess.Wizard.Reset()
	return []OutgoingMessage{{
		Text: "Nice 📸\nUpload a photo of your dish.\n\nI’ll:\n" +
			"• Identify the dish\n• Check if it’s vegan or non-vegan\n" +
			"• Suggest swaps or insights\n\nReal food photos work best.",
		Buttons: withExitButtons(
			Button{ID: BtnDishTypeName, Title: "✍️ Type dish name"},
		),
	}}
}

func (m *Machine) processWizardImage(ctx context.Context, sess *Session, event IncomingEvent) []OutgoingMessage {
	sess.Wizard.LastPhotoID = event.MediaID
	hint := strings.TrimSpace(event.Text)

	imageDataURI := ""
	if event.MediaID != "" && m.media != nil {
		imageBytes, err := m.media.DownloadMedia(ctx, event.MediaID)
		if err != nil {
			common.LogError(fmt.Sprintf("下載圖片失敗: media=%s err=%v", event.MediaID, err))
		} else if m.images != nil {
			dataURI, err := m.images.ProcessBytes(imageBytes)
			if err != nil {
				common.LogWarn(fmt.Sprintf("圖片處理失敗: media=%s err=%v", event.MediaID, err))
			} else {
				imageDataURI = dataURI
			}
		}
	}

	return m.runWizardAnalysis(ctx, sess, imageDataURI, hint)
}

func (m *Machine) processManualDishInput(ctx context.Context, sess *Session, dishText string) []OutgoingMessage {
	hint := strings.TrimSpace(dishText)
	if hint == "" {
		return dishWizardLowConfidence(sess)
	}
	return m.runWizardAnalysis(ctx, sess, "", hint)
}

func (m *Machine) runWizardAnalysis(ctx context.Context, sess *Session, imageDataURI, hint string) []OutgoingMessage {
	cls := m.pipeline.Classify(ctx, imageDataURI, hint)

	// 信心門檻：低信心的猜測不當答案用，改請使用者補資訊
	if cls.LowConfidence() {
		dish := cls.DishName()
		if dish == "" {
			dish = hint
		}
		if dish == "" {
			dish = "this dish"
		}
		sess.Wizard.Dish = dish
		return dishWizardLowConfidence(sess)
	}

	rec, err := m.pipeline.Recommend(ctx, cls)
	if err != nil {
		common.LogError(fmt.Sprintf("菜色推薦失敗: %v", err))
		sess.Wizard.Dish = cls.DishName()
		return dishWizardLowConfidence(sess)
	}

	applyWizardResult(sess, cls, rec, hint)

	if sess.Wizard.VegStatus == "non_veg" {
		return dishWizardNonVegResponse(sess)
	}
	return dishWizardPlantResponse(sess)
}

func applyWizardResult(sess *Session, cls *vision.Classification, rec *vision.Recommendation, fallbackName string) {
	dish := strings.TrimSpace(rec.DishName)
	if dish == "" {
		dish = strings.TrimSpace(fallbackName)
	}
	if dish == "" {
		dish = "this dish"
	}

	sess.Wizard.Dish = dish
	sess.Wizard.VegStatus = rec.VegStatus
	sess.Wizard.Confidence = rec.Confidence
	sess.Wizard.RecommendationType = rec.RecommendationType
	sess.Wizard.Recommendations = rec.Items
	sess.Wizard.Evidence = cls.Evidence
	sess.Wizard.Cuisine = cls.Cuisine
	sess.Flow = FlowWizardReview
	sess.Step = 2
	if sess.Find == nil {
		sess.Find = &FindPending{}
	}
	sess.Find.FocusDish = dish
}

func formatWizardRecommendations(recommendations []swap.Swap) string {
	if len(recommendations) == 0 {
		return "1. Paneer Tikka\n- Similar spice profile and texture.\n\n" +
			"2. Chana Masala\n- Familiar masala depth with plant protein."
	}

	var lines []string
	for i, item := range recommendations {
		if i >= 3 {
			break
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "Plant-based option"
		}
		why := strings.TrimSpace(item.Why)
		if why == "" {
			why = "Close match."
		}
		lines = append(lines, fmt.Sprintf("%d. %s\n- %s", i+1, name, why))
	}
	return strings.Join(lines, "\n\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func dishWizardNonVegResponse(sess *Session) []OutgoingMessage {
	dish := sess.Wizard.Dish
	if dish == "" {
		dish = "that dish"
	}
	confidence := int(sess.Wizard.Confidence*100 + 0.5)

	preview := sess.Wizard.Recommendations
	if len(preview) > 2 {
		preview = preview[:2]
	}
	text := fmt.Sprintf(
		"I detected *%s* as likely non-veg (%d%% confidence).\n\n"+
			"Top plant-based replacements:\n%s\n\n"+
			"Want full swaps, compare view, or allergen checks?",
		titleCase(dish), confidence, formatWizardRecommendations(preview))

	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: text,
		Buttons: withExitButtons(
			Button{ID: BtnDishShowSwaps, Title: "🌱 Vegan swaps"},
			Button{ID: BtnDishCompare, Title: "📊 Compare"},
			Button{ID: BtnDishAllergens, Title: "⚠️ Allergens"},
			Button{ID: BtnDishCancel, Title: "❌ Cancel"},
		),
	}}
}

func dishWizardPlantResponse(sess *Session) []OutgoingMessage {
	dish := sess.Wizard.Dish
	if dish == "" {
		dish = "this dish"
	}
	confidence := int(sess.Wizard.Confidence*100 + 0.5)
	lead := "is possibly plant-based"
	if sess.Wizard.VegStatus == "veg" {
		lead = "looks plant-based"
	}
	evidenceLine := ""
	if len(sess.Wizard.Evidence) > 0 && strings.TrimSpace(sess.Wizard.Evidence[0]) != "" {
		evidenceLine = "\nEvidence: " + strings.TrimSpace(sess.Wizard.Evidence[0])
	}

	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: fmt.Sprintf("%s %s (%d%% confidence).%s\n\nWant nutrients, similar dishes, or nearby options?",
			titleCase(dish), lead, confidence, evidenceLine),
		Buttons: withExitButtons(
			Button{ID: BtnDishNutrients, Title: "🧠 Nutrients"},
			Button{ID: BtnDishSimilar, Title: "🥗 Similar dishes"},
			Button{ID: BtnDishFindNearby, Title: "📍 Find nearby"},
			Button{ID: BtnDishUploadAnother, Title: "🔁 Upload another"},
		),
	}}
}

func dishWizardShowSwaps(sess *Session) []OutgoingMessage {
	dish := sess.Wizard.Dish
	if dish == "" {
		dish = "that dish"
	}
	heading := "similar veg"
	if sess.Wizard.RecommendationType == "replacement" {
		heading = "replacement"
	}

	sess.Flow = FlowWizardReview
	if sess.Find == nil {
		sess.Find = &FindPending{}
	}
	sess.Find.FocusDish = dish
	return []OutgoingMessage{{
		Text: fmt.Sprintf("Best %s options for %s:\n\n%s",
			heading, titleCase(dish), formatWizardRecommendations(sess.Wizard.Recommendations)),
		Buttons: withExitButtons(
			Button{ID: BtnDishFindNearby, Title: "📍 Nearby"},
			Button{ID: BtnReplaceThisWorks, Title: "👍 This works"},
			Button{ID: BtnDishTryPhoto, Title: "🔁 Another photo"},
		),
	}}
}

func dishWizardCompare(sess *Session) []OutgoingMessage {
	dish := sess.Wizard.Dish
	if dish == "" {
		dish = "the original"
	}

	var text string
	if sess.Wizard.VegStatus == "non_veg" {
		text = fmt.Sprintf("Quick compare for %s:\n\n"+
			"Plant-based swaps usually have:\n"+
			"- Lower saturated fat\n"+
			"- No meat or seafood ingredients\n"+
			"- Lower environmental impact\n\n"+
			"Nutrition varies by recipe and cooking method.", titleCase(dish))
	} else {
		text = fmt.Sprintf("%s already appears plant-forward.\n\n"+
			"You can still use similar dishes to vary protein, fiber, and flavor in the same cuisine style.", titleCase(dish))
	}

	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: text,
		Buttons: withExitButtons(
			Button{ID: BtnDishShowSwaps, Title: "🌱 Show swaps"},
			Button{ID: BtnDishTryPhoto, Title: "🔁 Another photo"},
		),
	}}
}

// dishWizardAllergens 從推薦名稱掃常見過敏原，粗略但夠用
func dishWizardAllergens(sess *Session) []OutgoingMessage {
	var names []string
	for _, item := range sess.Wizard.Recommendations {
		names = append(names, strings.ToLower(item.Name))
	}
	joined := " " + strings.Join(names, " ") + " "

	var allergens []string
	if containsAnyToken(joined, "tofu", "soy", "soya", "tempeh") {
		allergens = append(allergens, "- Soy")
	}
	if containsAnyToken(joined, "paneer", "cheese", "curd") {
		allergens = append(allergens, "- Dairy")
	}
	if containsAnyToken(joined, "seitan", "wheat", "noodle", "bread") {
		allergens = append(allergens, "- Gluten")
	}
	if len(allergens) == 0 {
		allergens = []string{"- Spices", "- Nuts (restaurant dependent)", "- Ingredient substitutions"}
	}

	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: "Possible allergens to verify:\n" +
			strings.Join(allergens, "\n") +
			"\n\nAlways confirm ingredient handling and cross-contamination with the kitchen.",
		Buttons: withExitButtons(
			Button{ID: BtnDishShowSwaps, Title: "🌱 Show swaps"},
			Button{ID: BtnDishTryPhoto, Title: "🔁 Another photo"},
		),
	}}
}

func containsAnyToken(text string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func dishWizardNutrients(sess *Session) []OutgoingMessage {
	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: "General nutrient view (estimate):\n" +
			"- Protein: moderate to high\n" +
			"- Fiber: moderate to high\n" +
			"- Saturated fat: usually lower than meat dishes\n\n" +
			"Exact values depend on ingredients and oil quantity.",
		Buttons: withExitButtons(
			Button{ID: BtnDishSimilar, Title: "🥗 Similar dishes"},
			Button{ID: BtnDishUploadAnother, Title: "🔁 Upload another"},
		),
	}}
}

func dishWizardSimilar(sess *Session) []OutgoingMessage {
	sess.Flow = FlowWizardReview
	return []OutgoingMessage{{
		Text: "You may also like:\n\n" + formatWizardRecommendations(sess.Wizard.Recommendations),
		Buttons: withExitButtons(
			Button{ID: BtnDishFindNearby, Title: "📍 Nearby"},
			Button{ID: BtnDishUploadAnother, Title: "🔁 Another photo"},
		),
	}}
}

func dishWizardLowConfidence(sess *Session) []OutgoingMessage {
	dish := sess.Wizard.Dish
	sess.Flow = FlowWizardWaitImage
	sess.Step = 1
	sess.Wizard.Reset()
	sess.Wizard.Dish = dish
	return []OutgoingMessage{{
		Text: "I am not fully sure about this dish.\n" +
			"Please upload a clearer photo, or type the dish name.",
		Buttons: withExitButtons(
			Button{ID: BtnDishUploadAgain, Title: "📸 Upload again"},
			Button{ID: BtnDishTypeName, Title: "✍️ Type dish name"},
			Button{ID: BtnDishCancel, Title: "❌ Cancel"},
		),
	}}
}
