package bot

import (
	"context"
	"strings"

	"offramp-assistant/internal/core/nearby"
	"offramp-assistant/internal/core/swap"
	"offramp-assistant/internal/core/vision"

	imagesvc "offramp-assistant/internal/core/image"
)

// Machine 對話狀態機。所有流程邏輯都在這裡，
// 外部依賴以介面注入，方便在測試中換成固定回應。
type Machine struct {
	swaps    *swap.Generator
	pipeline *vision.Pipeline
	places   nearby.Searcher
	media    MediaFetcher
	images   *imagesvc.Service
}

// NewMachine 創建狀態機。places 與 media 可為 nil，
// 對應功能會走降級路徑。
func NewMachine(
	swaps *swap.Generator,
	pipeline *vision.Pipeline,
	places nearby.Searcher,
	media MediaFetcher,
	images *imagesvc.Service,
) *Machine {
	return &Machine{
		swaps:    swaps,
		pipeline: pipeline,
		places:   places,
		media:    media,
		images:   images,
	}
}

// Handle 處理單一事件並回傳出站訊息。
// 空回覆在這裡統一換成聽不懂的提示，呼叫端永遠拿到至少一則訊息。
func (m *Machine) Handle(ctx context.Context, sess *Session, event IncomingEvent) []OutgoingMessage {
	var responses []OutgoingMessage
	switch event.Type {
	case "button":
		responses = m.handleButton(ctx, sess, event)
	case "image":
		responses = m.handleImage(ctx, sess, event)
	default:
		responses = m.handleText(ctx, sess, event)
	}

	if len(responses) == 0 {
		responses = []OutgoingMessage{fallbackMessage(sess)}
	}
	return responses
}

func (m *Machine) handleText(ctx context.Context, sess *Session, event IncomingEvent) []OutgoingMessage {
	text := strings.ToLower(strings.TrimSpace(event.Text))

	// 離題守門在所有路由之前，命中即重置流程
	if IsNegativePrompt(text) {
		return offMissionResponse(sess)
	}
	if IsGreeting(text) {
		return sendWelcome(sess)
	}

	switch sess.Flow {
	case FlowWizardWaitImage:
		return []OutgoingMessage{{
			Text: "I’m waiting for the photo 🙂\nSnap the dish and send it here, or tap ✍️ Type dish name.",
			Buttons: withExitButtons(
				Button{ID: BtnDishUploadAgain, Title: "📸 Upload again"},
				Button{ID: BtnDishTypeName, Title: "✍️ Type dish name"},
			),
		}}
	case FlowWizardTypeName:
		return m.processManualDishInput(ctx, sess, event.Text)
	case FlowReplaceWaitDish:
		return m.processDishSubmission(ctx, sess, event.Text)
	case FlowFindWaitArea:
		return m.processAreaSubmission(sess, event.Text)
	case FlowAllergyOther:
		return m.processCustomAllergy(ctx, sess, event.Text)
	}

	// 純文字也能直接啟動流程
	switch {
	case strings.Contains(text, "replace") && strings.Contains(text, "dish"):
		return startReplaceFlow(sess)
	case strings.Contains(text, "find") && strings.Contains(text, "food"):
		return startFindFoodFlow(sess, "")
	case strings.Contains(text, "set") && strings.Contains(text, "rule"):
		return startSetRulesFlow(sess)
	case strings.Contains(text, "how") && strings.Contains(text, "work"):
		return explainHowItWorks(sess)
	}

	return nil
}

func (m *Machine) handleButton(ctx context.Context, sess *Session, event IncomingEvent) []OutgoingMessage {
	buttonID := event.ButtonID

	switch buttonID {
	case BtnFindNearby:
		return startFindFoodFlow(sess, "")
	case BtnReplaceDish:
		return startReplaceFlow(sess)
	case BtnSetRules:
		return startSetRulesFlow(sess)
	case BtnHowWorks:
		return explainHowItWorks(sess)
	case BtnDishWizard:
		return startDishWizard(sess)

	case BtnMainMenu:
		return sendWelcome(sess)
	case BtnTryAgain:
		if sess.Flow == FlowWizardReview || sess.Flow == FlowWizardWaitImage || sess.Flow == FlowWizardTypeName {
			return startDishWizard(sess)
		}
		return []OutgoingMessage{fallbackMessage(sess)}
	case BtnStop:
		sess.Flow = FlowIdle
		sess.Step = 0
		return []OutgoingMessage{{Text: "No worries. Ping me anytime when you want food help 🌱."}}

	case BtnReplaceJain:
		sess.Prefs.AddRestriction("jain")
		return m.regenerateSwap(ctx, sess, "Make it Jain-safe (no onion or garlic).")
	case BtnReplaceTaste:
		sess.Flow = FlowReplaceRefining
		sess.Step = 3
		return []OutgoingMessage{{
			Text: "Got it! Pick the flavour vibe you want 👇",
			Buttons: []Button{
				{ID: BtnTasteSpicy, Title: "🌶️ Spicy"},
				{ID: BtnTasteMild, Title: "😌 Mild"},
				{ID: BtnTasteRich, Title: "🧈 Rich & creamy"},
			},
		}}
	case BtnReplaceBudget:
		sess.Flow = FlowReplaceRefining
		sess.Step = 4
		return []OutgoingMessage{{
			Text: "Sure, what budget should I aim for?",
			Buttons: []Button{
				{ID: BtnBudgetLow, Title: "💸 Low"},
				{ID: BtnBudgetMedium, Title: "💰 Medium"},
				{ID: BtnBudgetPremium, Title: "💎 Premium"},
			},
		}}
	}

	// 口味與預算按鈕會被 set_rules 流程攔走，其餘流程在這裡處理
	if sess.Flow != FlowSetRules {
		if instruction, taste := tasteInstruction(buttonID); taste != "" {
			sess.Prefs.Taste = taste
			if sess.Flow == FlowFindResults {
				return m.showRestaurantResults(ctx, sess)
			}
			return m.regenerateSwap(ctx, sess, instruction)
		}
		if instruction, budget := budgetInstruction(buttonID); budget != "" {
			sess.Prefs.Budget = budget
			if sess.Flow == FlowFindResults {
				return m.showRestaurantResults(ctx, sess)
			}
			return m.regenerateSwap(ctx, sess, instruction)
		}
	}

	switch buttonID {
	case BtnReplaceNearby:
		return startFindFoodFlow(sess, sess.LastDish)
	case BtnReplaceThisWorks:
		return celebrateSwapSuccess(sess)
	case BtnTryAnother:
		return startReplaceFlow(sess)
	case BtnFindRestaurants:
		return startFindFoodFlow(sess, "")

	case BtnDishShowSwaps:
		return dishWizardShowSwaps(sess)
	case BtnDishCompare:
		return dishWizardCompare(sess)
	case BtnDishAllergens:
		return dishWizardAllergens(sess)
	case BtnDishCancel:
		sess.Flow = FlowIdle
		sess.Step = 0
		sess.Wizard.Reset()
		return []OutgoingMessage{{Text: "Dish wizard closed. Want anything else?", Buttons: FallbackButtons()}}
	case BtnDishFindNearby:
		dish := sess.Wizard.Dish
		if dish == "" {
			dish = sess.FocusDish()
		}
		return startFindFoodFlow(sess, dish)
	case BtnDishTryPhoto, BtnDishUploadAgain, BtnDishUploadAnother:
		return startDishWizard(sess)
	case BtnDishTypeName:
		sess.Flow = FlowWizardTypeName
		sess.Step = 1
		return []OutgoingMessage{{
			Text:    "Okay, type the dish name and I’ll guide you 🌱",
			Buttons: GlobalExitButtons(),
		}}
	case BtnDishNutrients:
		return dishWizardNutrients(sess)
	case BtnDishSimilar:
		return dishWizardSimilar(sess)

	case BtnRuleVegetarian:
		sess.Prefs.Diet = "vegetarian"
		return m.showRestaurantResults(ctx, sess)
	case BtnRuleVegan:
		sess.Prefs.Diet = "vegan"
		return m.showRestaurantResults(ctx, sess)
	case BtnRuleJain:
		sess.Prefs.AddRestriction("jain")
		return m.showRestaurantResults(ctx, sess)
	case BtnRuleAllergies:
		return startAllergyFlow(sess, FlowFindWaitRule)
	case BtnRuleNone:
		return m.showRestaurantResults(ctx, sess)

	case BtnCallRestaurant:
		return callRestaurantResponse(sess)
	case BtnOpenMaps:
		return openMapsResponse(sess)
	case BtnMoreFilters:
		return []OutgoingMessage{{
			Text: "Filters coming right up 👇 Pick what matters most.",
			Buttons: []Button{
				{ID: BtnFilterBudget, Title: "💸 Budget"},
				{ID: BtnFilterTaste, Title: "🌶️ Flavour"},
				{ID: BtnNewSearch, Title: "New search"},
			},
		}}
	case BtnNewSearch:
		return startFindFoodFlow(sess, "")
	case BtnFilterBudget:
		return []OutgoingMessage{{
			Text: "For budget tweaks, tell me low / medium / premium and I’ll remember it. Want me to update your saved rules?",
			Buttons: []Button{
				{ID: BtnBudgetLow, Title: "💸 Low"},
				{ID: BtnBudgetMedium, Title: "💰 Medium"},
				{ID: BtnBudgetPremium, Title: "💎 Premium"},
			},
		}}
	case BtnFilterTaste:
		return []OutgoingMessage{{
			Text: "Noted! What flavour are you craving?",
			Buttons: []Button{
				{ID: BtnTasteSpicy, Title: "🌶️ Spicy"},
				{ID: BtnTasteMild, Title: "😌 Mild"},
				{ID: BtnTasteRich, Title: "🧈 Rich"},
			},
		}}
	}

	if sess.Flow == FlowSetRules {
		return m.handleSetRulesButtons(ctx, sess, buttonID)
	}

	switch buttonID {
	case BtnChangePreferences:
		return startSetRulesFlow(sess)
	case BtnAllergyPeanut:
		sess.Prefs.AddAllergy("peanuts")
		return allergyCautionMessage(sess)
	case BtnAllergyDairy:
		sess.Prefs.AddAllergy("dairy")
		return allergyCautionMessage(sess)
	case BtnAllergyGluten:
		sess.Prefs.AddAllergy("gluten")
		return allergyCautionMessage(sess)
	case BtnAllergyShellfish:
		sess.Prefs.AddAllergy("shellfish")
		return allergyCautionMessage(sess)
	case BtnAllergyOther:
		sess.Flow = FlowAllergyOther
		sess.Step = 2
		return []OutgoingMessage{{Text: "Thanks! Type the allergen I should watch for."}}
	case BtnSafeYes:
		return m.resumePostAllergy(ctx, sess)
	case BtnSafeChange:
		return startAllergyFlow(sess, "")
	}

	return nil
}

func (m *Machine) handleImage(ctx context.Context, sess *Session, event IncomingEvent) []OutgoingMessage {
	if sess.Flow == FlowWizardWaitImage && event.MediaType == "image" {
		return m.processWizardImage(ctx, sess, event)
	}

	return []OutgoingMessage{{
		Text: "Love the photo! To help, tell me the dish name or tap 🏠 Main menu.",
		Buttons: withExitButtons(
			Button{ID: BtnDishTypeName, Title: "✍️ Type dish name"},
		),
	}}
}

func tasteInstruction(buttonID string) (instruction, taste string) {
	switch buttonID {
	case BtnTasteSpicy:
		return "Dial up the spice level.", "spicy"
	case BtnTasteMild:
		return "Keep flavours mild and soothing.", "mild"
	case BtnTasteRich:
		return "Highlight rich, creamy mouthfeel.", "rich"
	}
	return "", ""
}

func budgetInstruction(buttonID string) (instruction, budget string) {
	switch buttonID {
	case BtnBudgetLow:
		return "Keep it super budget-friendly.", "low"
	case BtnBudgetMedium:
		return "Aim for mid-range pricing.", "medium"
	case BtnBudgetPremium:
		return "Pick premium, restaurant-ready dishes.", "premium"
	}
	return "", ""
}

func offMissionResponse(sess *Session) []OutgoingMessage {
	sess.Flow = FlowIdle
	sess.Step = 0
	return []OutgoingMessage{{
		Text: "I might skip that 🙏\nI’m here for food swaps, Jain/vegan-safe finds, and easing dietary stress.",
		Buttons: []Button{
			{ID: BtnReplaceDish, Title: "🔁 Replace a dish"},
			{ID: BtnFindNearby, Title: "🍽️ Find food"},
			{ID: BtnSetRules, Title: "🥗 Set rules"},
		},
	}}
}

func sendWelcome(sess *Session) []OutgoingMessage {
	sess.Flow = FlowIdle
	sess.Step = 0
	sess.ClearPending()
	return []OutgoingMessage{{
		Text: "Hey 👋 I’m OffRamp 🌱\n\n" +
			"I help you:\n" +
			"• Find dietary-safe food\n" +
			"• Discover plant-based alternatives\n" +
			"• Reduce food stress (Jain, vegan, allergies)\n\n" +
			"What do you want to do today?",
		Buttons: []Button{
			{ID: BtnFindNearby, Title: "🍽️ Nearby food"},
			{ID: BtnReplaceDish, Title: "🔁 Swap a dish"},
			{ID: BtnDishWizard, Title: "🧙 Dish Wizard"},
			{ID: BtnSetRules, Title: "🥗 Food rules"},
			{ID: BtnHowWorks, Title: "❓ How it works"},
		},
	}}
}

func explainHowItWorks(sess *Session) []OutgoingMessage {
	sess.Flow = FlowIdle
	sess.Step = 0
	return []OutgoingMessage{{
		Text: "OFFRAMP helps you eat better without forcing change 🌱\n\n" +
			"• You tell me what you eat\n" +
			"• I suggest familiar alternatives\n" +
			"• I respect Jain, vegan & allergy rules\n" +
			"• You choose — no pressure\n\n" +
			"Ready to try?",
		Buttons: []Button{
			{ID: BtnReplaceDish, Title: "🔁 Replace a dish"},
			{ID: BtnFindNearby, Title: "🍽️ Find food"},
		},
	}}
}

func fallbackMessage(sess *Session) OutgoingMessage {
	sess.Flow = FlowIdle
	sess.Step = 0
	return OutgoingMessage{
		Text:    "I didn’t fully catch that 😅\nWhat would you like to do?",
		Buttons: FallbackButtons(),
	}
}
