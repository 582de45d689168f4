package bot

import (
	"context"
	"fmt"
	"strings"

	"offramp-assistant/internal/core/swap"
)

// 換菜流程：收菜名、生成替代方案、依按鈕細調偏好後重生成

func startReplaceFlow(sess *Session) []OutgoingMessage {
	sess.Flow = FlowReplaceWaitDish
	sess.Step = 1
	sess.ClearPending()
	return []OutgoingMessage{{
		Text: "Cool 👍\nTell me a dish you usually eat.\n\nExamples:\n" +
			"• Chicken Biryani\n• Paneer Butter Masala\n• Fish Curry",
	}}
}

func (m *Machine) processDishSubmission(ctx context.Context, sess *Session, dishName string) []OutgoingMessage {
	sess.LastDish = strings.TrimSpace(dishName)
	sess.Flow = FlowReplaceRefining
	sess.Step = 2
	return m.regenerateSwap(ctx, sess, "")
}

func (m *Machine) regenerateSwap(ctx context.Context, sess *Session, instruction string) []OutgoingMessage {
	if sess.LastDish == "" {
		return startReplaceFlow(sess)
	}

	target, jainRequired := swap.ResolveTarget(sess.Prefs.Diet, sess.Prefs.RestrictionList(), instruction)
	result := m.swaps.Generate(ctx, sess.LastDish, target, jainRequired, swap.Hints{
		Taste:        sess.Prefs.Taste,
		Budget:       sess.Prefs.Budget,
		Allergies:    sess.Prefs.AllergyList(),
		Restrictions: sess.Prefs.RestrictionList(),
		Instruction:  instruction,
	})

	swapText := formatSwapText(result.Swaps)
	sess.LastSwapSummary = swapText

	targetLabel := map[string]string{
		"veg":   "vegetarian",
		"vegan": "vegan",
		"jain":  "jain-safe",
	}[result.Target]
	if targetLabel == "" {
		targetLabel = "plant-based"
	}

	return []OutgoingMessage{{
		Text: fmt.Sprintf("Here are close %s swaps:\n\n%s\n\nWant to refine this?", targetLabel, strings.TrimSpace(swapText)),
		Buttons: []Button{
			{ID: BtnReplaceJain, Title: "🧄 Jain version"},
			{ID: BtnReplaceTaste, Title: "🌶️ Spicy / Mild"},
			{ID: BtnReplaceBudget, Title: "💸 Budget friendly"},
			{ID: BtnReplaceNearby, Title: "📍 Find nearby"},
			{ID: BtnReplaceThisWorks, Title: "👍 This works"},
		},
	}}
}

func formatSwapText(swaps []swap.Swap) string {
	var lines []string
	for i, item := range swaps {
		if i >= 3 {
			break
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "Plant-based option"
		}
		why := strings.TrimSpace(item.Why)
		if why == "" {
			why = "Close match for this cuisine."
		}
		lines = append(lines, fmt.Sprintf("%d. %s\n- %s", i+1, name, why))
	}
	return strings.Join(lines, "\n\n")
}

func celebrateSwapSuccess(sess *Session) []OutgoingMessage {
	sess.Flow = FlowIdle
	sess.Step = 0
	return []OutgoingMessage{{
		Text: "Nice choice 🙌\n" +
			"Trying this once a week can roughly save:\n" +
			"💧 Water for 2 days\n" +
			"🐔 ~1 animal/month\n\n" +
			"Want another swap?",
		Buttons: []Button{
			{ID: BtnTryAnother, Title: "🔁 Another dish"},
			{ID: BtnFindRestaurants, Title: "🍽️ Restaurants"},
		},
	}}
}
