package bot

import (
	"context"
	"strings"
)

// 規則設定流程走四步：飲食、限制、口味、預算。
// 過敏支流可從這裡或附近搜尋進入，結束後回到進入點。

func startSetRulesFlow(sess *Session) []OutgoingMessage {
	sess.Flow = FlowSetRules
	sess.Step = 1
	sess.ClearPending()
	return []OutgoingMessage{{
		Text: "Let’s set this once so I don’t ask again 🙂\n\nPick what applies to you:",
		Buttons: []Button{
			{ID: BtnDietVegan, Title: "🌱 Vegan"},
			{ID: BtnDietVegetarian, Title: "🟢 Vegetarian"},
			{ID: BtnDietFlex, Title: "🍗 Non-veg ok"},
		},
	}}
}

func (m *Machine) handleSetRulesButtons(ctx context.Context, sess *Session, buttonID string) []OutgoingMessage {
	switch sess.Step {
	case 1:
		switch buttonID {
		case BtnDietVegan:
			sess.Prefs.Diet = "vegan"
		case BtnDietVegetarian:
			sess.Prefs.Diet = "vegetarian"
		case BtnDietFlex:
			sess.Prefs.Diet = "flex"
		default:
			return nil
		}
		sess.Step = 2
		return []OutgoingMessage{{
			Text: "Great. Any restrictions?",
			Buttons: []Button{
				{ID: BtnRestrictionJain, Title: "🧄 Jain"},
				{ID: BtnRestrictionAllergies, Title: "⚠️ Allergies"},
				{ID: BtnRestrictionReligious, Title: "✝️ / ☪️ Religious"},
				{ID: BtnRestrictionNone, Title: "➡️ None"},
			},
		}}

	case 2:
		switch buttonID {
		case BtnRestrictionJain:
			sess.Prefs.AddRestriction("jain")
		case BtnRestrictionReligious:
			sess.Prefs.AddRestriction("religious")
		case BtnRestrictionAllergies:
			return startAllergyFlow(sess, FlowSetRules)
		case BtnRestrictionNone:
			delete(sess.Prefs.Restrictions, "religious")
		default:
			return nil
		}
		sess.Step = 3
		return tasteStepMessage("Noted. What flavour profile do you enjoy?")

	case 3:
		switch buttonID {
		case BtnTasteSpicy:
			sess.Prefs.Taste = "spicy"
		case BtnTasteMild:
			sess.Prefs.Taste = "mild"
		case BtnTasteRich:
			sess.Prefs.Taste = "rich"
		default:
			return nil
		}
		sess.Step = 4
		return []OutgoingMessage{{
			Text: "Last bit — what budget should I aim for?",
			Buttons: []Button{
				{ID: BtnBudgetLow, Title: "💸 Low"},
				{ID: BtnBudgetMedium, Title: "💰 Medium"},
				{ID: BtnBudgetPremium, Title: "💎 Premium"},
			},
		}}

	case 4:
		switch buttonID {
		case BtnBudgetLow:
			sess.Prefs.Budget = "low"
		case BtnBudgetMedium:
			sess.Prefs.Budget = "medium"
		case BtnBudgetPremium:
			sess.Prefs.Budget = "premium"
		default:
			return nil
		}
		sess.Flow = FlowIdle
		sess.Step = 0
		return []OutgoingMessage{{
			Text: "All set ✅\nI’ll remember this for future suggestions.\n\nYou can now:",
			Buttons: []Button{
				{ID: BtnReplaceDish, Title: "🔁 Replace a dish"},
				{ID: BtnFindNearby, Title: "🍽️ Find food"},
				{ID: BtnChangePreferences, Title: "❌ Change preferences"},
			},
		}}
	}

	return nil
}

func tasteStepMessage(text string) []OutgoingMessage {
	return []OutgoingMessage{{
		Text: text,
		Buttons: []Button{
			{ID: BtnTasteSpicy, Title: "🌶️ Spicy"},
			{ID: BtnTasteMild, Title: "😌 Mild"},
			{ID: BtnTasteRich, Title: "🧈 Rich & creamy"},
		},
	}}
}

// startAllergyFlow 進入過敏支流。returnFlow 記住來處，
// 確認安全選項後會接回原流程。
func startAllergyFlow(sess *Session, returnFlow Flow) []OutgoingMessage {
	sess.Flow = FlowAllergy
	sess.Step = 1
	if returnFlow != "" {
		sess.Allergy = &AllergyPending{ReturnFlow: returnFlow}
	} else if sess.Allergy != nil {
		sess.Allergy.ReturnFlow = ""
	}
	return []OutgoingMessage{{
		Text: "Thanks for telling me 🙏\nWhich allergy should I watch for?",
		Buttons: []Button{
			{ID: BtnAllergyPeanut, Title: "🥜 Peanuts"},
			{ID: BtnAllergyDairy, Title: "🥛 Dairy"},
			{ID: BtnAllergyGluten, Title: "🌾 Gluten"},
			{ID: BtnAllergyShellfish, Title: "🦐 Shellfish"},
			{ID: BtnAllergyOther, Title: "✍️ Other"},
		},
	}}
}

func (m *Machine) processCustomAllergy(ctx context.Context, sess *Session, name string) []OutgoingMessage {
	_ = ctx
	sess.Prefs.AddAllergy(strings.ToLower(strings.TrimSpace(name)))
	return allergyCautionMessage(sess)
}

func allergyCautionMessage(sess *Session) []OutgoingMessage {
	sess.Flow = FlowAllergy
	sess.Step = 1
	return []OutgoingMessage{{
		Text: "⚠️ Important\n" +
			"I’ll avoid risky suggestions. Always confirm with restaurants —" +
			" I can’t guarantee kitchen practices.\n\nWant safer options now?",
		Buttons: []Button{
			{ID: BtnSafeYes, Title: "✅ Yes"},
			{ID: BtnSafeChange, Title: "🔁 Change allergy"},
		},
	}}
}

func (m *Machine) resumePostAllergy(ctx context.Context, sess *Session) []OutgoingMessage {
	var returnFlow Flow
	if sess.Allergy != nil {
		returnFlow = sess.Allergy.ReturnFlow
		sess.Allergy = nil
	}

	switch returnFlow {
	case FlowFindWaitRule:
		return m.showRestaurantResults(ctx, sess)
	case FlowSetRules:
		sess.Flow = FlowSetRules
		sess.Step = 3
		return tasteStepMessage("Got it. What flavour profile do you enjoy?")
	}

	sess.Flow = FlowIdle
	sess.Step = 0
	return []OutgoingMessage{fallbackMessage(sess)}
}
