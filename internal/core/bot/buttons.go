package bot

// 互動按鈕 ID，與舊版用戶端已綁定的 ID 保持相容

const (
	BtnFindNearby  = "BTN_FIND_NEARBY"
	BtnReplaceDish = "BTN_REPLACE_DISH"
	BtnSetRules    = "BTN_SET_RULES"
	BtnHowWorks    = "BTN_HOW_WORKS"
	BtnDishWizard  = "BTN_DISH_WIZARD"

	BtnReplaceJain      = "BTN_REPLACE_JAIN"
	BtnReplaceTaste     = "BTN_REPLACE_TASTE"
	BtnReplaceBudget    = "BTN_REPLACE_BUDGET"
	BtnReplaceNearby    = "BTN_REPLACE_NEARBY"
	BtnReplaceThisWorks = "BTN_REPLACE_THIS_WORKS"

	BtnTasteSpicy = "BTN_TASTE_SPICY"
	BtnTasteMild  = "BTN_TASTE_MILD"
	BtnTasteRich  = "BTN_TASTE_RICH"

	BtnBudgetLow     = "BTN_BUDGET_LOW"
	BtnBudgetMedium  = "BTN_BUDGET_MEDIUM"
	BtnBudgetPremium = "BTN_BUDGET_PREMIUM"

	BtnRuleVegetarian = "BTN_RULE_VEGETARIAN"
	BtnRuleVegan      = "BTN_RULE_VEGAN"
	BtnRuleJain       = "BTN_RULE_JAIN"
	BtnRuleAllergies  = "BTN_RULE_ALLERGIES"
	BtnRuleNone       = "BTN_RULE_NONE"

	BtnCallRestaurant = "BTN_CALL_RESTAURANT"
	BtnOpenMaps       = "BTN_OPEN_MAPS"
	BtnMoreFilters    = "BTN_MORE_FILTERS"
	BtnNewSearch      = "BTN_NEW_SEARCH"
	BtnFilterBudget   = "BTN_FILTER_BUDGET"
	BtnFilterTaste    = "BTN_FILTER_TASTE"
	BtnMainMenu       = "BTN_MAIN_MENU"
	BtnTryAgain       = "BTN_TRY_AGAIN"
	BtnStop           = "BTN_STOP"

	BtnDietVegan      = "BTN_DIET_VEGAN"
	BtnDietVegetarian = "BTN_DIET_VEGETARIAN"
	BtnDietFlex       = "BTN_DIET_FLEX"

	BtnRestrictionJain      = "BTN_RESTRICTION_JAIN"
	BtnRestrictionAllergies = "BTN_RESTRICTION_ALLERGIES"
	BtnRestrictionReligious = "BTN_RESTRICTION_RELIGIOUS"
	BtnRestrictionNone      = "BTN_RESTRICTION_NONE"

	BtnAllergyPeanut    = "BTN_ALLERGY_PEANUT"
	BtnAllergyDairy     = "BTN_ALLERGY_DAIRY"
	BtnAllergyGluten    = "BTN_ALLERGY_GLUTEN"
	BtnAllergyShellfish = "BTN_ALLERGY_SHELLFISH"
	BtnAllergyOther     = "BTN_ALLERGY_OTHER"

	BtnSafeYes    = "BTN_SAFE_YES"
	BtnSafeChange = "BTN_SAFE_CHANGE"

	BtnTryAnother        = "BTN_TRY_ANOTHER"
	BtnFindRestaurants   = "BTN_FIND_RESTAURANTS"
	BtnChangePreferences = "BTN_CHANGE_PREFERENCES"
	BtnDishShowSwaps     = "BTN_DISH_SHOW_SWAPS"
	BtnDishCompare       = "BTN_DISH_COMPARE"
	BtnDishAllergens     = "BTN_DISH_ALLERGENS"
	BtnDishCancel        = "BTN_DISH_CANCEL"
	BtnDishFindNearby    = "BTN_DISH_FIND_NEARBY"
	BtnDishTryPhoto      = "BTN_DISH_TRY_PHOTO"
	BtnDishUploadAgain   = "BTN_DISH_UPLOAD_AGAIN"
	BtnDishTypeName      = "BTN_DISH_TYPE_NAME"
	BtnDishNutrients     = "BTN_DISH_NUTRIENTS"
	BtnDishSimilar       = "BTN_DISH_SIMILAR"
	BtnDishUploadAnother = "BTN_DISH_UPLOAD_ANOTHER"
)

// FallbackButtons 聽不懂時的主選單按鈕
func FallbackButtons() []Button {
	return []Button{
		{ID: BtnReplaceDish, Title: "🔁 Swap a dish"},
		{ID: BtnFindNearby, Title: "🍽️ Nearby food"},
		{ID: BtnDishWizard, Title: "🧙 Dish Wizard"},
		{ID: BtnSetRules, Title: "🥗 Food rules"},
	}
}

// GlobalExitButtons 各流程尾端共用的離開按鈕
func GlobalExitButtons() []Button {
	return []Button{
		{ID: BtnMainMenu, Title: "🏠 Main menu"},
		{ID: BtnTryAgain, Title: "🔁 Retry"},
		{ID: BtnStop, Title: "❌ Stop"},
	}
}

func withExitButtons(buttons ...Button) []Button {
	return append(buttons, GlobalExitButtons()...)
}
