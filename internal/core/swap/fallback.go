package swap

// 本檔維護各飲食類別的保底替代方案。
// 生成器重試兩次仍失敗時改用這些固定表，保證回覆結構合法。

type fallbackTable struct {
	sourceType string
	swaps      []Swap
}

var jainVeganFallback = fallbackTable{
	sourceType: "uncertain",
	swaps: []Swap{
		{Name: "Jain Vegan Sabzi Bowl", Why: "Seasonal gourds and greens cooked without onion, garlic, root vegetables or dairy."},
		{Name: "Steamed Rice with Moong Dal", Why: "Protein rich dal tempered with cumin and asafoetida, fully plant based and Jain friendly."},
		{Name: "Jain Millet Khichdi", Why: "Millets and split lentils simmered with mild spices, no roots and no animal products."},
	},
}

var jainFallback = fallbackTable{
	sourceType: "uncertain",
	swaps: []Swap{
		{Name: "Jain Paneer Sabzi", Why: "Paneer in a tomato gravy made without onion, garlic or root vegetables."},
		{Name: "Jain Vegetable Pulao", Why: "Fragrant rice with gourds, beans and peas, prepared to Jain rules."},
		{Name: "Dal Dhokli", Why: "Wheat dumplings simmered in lentil curry, a Jain classic without roots."},
	},
}

var veganFallback = fallbackTable{
	sourceType: "uncertain",
	swaps: []Swap{
		{Name: "Tofu Tikka Masala", Why: "Charred tofu in a creamy cashew tomato gravy, no dairy anywhere."},
		{Name: "Chana Masala with Rice", Why: "Spiced chickpeas rich in protein, naturally free of animal products."},
		{Name: "Vegan Vegetable Biryani", Why: "Layered rice and vegetables finished with coconut milk instead of ghee."},
	},
}

var vegFallback = fallbackTable{
	sourceType: "uncertain",
	swaps: []Swap{
		{Name: "Paneer Butter Masala", Why: "Paneer cubes in a rich tomato gravy, a satisfying meat free classic."},
		{Name: "Vegetable Biryani", Why: "Aromatic layered rice with seasonal vegetables and saffron."},
		{Name: "Dal Makhani with Naan", Why: "Slow cooked black lentils, creamy and filling without any meat."},
	},
}

// fallbackResult 依目標組出保底結果，永遠通過驗證
func fallbackResult(dish string, target Target, jainRequired bool) *Result {
	table := vegFallback
	switch {
	case target == TargetJain && jainRequired:
		table = jainFallback
	case target == TargetVegan && jainRequired:
		table = jainVeganFallback
	case target == TargetVegan:
		table = veganFallback
	case target == TargetJain:
		table = jainFallback
	}

	swaps := make([]Swap, len(table.swaps))
	copy(swaps, table.swaps)
	return &Result{
		InputDish:          dish,
		DetectedSourceType: table.sourceType,
		Target:             string(target),
		Swaps:              swaps,
		Fallback:           true,
	}
}
