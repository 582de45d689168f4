package vision

import (
	"strings"

	"offramp-assistant/internal/core/swap"
)

// 依菜系分類的保底推薦，第二段結果不足三項時從這裡補齊

var cuisineFallbacks = map[string][]swap.Swap{
	"indian": {
		{Name: "Paneer Tikka", Why: "Char grilled paneer with the same smoky appeal."},
		{Name: "Chole Bhature", Why: "Hearty spiced chickpeas, rich and filling."},
		{Name: "Masala Dosa", Why: "Crisp fermented crepe with spiced filling."},
	},
	"chinese": {
		{Name: "Mapo Tofu (Vegetarian)", Why: "Silky tofu in a bold chili bean sauce."},
		{Name: "Vegetable Fried Rice", Why: "Wok tossed rice with seasonal vegetables."},
		{Name: "Stir Fried Greens with Mushroom", Why: "Umami rich greens in a light soy glaze."},
	},
	"italian": {
		{Name: "Margherita Pizza", Why: "Classic tomato and basil, naturally meat free."},
		{Name: "Mushroom Risotto", Why: "Creamy rice with deep mushroom flavour."},
		{Name: "Pasta Arrabbiata", Why: "Spicy tomato pasta without any meat."},
	},
	"mexican": {
		{Name: "Bean Burrito", Why: "Refried beans and rice wrapped in a soft tortilla."},
		{Name: "Veggie Tacos", Why: "Grilled vegetables with salsa and guacamole."},
		{Name: "Elote Bowl", Why: "Charred corn with lime and chili, fully plant forward."},
	},
}

var defaultFallback = []swap.Swap{
	{Name: "Grilled Vegetable Platter", Why: "Seasonal vegetables with herbs, light and satisfying."},
	{Name: "Lentil Soup with Bread", Why: "Comforting, protein rich and fully plant based."},
	{Name: "Buddha Bowl", Why: "Grains, greens and roasted vegetables in one bowl."},
}

// padFromFallback 補齊推薦至三項，名稱與既有項目去重
func padFromFallback(items []swap.Swap, cuisine string) []swap.Swap {
	if len(items) >= 3 {
		return items[:3]
	}

	table, ok := cuisineFallbacks[strings.ToLower(strings.TrimSpace(cuisine))]
	if !ok {
		table = defaultFallback
	}

	seen := map[string]bool{}
	for _, item := range items {
		seen[strings.ToLower(item.Name)] = true
	}
	for _, candidate := range append(append([]swap.Swap{}, table...), defaultFallback...) {
		if len(items) >= 3 {
			break
		}
		if seen[strings.ToLower(candidate.Name)] {
			continue
		}
		seen[strings.ToLower(candidate.Name)] = true
		items = append(items, candidate)
	}
	return items
}
