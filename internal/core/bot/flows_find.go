package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"offramp-assistant/internal/core/nearby"
	"offramp-assistant/internal/pkg/common"
)

// 附近搜尋流程：問地區、問規則、展示結果。
// 同一組條件的即時結果會暫存在會話裡，重複點按鈕不再打外部 API。

const restaurantTargetCount = 5

func startFindFoodFlow(sess *Session, carryDish string) []OutgoingMessage {
	existingFocus := sess.FocusDish()
	sess.Flow = FlowFindWaitArea
	sess.Step = 1
	sess.ClearPending()

	focus := strings.TrimSpace(carryDish)
	if focus == "" {
		focus = strings.TrimSpace(existingFocus)
	}
	if focus != "" {
		sess.Find = &FindPending{FocusDish: focus}
	}
	return []OutgoingMessage{{Text: "Got it. Which area are you in?"}}
}

func (m *Machine) processAreaSubmission(sess *Session, area string) []OutgoingMessage {
	cleaned := strings.TrimSpace(area)
	if cleaned == "" {
		sess.Flow = FlowFindWaitArea
		sess.Step = 1
		return []OutgoingMessage{{Text: "Please share your area or pincode so I can find nearby options."}}
	}

	sess.Prefs.Area = cleaned
	if sess.Find != nil {
		sess.Find.Results = nil
		sess.Find.Signature = ""
		sess.Find.Live = false
	}
	sess.Flow = FlowFindWaitRule
	sess.Step = 2
	return []OutgoingMessage{{
		Text: "Any food rules I should follow?",
		Buttons: []Button{
			{ID: BtnRuleVegetarian, Title: "🟢 Vegetarian"},
			{ID: BtnRuleVegan, Title: "🌱 Vegan"},
			{ID: BtnRuleJain, Title: "🧄 Jain"},
			{ID: BtnRuleAllergies, Title: "⚠️ Allergies"},
			{ID: BtnRuleNone, Title: "➡️ No preference"},
		},
	}}
}

// searchSignature 搜尋條件的指紋，條件沒變時重用快取結果
func searchSignature(p *Preferences) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(p.Area)),
		strings.ToLower(strings.TrimSpace(p.Diet)),
		strings.ToLower(strings.TrimSpace(p.Budget)),
		strings.Join(p.RestrictionList(), ","),
	}, "|")
}

func (m *Machine) showRestaurantResults(ctx context.Context, sess *Session) []OutgoingMessage {
	area := strings.TrimSpace(sess.Prefs.Area)
	if area == "" {
		sess.Flow = FlowFindWaitArea
		sess.Step = 1
		return []OutgoingMessage{{Text: "I need your area first. Tell me your area or pincode."}}
	}

	if sess.Find == nil {
		sess.Find = &FindPending{}
	}

	signature := searchSignature(&sess.Prefs)
	sourceNote := ""
	var results []nearby.Place

	// 只有即時結果夠多時才重用，保底結果每次重查
	if sess.Find.Signature == signature && sess.Find.Live && len(sess.Find.Results) >= restaurantTargetCount {
		results = sess.Find.Results
	} else {
		liveCount := 0
		if m.places != nil {
			fetched, err := m.places.Fetch(ctx, nearby.Query{
				Location:     area,
				Diet:         sess.Prefs.Diet,
				Restrictions: sess.Prefs.RestrictionList(),
				Budget:       sess.Prefs.Budget,
				Limit:        restaurantTargetCount,
			})
			if err != nil {
				common.LogWarn(fmt.Sprintf("附近搜尋失敗: area=%s err=%v", area, err))
				sourceNote = "Live lookup is unavailable right now. Showing safe fallback options."
			} else {
				results = fetched
				liveCount = len(fetched)
			}
		} else {
			sourceNote = "Live lookup is unavailable right now. Showing safe fallback options."
		}

		fallback := fallbackRestaurants(area)
		if len(results) == 0 {
			results = fallback
			if sourceNote == "" {
				sourceNote = "Could not find enough live listings for this area. Showing fallback options."
			}
		} else if len(results) < restaurantTargetCount {
			results = mergeRestaurants(results, fallback, restaurantTargetCount)
			sourceNote = "Showing best live matches plus safe fallback options."
		}

		if len(results) > restaurantTargetCount {
			results = results[:restaurantTargetCount]
		}
		sess.Find.Results = results
		sess.Find.Signature = signature
		sess.Find.Live = liveCount > 0
	}

	text := formatRestaurantResults(area, results, sess.Find.FocusDish, sourceNote)
	sess.Flow = FlowFindResults
	sess.Step = 3
	return []OutgoingMessage{{
		Text: text,
		Buttons: []Button{
			{ID: BtnCallRestaurant, Title: "Call restaurant"},
			{ID: BtnOpenMaps, Title: "Open Maps"},
			{ID: BtnMoreFilters, Title: "More filters"},
			{ID: BtnNewSearch, Title: "New search"},
		},
	}}
}

func formatRestaurantResults(area string, results []nearby.Place, focusDish, sourceNote string) string {
	lines := []string{fmt.Sprintf("Here are options near %s:", area)}
	if focusDish != "" {
		lines = append(lines, fmt.Sprintf("Keeping %s in mind.", focusDish))
	}
	if sourceNote != "" {
		lines = append(lines, sourceNote)
	}
	lines = append(lines, "")

	for i, place := range results {
		if i >= 5 {
			break
		}
		name := strings.TrimSpace(place.Name)
		if name == "" {
			name = fmt.Sprintf("Option %d", i+1)
		}
		ratingText := ""
		if place.Rating != nil {
			ratingText = fmt.Sprintf(" (%.1f★)", *place.Rating)
		}
		address := strings.TrimSpace(place.Address)
		if address == "" {
			address = "Address not listed"
		}
		lines = append(lines, fmt.Sprintf("%d. %s%s", i+1, name, ratingText), "- "+address)
	}

	lines = append(lines, "", "Use Open Maps for directions, then call to confirm dietary handling.")
	return strings.Join(lines, "\n")
}

// buildDefaultMapsURL 沒有真實連結時組出 Google Maps 搜尋網址
func buildDefaultMapsURL(area, diet string, restrictions []string) string {
	query := "vegetarian restaurants near " + area
	if strings.EqualFold(strings.TrimSpace(diet), "vegan") {
		query = "vegan restaurants near " + area
	} else {
		for _, r := range restrictions {
			if strings.EqualFold(strings.TrimSpace(r), "jain") {
				query = "jain vegetarian restaurants near " + area
				break
			}
		}
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query)
}

func fallbackRestaurants(area string) []nearby.Place {
	return []nearby.Place{
		{Name: "Green Leaf Cafe", Address: area, MapsURL: buildDefaultMapsURL(area, "vegetarian", nil)},
		{Name: "Terra Vegan Kitchen", Address: area, MapsURL: buildDefaultMapsURL(area, "vegan", nil)},
		{Name: "Sattvik Bistro", Address: area, MapsURL: buildDefaultMapsURL(area, "vegetarian", nil)},
		{Name: "Jain Delight House", Address: area, MapsURL: buildDefaultMapsURL(area, "vegetarian", []string{"jain"})},
		{Name: "Urban Veg Table", Address: area, MapsURL: buildDefaultMapsURL(area, "vegetarian", nil)},
	}
}

func mergeRestaurants(primary, fallback []nearby.Place, limit int) []nearby.Place {
	var merged []nearby.Place
	seen := map[string]bool{}
	for _, place := range append(append([]nearby.Place{}, primary...), fallback...) {
		name := strings.ToLower(strings.TrimSpace(place.Name))
		if name == "" {
			continue
		}
		key := name + "\x00" + strings.ToLower(strings.TrimSpace(place.Address))
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, place)
		if len(merged) >= limit {
			break
		}
	}
	return merged
}

func callRestaurantResponse(sess *Session) []OutgoingMessage {
	var options []nearby.Place
	if sess.Find != nil {
		options = sess.Find.Results
	}

	var callLines []string
	for i, place := range options {
		if i >= 5 {
			break
		}
		phone := strings.TrimSpace(place.Phone)
		if phone == "" {
			continue
		}
		name := strings.TrimSpace(place.Name)
		if name == "" {
			name = fmt.Sprintf("Option %d", i+1)
		}
		callLines = append(callLines, fmt.Sprintf("%d. %s: %s", i+1, name, phone))
	}

	followUps := []Button{
		{ID: BtnOpenMaps, Title: "Open Maps"},
		{ID: BtnNewSearch, Title: "New search"},
	}
	if len(callLines) > 0 {
		return []OutgoingMessage{{
			Text: "Call these first and confirm vegan/Jain prep plus cross-contamination:\n\n" +
				strings.Join(callLines, "\n"),
			Buttons: followUps,
		}}
	}
	return []OutgoingMessage{{
		Text: "I do not have direct phone numbers for these listings yet.\n" +
			"Tap Open Maps and call from listing details.",
		Buttons: followUps,
	}}
}

func openMapsResponse(sess *Session) []OutgoingMessage {
	mapsURL := ""
	if sess.Find != nil {
		for _, place := range sess.Find.Results {
			if u := strings.TrimSpace(place.MapsURL); u != "" {
				mapsURL = u
				break
			}
		}
	}
	if mapsURL == "" {
		area := strings.TrimSpace(sess.Prefs.Area)
		if area == "" {
			area = "your area"
		}
		mapsURL = buildDefaultMapsURL(area, sess.Prefs.Diet, sess.Prefs.RestrictionList())
	}
	return []OutgoingMessage{{
		Text: fmt.Sprintf("Open this in Maps:\n%s\n\nPing me after you check and I can refine options.", mapsURL),
		Buttons: []Button{
			{ID: BtnMoreFilters, Title: "More filters"},
			{ID: BtnNewSearch, Title: "New search"},
		},
	}}
}
