package nearby

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"offramp-assistant/internal/infrastructure/config"
	"offramp-assistant/internal/pkg/common"
)

const (
	apiURL        = "https://api.scrapingdog.com/google_maps"
	cacheTTL      = 300 * time.Second
	cacheMaxItems = 64
)

// Place 正規化後的餐廳資料
type Place struct {
	Name    string   `json:"name"`
	Rating  *float64 `json:"rating,omitempty"`
	Address string   `json:"address,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Website string   `json:"website,omitempty"`
	MapsURL string   `json:"maps_url"`
}

// Query 附近搜尋的輸入條件
type Query struct {
	Location     string
	Diet         string
	Restrictions []string
	Budget       string
	Limit        int
}

// Searcher 供狀態機注入的搜尋介面
type Searcher interface {
	Fetch(ctx context.Context, q Query) ([]Place, error)
}

type cacheEntry struct {
	createdAt time.Time
	places    []Place
}

// Client 透過 scrapingdog Google Maps API 搜尋附近餐廳
type Client struct {
	httpClient *resty.Client
	apiKey     string
	country    string

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

// NewClient 創建附近搜尋客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(cfg.Nearby.Timeout).
		SetHeader("Accept", "application/json")

	country := strings.ToLower(strings.TrimSpace(cfg.Nearby.Country))
	if country == "" {
		country = "in"
	}

	return &Client{
		httpClient: client,
		apiKey:     strings.TrimSpace(cfg.Nearby.APIKey),
		country:    country,
		cache:      make(map[string]cacheEntry),
	}
}

// Enabled 回報是否設定了 API 金鑰
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Fetch 搜尋附近餐廳。多組查詢詞依序請求並去重，
// 結果品質過低時追加一次通用查詢，最後依評分排序。
func (c *Client) Fetch(ctx context.Context, q Query) ([]Place, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("nearby search API key is not configured")
	}

	area := cleanLocation(q.Location)
	if area == "" {
		return nil, nil
	}

	restrictions := normalizeRestrictions(q.Restrictions)
	target := q.Limit
	if target < 3 {
		target = 3
	}
	if target > 10 {
		target = 10
	}

	cacheKey := strings.Join([]string{
		strings.ToLower(area),
		strings.ToLower(q.Diet),
		strings.ToLower(q.Budget),
		strings.Join(restrictions, ","),
	}, "|")
	if cached, ok := c.cacheGet(cacheKey); ok {
		if len(cached) > target {
			cached = cached[:target]
		}
		return cached, nil
	}

	var merged []Place
	for _, query := range buildQueryVariants(area, q.Diet, restrictions, q.Budget) {
		chunk, err := c.requestMaps(ctx, query, target)
		if err != nil {
			return nil, err
		}
		merged = dedupe(append(merged, chunk...))
		if len(merged) >= target {
			break
		}
	}

	// 結果太少或資訊太殘缺時，退回最通用的查詢再補一輪
	quality := 0
	for _, p := range merged {
		if p.Address != "" || p.Phone != "" || p.Website != "" {
			quality++
		}
	}
	minQuality := 2
	if len(merged) < minQuality {
		minQuality = len(merged)
	}
	if len(merged) < max(3, target/2) || quality < minQuality {
		secondary, err := c.requestMaps(ctx, "restaurants in "+area, target)
		if err == nil {
			merged = dedupe(append(merged, secondary...))
		}
	}

	sortByRating(merged)
	if len(merged) > target {
		merged = merged[:target]
	}
	c.cacheSet(cacheKey, merged)
	return merged, nil
}

func (c *Client) requestMaps(ctx context.Context, query string, target int) ([]Place, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":  c.apiKey,
			"query":    query,
			"country":  c.country,
			"language": "en",
			"type":     "search",
			"page":     "0",
		}).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to scrapingdog: %w", err)
	}

	switch resp.StatusCode() {
	case 200:
	case 401, 403:
		return nil, fmt.Errorf("scrapingdog rejected the API key")
	case 429:
		return nil, fmt.Errorf("scrapingdog rate limit reached")
	default:
		return nil, fmt.Errorf("scrapingdog returned status %d", resp.StatusCode())
	}

	var payload interface{}
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("scrapingdog response is not JSON")
	}

	if obj, ok := payload.(map[string]interface{}); ok {
		for _, key := range []string{"error", "message", "detail"} {
			if msg := asString(obj[key]); msg != "" {
				return nil, fmt.Errorf("scrapingdog API error: %s", msg)
			}
		}
	}

	var places []Place
	for _, candidate := range extractCandidates(payload) {
		if place, ok := normalizeItem(candidate); ok {
			places = append(places, place)
		}
	}
	places = dedupe(places)
	common.LogDebug(fmt.Sprintf("附近搜尋: query=%q 取得 %d 筆", query, len(places)))
	if len(places) > 0 && target > 0 && len(places) >= target {
		places = places[:target]
	}
	return places, nil
}

// extractCandidates 從回應裡挖出餐廳物件清單。
// 先試常見的列表鍵，找不到再做深度受限的遞迴掃描。
func extractCandidates(data interface{}) []map[string]interface{} {
	if list, ok := data.([]interface{}); ok {
		return dictItems(list)
	}
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}

	commonKeys := []string{
		"search_results", "local_results", "maps_results", "places_results",
		"places", "results", "data", "organic_results",
	}
	for _, key := range commonKeys {
		if list, ok := obj[key].([]interface{}); ok {
			return dictItems(list)
		}
	}

	var found []map[string]interface{}
	var walk func(node interface{}, depth int)
	walk = func(node interface{}, depth int) {
		if depth > 4 {
			return
		}
		switch v := node.(type) {
		case []interface{}:
			for _, item := range v {
				walk(item, depth+1)
			}
		case map[string]interface{}:
			for _, key := range []string{"title", "name", "address", "place_id"} {
				if _, ok := v[key]; ok {
					found = append(found, v)
					break
				}
			}
			for _, value := range v {
				switch value.(type) {
				case []interface{}, map[string]interface{}:
					walk(value, depth+1)
				}
			}
		}
	}
	walk(obj, 0)
	return found
}

func dictItems(list []interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

func normalizeItem(item map[string]interface{}) (Place, bool) {
	name := firstString(item, "title", "name", "business_name", "place_name")
	if name == "" {
		return Place{}, false
	}

	place := Place{
		Name:    name,
		Address: firstString(item, "address", "full_address", "street_address"),
		Phone:   firstString(item, "phone", "phone_number", "contact_number"),
		Website: firstString(item, "website", "site", "domain"),
	}
	for _, key := range []string{"rating", "stars", "rating_value"} {
		if rating, ok := toFloat(item[key]); ok {
			place.Rating = &rating
			break
		}
	}
	place.MapsURL = buildMapsURL(item, name, place.Address)
	return place, true
}

func buildMapsURL(item map[string]interface{}, name, address string) string {
	if u := firstString(item, "maps_url", "google_maps_url", "maps_link", "link"); u != "" {
		return u
	}

	query := strings.TrimSpace(strings.TrimSpace(name) + " " + address)
	if query == "" {
		query = "vegetarian restaurant"
	}
	encoded := url.QueryEscape(query)
	if placeID := asString(item["place_id"]); placeID != "" {
		return "https://www.google.com/maps/search/?api=1&query=" + encoded + "&query_place_id=" + placeID
	}
	return "https://www.google.com/maps/search/?api=1&query=" + encoded
}

func dedupe(places []Place) []Place {
	seen := map[string]bool{}
	var out []Place
	for _, p := range places {
		key := strings.ToLower(strings.TrimSpace(p.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(p.Address))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// sortByRating 有評分者在前並由高到低，無評分者維持原序
func sortByRating(places []Place) {
	hasRating := false
	for _, p := range places {
		if p.Rating != nil {
			hasRating = true
			break
		}
	}
	if !hasRating {
		return
	}
	sort.SliceStable(places, func(i, j int) bool {
		ri, rj := places[i].Rating, places[j].Rating
		if (ri != nil) != (rj != nil) {
			return ri != nil
		}
		if ri == nil {
			return false
		}
		return *ri > *rj
	})
}

func buildQuery(location, diet string, restrictions []string, budget string) string {
	dietTerm := "vegetarian restaurant"
	if strings.EqualFold(diet, "vegan") {
		dietTerm = "vegan restaurant"
	} else if containsFold(restrictions, "jain") {
		dietTerm = "jain friendly vegetarian restaurant"
	}

	budgetTerm := ""
	switch strings.ToLower(strings.TrimSpace(budget)) {
	case "low":
		budgetTerm = "cheap "
	case "premium":
		budgetTerm = "fine dining "
	}
	return strings.TrimSpace(budgetTerm + dietTerm + " in " + location)
}

func buildQueryVariants(location, diet string, restrictions []string, budget string) []string {
	variants := []string{buildQuery(location, diet, restrictions, budget)}
	if containsFold(restrictions, "jain") {
		variants = append(variants, "jain vegetarian restaurants in "+location)
	}
	if strings.EqualFold(diet, "vegan") {
		variants = append(variants, "vegan restaurants in "+location)
	} else {
		variants = append(variants, "vegetarian restaurants in "+location)
	}
	variants = append(variants,
		"plant based restaurants in "+location,
		"restaurants in "+location,
	)

	seen := map[string]bool{}
	var out []string
	for _, v := range variants {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func (c *Client) cacheGet(key string) ([]Place, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.createdAt) > cacheTTL {
		delete(c.cache, key)
		return nil, false
	}
	out := make([]Place, len(entry.places))
	copy(out, entry.places)
	return out, true
}

func (c *Client) cacheSet(key string, places []Place) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if len(c.cache) >= cacheMaxItems {
		oldestKey := ""
		var oldest time.Time
		for k, entry := range c.cache {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey = k
				oldest = entry.createdAt
			}
		}
		delete(c.cache, oldestKey)
	}
	stored := make([]Place, len(places))
	copy(stored, places)
	c.cache[key] = cacheEntry{createdAt: time.Now(), places: stored}
}

func cleanLocation(value string) string {
	return strings.Trim(strings.TrimSpace(value), ".,;:!?")
}

func normalizeRestrictions(restrictions []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range restrictions {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func firstString(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := asString(item[key]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
