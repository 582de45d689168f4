package vision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offramp-assistant/internal/core/ai"
	"offramp-assistant/internal/core/swap"
)

// scriptedCompleter 依序回放預先寫好的回應
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []ai.Message, _ ai.Options) (string, error) {
	for _, m := range messages {
		if content, ok := m.Content.(string); ok {
			s.prompts = append(s.prompts, content)
		}
	}
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func newTestPipeline(completer ai.Completer) *Pipeline {
	return NewPipeline(completer, ai.Options{}, ai.Options{})
}

func TestClassifyWithoutInputReturnsSeed(t *testing.T) {
	completer := &scriptedCompleter{}
	p := newTestPipeline(completer)

	cls := p.Classify(context.Background(), "", "")

	require.NotNil(t, cls)
	assert.Equal(t, "uncertain", cls.VegStatus)
	assert.Equal(t, 0.5, cls.Confidence)
	assert.Equal(t, "unknown", cls.Cuisine)
	assert.Empty(t, cls.DishCandidates)
	assert.Equal(t, 0, completer.calls)
}

func TestClassifySeedOnCompleterError(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("upstream down")}}
	p := newTestPipeline(completer)

	cls := p.Classify(context.Background(), "", "butter chicken")

	require.NotNil(t, cls)
	assert.Equal(t, "uncertain", cls.VegStatus)
	assert.Equal(t, 0.5, cls.Confidence)
	assert.Equal(t, "butter chicken", cls.DishName())
}

func TestClassifySeedOnUnparseableOutput(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"sorry, I cannot tell"}}
	p := newTestPipeline(completer)

	cls := p.Classify(context.Background(), "", "ramen")

	require.NotNil(t, cls)
	assert.Equal(t, "uncertain", cls.VegStatus)
	assert.Equal(t, 0.5, cls.Confidence)
	assert.Equal(t, "ramen", cls.DishName())
}

func TestClassifyNormalizesFields(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{
		"dish_candidates": [],
		"cuisine": "  ",
		"visible_ingredients": ["rice"],
		"veg_status": "definitely-meat",
		"confidence": 3.5,
		"evidence": ["bones visible"]
	}`}}
	p := newTestPipeline(completer)

	cls := p.Classify(context.Background(), "", "mutton curry")

	require.NotNil(t, cls)
	assert.Equal(t, "uncertain", cls.VegStatus)
	assert.Equal(t, 1.0, cls.Confidence)
	assert.Equal(t, "unknown", cls.Cuisine)
	// 候選為空時把使用者提示補到最前面
	assert.Equal(t, "mutton curry", cls.DishName())
}

func TestLowConfidenceGate(t *testing.T) {
	assert.True(t, (&Classification{VegStatus: "uncertain", Confidence: 0.29}).LowConfidence())
	assert.False(t, (&Classification{VegStatus: "uncertain", Confidence: 0.3}).LowConfidence())
	assert.False(t, (&Classification{VegStatus: "veg", Confidence: 0.1}).LowConfidence())
}

const cleanRecommendation = `{
  "dish_name": "Chicken Tikka",
  "veg_status": "non_veg",
  "confidence": 0.9,
  "recommendation_type": "something-else",
  "recommendations": [
    {"name": "Paneer Tikka", "why": "Same tandoor char with paneer."},
    {"name": "Soya Chaap Tikka", "why": "Chewy texture close to the original."},
    {"name": "Mushroom Tikka", "why": "Smoky and juicy without meat."}
  ]
}`

func TestRecommendHappyPathNormalizesType(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{cleanRecommendation}}
	p := newTestPipeline(completer)
	cls := &Classification{DishCandidates: []string{"Chicken Tikka"}, Cuisine: "indian", VegStatus: "non_veg", Confidence: 0.9}

	rec, err := p.Recommend(context.Background(), cls)

	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
	// 未知的 recommendation_type 被拉回葷食對應的 replacement
	assert.Equal(t, "replacement", rec.RecommendationType)
	require.Len(t, rec.Items, 3)
	assert.Equal(t, "Paneer Tikka", rec.Items[0].Name)
}

func TestRecommendRetriesOnNonVegName(t *testing.T) {
	offending := `{
	  "dish_name": "Chicken Tikka",
	  "veg_status": "non_veg",
	  "confidence": 0.9,
	  "recommendation_type": "replacement",
	  "recommendations": [
	    {"name": "Chicken Tikka Lite", "why": "Lighter version."},
	    {"name": "Paneer Tikka", "why": "Paneer protein."},
	    {"name": "Mushroom Tikka", "why": "Smoky mushrooms."}
	  ]
	}`
	completer := &scriptedCompleter{responses: []string{offending, cleanRecommendation}}
	p := newTestPipeline(completer)
	cls := &Classification{DishCandidates: []string{"Chicken Tikka"}, Cuisine: "indian", VegStatus: "non_veg", Confidence: 0.9}

	rec, err := p.Recommend(context.Background(), cls)

	require.NoError(t, err)
	assert.Equal(t, 2, completer.calls)
	// 重試提示要點名違規的菜
	assert.True(t, strings.Contains(strings.Join(completer.prompts, "\n"), "Chicken Tikka Lite"))
	for _, item := range rec.Items {
		assert.False(t, swap.ContainsAnyTerm(item.Name, swap.NonVegTerms), item.Name)
	}
}

func TestRecommendStripsAndBackfillsAfterFailedRetry(t *testing.T) {
	offending := `{
	  "dish_name": "Chicken Tikka",
	  "veg_status": "non_veg",
	  "confidence": 0.9,
	  "recommendation_type": "replacement",
	  "recommendations": [
	    {"name": "Chicken Tikka Lite", "why": "Lighter version."},
	    {"name": "Soya Chaap Tikka", "why": "Chewy texture."},
	    {"name": "Fish Tikka", "why": "From the sea."}
	  ]
	}`
	completer := &scriptedCompleter{responses: []string{offending, offending}}
	p := newTestPipeline(completer)
	cls := &Classification{DishCandidates: []string{"Chicken Tikka"}, Cuisine: "indian", VegStatus: "non_veg", Confidence: 0.9}

	rec, err := p.Recommend(context.Background(), cls)

	require.NoError(t, err)
	require.Len(t, rec.Items, 3)
	assert.Equal(t, "Soya Chaap Tikka", rec.Items[0].Name)
	for _, item := range rec.Items {
		assert.False(t, swap.ContainsAnyTerm(item.Name, swap.NonVegTerms), item.Name)
	}
}

func TestRecommendFailsWhenBothRequestsError(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("boom"), errors.New("boom")}}
	p := newTestPipeline(completer)
	cls := &Classification{DishCandidates: []string{"Chicken Tikka"}, Cuisine: "indian", VegStatus: "non_veg", Confidence: 0.9}

	rec, err := p.Recommend(context.Background(), cls)

	require.Error(t, err)
	assert.Nil(t, rec)
}

func TestPadFromFallbackDedupesAndTruncates(t *testing.T) {
	items := padFromFallback([]swap.Swap{{Name: "paneer tikka", Why: "kept"}}, "indian")
	require.Len(t, items, 3)
	assert.Equal(t, "paneer tikka", items[0].Name)
	// 保底表裡同名的 Paneer Tikka 不會重複出現
	for _, item := range items[1:] {
		assert.NotEqual(t, "paneer tikka", strings.ToLower(item.Name))
	}

	full := []swap.Swap{{Name: "A", Why: "a"}, {Name: "B", Why: "b"}, {Name: "C", Why: "c"}, {Name: "D", Why: "d"}}
	assert.Len(t, padFromFallback(full, "unknown"), 3)
}
