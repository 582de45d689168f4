package swap

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offramp-assistant/internal/core/ai"
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

const validVegResult = `{
  "input_dish": "Chicken Biryani",
  "detected_source_type": "non_veg",
  "target": "veg",
  "swaps": [
    {"name": "Paneer Biryani", "why": "Same layered rice format with paneer protein."},
    {"name": "Mushroom Biryani", "why": "Earthy depth close to the original."},
    {"name": "Soya Keema Pulao", "why": "Keema-like texture, fully vegetarian."}
  ]
}`

func TestGenerateAcceptsValidResult(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validVegResult}}
	gen := NewGenerator(completer, ai.Options{})

	result := gen.Generate(context.Background(), "Chicken Biryani", TargetVeg, false, Hints{})

	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	assert.Equal(t, "Chicken Biryani", result.InputDish)
	assert.Equal(t, "non_veg", result.DetectedSourceType)
	require.Len(t, result.Swaps, 3)
	assert.Equal(t, "Paneer Biryani", result.Swaps[0].Name)
	assert.Equal(t, 1, completer.calls)
}

func TestValidateAllowsReplacedIngredientInWhy(t *testing.T) {
	// why 說明提到被換掉的食材是正常的，不應觸發禁用詞檢查
	raw := `{
  "input_dish": "Chicken Biryani",
  "detected_source_type": "non_veg",
  "target": "veg",
  "swaps": [
    {"name": "Paneer Biryani", "why": "Swaps the chicken for paneer in the same gravy."},
    {"name": "Mushroom Biryani", "why": "Replaces the meat with earthy mushrooms."},
    {"name": "Soya Chaap Biryani", "why": "Soya instead of mutton, same spice profile."}
  ]
}`
	result, err := parseAndValidate(raw, "Chicken Biryani", TargetVeg, false)
	require.NoError(t, err)
	require.Len(t, result.Swaps, 3)
	assert.Equal(t, "Swaps the chicken for paneer in the same gravy.", result.Swaps[0].Why)
}

func TestGenerateRetriesWithFeedbackThenSucceeds(t *testing.T) {
	invalid := `{
  "input_dish": "Chicken Biryani",
  "detected_source_type": "non_veg",
  "target": "veg",
  "swaps": [
    {"name": "Chicken 65 Lite", "why": "oops"},
    {"name": "Paneer Biryani", "why": "ok"},
    {"name": "Mushroom Biryani", "why": "ok"}
  ]
}`
	completer := &scriptedCompleter{responses: []string{invalid, validVegResult}}
	gen := NewGenerator(completer, ai.Options{})

	result := gen.Generate(context.Background(), "Chicken Biryani", TargetVeg, false, Hints{})

	require.NotNil(t, result)
	assert.False(t, result.Fallback)
	assert.Equal(t, 2, completer.calls)

	// 第二次提示應帶上前次被拒的原因
	assert.True(t, strings.Contains(strings.Join(completer.prompts, "\n"), "rejected"))
}

func TestGenerateFallsBackAfterTwoFailures(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"not json at all", "still not json"}}
	gen := NewGenerator(completer, ai.Options{})

	result := gen.Generate(context.Background(), "Fish Curry", TargetVegan, false, Hints{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	assert.Equal(t, "Fish Curry", result.InputDish)
	assert.Equal(t, "vegan", result.Target)
	assert.Equal(t, "uncertain", result.DetectedSourceType)
	require.Len(t, result.Swaps, 3)
	for _, s := range result.Swaps {
		assert.False(t, ContainsAnyTerm(s.Name, NonVegTerms, DairyHoneyTerms))
	}
	assert.Equal(t, 2, completer.calls)
}

func TestGenerateFallbackOnCompleterError(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{errors.New("boom"), errors.New("boom")}}
	gen := NewGenerator(completer, ai.Options{})

	result := gen.Generate(context.Background(), "Mutton Rogan Josh", TargetJain, true, Hints{})

	require.NotNil(t, result)
	assert.True(t, result.Fallback)
	for _, s := range result.Swaps {
		assert.False(t, ContainsAnyTerm(s.Name, NonVegTerms, JainForbiddenTerms))
	}
}

func TestParseAndValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"extra top-level key", `{"input_dish":"x","detected_source_type":"veg","target":"veg","swaps":[{"name":"a","why":"b"},{"name":"c","why":"d"},{"name":"e","why":"f"}],"note":"hi"}`},
		{"missing key", `{"input_dish":"x","target":"veg","swaps":[]}`},
		{"two swaps only", `{"input_dish":"x","detected_source_type":"veg","target":"veg","swaps":[{"name":"a","why":"b"},{"name":"c","why":"d"}]}`},
		{"duplicate names", `{"input_dish":"x","detected_source_type":"veg","target":"veg","swaps":[{"name":"a","why":"b"},{"name":"A","why":"d"},{"name":"e","why":"f"}]}`},
		{"name equals input", `{"input_dish":"Dal","detected_source_type":"veg","target":"veg","swaps":[{"name":"Dal","why":"b"},{"name":"c","why":"d"},{"name":"e","why":"f"}]}`},
		{"wrong target", `{"input_dish":"x","detected_source_type":"veg","target":"vegan","swaps":[{"name":"a","why":"b"},{"name":"c","why":"d"},{"name":"e","why":"f"}]}`},
		{"bad source type", `{"input_dish":"x","detected_source_type":"meaty","target":"veg","swaps":[{"name":"a","why":"b"},{"name":"c","why":"d"},{"name":"e","why":"f"}]}`},
		{"swap extra key", `{"input_dish":"x","detected_source_type":"veg","target":"veg","swaps":[{"name":"a","why":"b","how":"c"},{"name":"c","why":"d"},{"name":"e","why":"f"}]}`},
		{"forbidden term in name", `{"input_dish":"x","detected_source_type":"veg","target":"veg","swaps":[{"name":"Egg Fried Rice","why":"b"},{"name":"c","why":"d"},{"name":"e","why":"f"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAndValidate(tt.raw, "Dal", TargetVeg, false)
			assert.Error(t, err)
		})
	}
}

func TestParseAndValidateExtractsFromProse(t *testing.T) {
	raw := "Here is your JSON:\n" + validVegResult + "\nHope this helps!"
	result, err := parseAndValidate(raw, "Chicken Biryani", TargetVeg, false)
	require.NoError(t, err)
	assert.Len(t, result.Swaps, 3)
}
