package common

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectFromFencedOutput(t *testing.T) {
	raw := "Sure! Here is the result:\n```json\n{\"name\": \"Paneer Tikka\", \"why\": \"close match\"}\n```\nHope it helps."

	obj, err := ExtractJSONObject(raw)

	require.NoError(t, err)
	assert.Contains(t, obj, "name")
	assert.Contains(t, obj, "why")

	var name string
	require.NoError(t, json.Unmarshal(obj["name"], &name))
	assert.Equal(t, "Paneer Tikka", name)
}

func TestExtractJSONObjectErrors(t *testing.T) {
	_, err := ExtractJSONObject("")
	assert.Error(t, err)

	_, err = ExtractJSONObject("no braces here")
	assert.Error(t, err)

	_, err = ExtractJSONObject("[1, 2, 3]")
	assert.Error(t, err)
}

func TestExtractJSONObjectString(t *testing.T) {
	body, err := ExtractJSONObjectString("preamble {\"a\": 1} trailer")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, body)

	_, err = ExtractJSONObjectString("nothing structured")
	assert.Error(t, err)
}

func TestQuoteJSONKeys(t *testing.T) {
	fixed := QuoteJSONKeys(`{name: "x", nested: {why: "y"}}`)
	assert.Equal(t, `{"name": "x", "nested": {"why": "y"}}`, fixed)
}

func TestParseJSONBytesKeepsNumbersAsNumber(t *testing.T) {
	var payload map[string]interface{}
	require.NoError(t, ParseJSONBytes([]byte(`{"rating": 4.3}`), &payload))

	n, ok := payload["rating"].(json.Number)
	require.True(t, ok)
	f, err := n.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 4.3, f, 0.0001)
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	err := DecodeJSON(strings.NewReader(`{"a": 1} {"b": 2}`), &v)
	assert.Error(t, err)
}

func TestParseJSONStrictRejectsUnknownFields(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	assert.NoError(t, ParseJSONStrict(`{"name": "a"}`, &out))
	assert.Error(t, ParseJSONStrict(`{"name": "a", "extra": true}`, &out))
}
