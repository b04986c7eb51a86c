package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/models"
)

func TestNormalizeOpenAIStructuredContent(t *testing.T) {
	raw := json.RawMessage(`{
		"model": "gpt-4o",
		"choices": [{"message": {"content": "{\"summary\":\"market is consolidating\",\"insights\":[\"top three vendors hold 70%\"],\"sources\":[{\"title\":\"Gartner\",\"url\":\"https://example.com\"}]}"}}],
		"usage": {"total_tokens": 812}
	}`)

	result := NormalizeOpenAI(raw)

	assert.Equal(t, "market is consolidating", result.Summary)
	assert.Equal(t, []string{"top three vendors hold 70%"}, result.Insights)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Gartner", result.Sources[0].Title)
	require.NotNil(t, result.Meta)
	assert.Equal(t, 812, result.Meta.Tokens)
	assert.Equal(t, "gpt-4o", result.Meta.Model)
	assert.Equal(t, raw, json.RawMessage(result.Raw))
}

func TestNormalizeOpenAIPlainTextContent(t *testing.T) {
	raw := json.RawMessage(`{"choices": [{"message": {"content": "just prose, no JSON"}}]}`)
	result := NormalizeOpenAI(raw)
	assert.Equal(t, "just prose, no JSON", result.Summary)
	assert.Empty(t, result.Insights)
	assert.Nil(t, result.Sources)
}

func TestNormalizeOpenAIFencedJSON(t *testing.T) {
	content := "```json\n{\"summary\":\"fenced\",\"insights\":[]}\n```"
	payload, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{{"message": map[string]string{"content": content}}},
	})
	require.NoError(t, err)

	result := NormalizeOpenAI(payload)
	assert.Equal(t, "fenced", result.Summary)
	assert.Equal(t, []string{}, result.Insights)
}

func TestNormalizeNeverFails(t *testing.T) {
	cases := map[string]json.RawMessage{
		"malformed":      json.RawMessage(`{not json`),
		"empty object":   json.RawMessage(`{}`),
		"null":           json.RawMessage(`null`),
		"empty choices":  json.RawMessage(`{"choices":[]}`),
		"missing fields": json.RawMessage(`{"choices":[{"message":{}}]}`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			for _, normalize := range []func(json.RawMessage) models.ProviderResult{NormalizeOpenAI, NormalizeGemini} {
				result := normalize(raw)
				assert.Equal(t, "", result.Summary)
				assert.NotNil(t, result.Insights)
				assert.Empty(t, result.Insights)
				assert.Nil(t, result.Sources)
			}
		})
	}
}

func TestNormalizeGeminiJoinsParts(t *testing.T) {
	raw := json.RawMessage(`{
		"modelVersion": "gemini-1.5-pro",
		"candidates": [{"content": {"parts": [{"text": "{\"summary\":\"split "}, {"text": "across parts\",\"insights\":[\"i1\"]}"}]}}],
		"usageMetadata": {"totalTokenCount": 455}
	}`)

	result := NormalizeGemini(raw)

	assert.Equal(t, "split across parts", result.Summary)
	assert.Equal(t, []string{"i1"}, result.Insights)
	require.NotNil(t, result.Meta)
	assert.Equal(t, 455, result.Meta.Tokens)
}

func TestNormalizeEmptyInsightsAndSources(t *testing.T) {
	raw := json.RawMessage(`{"choices":[{"message":{"content":"{\"summary\":\"\",\"insights\":[]}"}}]}`)
	result := NormalizeOpenAI(raw)
	assert.Equal(t, "", result.Summary)
	assert.Equal(t, []string{}, result.Insights)
	assert.Nil(t, result.Sources)
}
